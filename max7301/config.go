package max7301

import "fmt"

// PortMode is one of the three electrical modes of a MAX7301 port.
type PortMode uint8

const (
	// Output is a push-pull logic output.
	Output PortMode = 0b01
	// InputFloating is a logic input without pull-up.
	InputFloating PortMode = 0b10
	// InputPullup is a logic input with a weak pull-up.
	InputPullup PortMode = 0b11

	modeMask = 0b11
)

func decodeMode(bits byte) (PortMode, error) {
	switch m := PortMode(bits & modeMask); m {
	case Output, InputFloating, InputPullup:
		return m, nil
	default:
		return 0, fmt.Errorf("%w: 0b%02b", ErrReservedMode, bits&modeMask)
	}
}

func (m PortMode) valid() bool {
	return m == Output || m == InputFloating || m == InputPullup
}

// IsInput reports whether m is one of the input modes.
func (m PortMode) IsInput() bool {
	return m == InputFloating || m == InputPullup
}

func (m PortMode) String() string {
	switch m {
	case Output:
		return "Output"
	case InputFloating:
		return "InputFloating"
	case InputPullup:
		return "InputPullup"
	}
	return fmt.Sprintf("PortMode(0b%02b)", uint8(m))
}

// bankConfig holds pending mode fields for the 4 ports of one bank. A field
// of 0b00 means "not changed".
type bankConfig uint8

type bankStatus int

const (
	bankUnchanged bankStatus = iota
	bankReadModify
	bankOverwrite
)

func (b *bankConfig) setPort(offset uint8, m PortMode) {
	if offset > 3 {
		panic("max7301: bank holds only 4 ports")
	}
	shift := offset * 2
	*b = bankConfig(uint8(*b)&^(modeMask<<shift) | uint8(m)<<shift)
}

// keepMask has both bits set for every field that was not changed.
func (b bankConfig) keepMask() byte {
	var m byte
	for p := uint8(0); p < 4; p++ {
		field := byte(modeMask) << (p * 2)
		if byte(b)&field == 0 {
			m |= field
		}
	}
	return m
}

func (b bankConfig) status() bankStatus {
	switch b.keepMask() {
	case 0xFF:
		return bankUnchanged
	case 0x00:
		return bankOverwrite
	}
	return bankReadModify
}

func (b bankConfig) merge(current byte) byte {
	return current&b.keepMask() | byte(b)
}

// expanderConfig is the content of the configuration register.
type expanderConfig struct {
	shutdown         bool
	transitionDetect bool
}

// The device powers up in shutdown.
func defaultExpanderConfig() expanderConfig {
	return expanderConfig{shutdown: true}
}

func (c expanderConfig) encode() byte {
	var v byte
	if !c.shutdown {
		v |= 0b00000001
	}
	if c.transitionDetect {
		v |= 0b10000000
	}
	return v
}

// Configurator collects port mode and device configuration changes and
// writes them with Commit. Obtain one from Expander.Configure.
//
//	err := ex.Configure().
//		Ports(max7301.AllPorts(), max7301.InputPullup).
//		Port(max7301.MustPort(7), max7301.Output).
//		Shutdown(false).
//		Commit()
type Configurator struct {
	ex          *Expander
	config      expanderConfig
	configDirty bool
	banks       [numBanks]bankConfig
	err         error
}

// Port sets the mode of a single port. An invalid port or mode is reported
// by Commit.
func (c *Configurator) Port(p Port, m PortMode) *Configurator {
	if c.err != nil {
		return c
	}
	if !p.Valid() {
		c.err = fmt.Errorf("%w: %d", ErrInvalidPort, p)
		return c
	}
	if !m.valid() {
		c.err = fmt.Errorf("%w: port %s: %s", ErrReservedMode, p, m)
		return c
	}
	c.banks[p.Bank()].setPort(uint8(p%4), m)
	return c
}

// Ports sets every port in ports to m.
func (c *Configurator) Ports(ports []Port, m PortMode) *Configurator {
	for _, p := range ports {
		c.Port(p, m)
	}
	return c
}

// Shutdown sets the shutdown bit. In shutdown all ports are forced to input
// and pull-ups are disabled, but registers keep their values.
func (c *Configurator) Shutdown(enable bool) *Configurator {
	c.config.shutdown = enable
	c.configDirty = true
	return c
}

// DetectTransitions sets the transition detection bit. The resulting
// interrupt output is not serviced by this package.
func (c *Configurator) DetectTransitions(enable bool) *Configurator {
	c.config.transitionDetect = enable
	c.configDirty = true
	return c
}

// Commit writes the collected changes. Banks where every port changed are
// overwritten; banks where only some ports changed are read, merged and
// written back; untouched banks and an untouched configuration register are
// skipped. Nothing is written if an earlier call recorded an error.
func (c *Configurator) Commit() error {
	if c.err != nil {
		return c.err
	}
	for bank, cfg := range c.banks {
		addr := bankConfigBase + RegisterAddress(bank)
		switch cfg.status() {
		case bankUnchanged:
		case bankOverwrite:
			if err := c.ex.WriteRegister(addr, byte(cfg)); err != nil {
				return err
			}
		case bankReadModify:
			cur, err := c.ex.ReadRegister(addr)
			if err != nil {
				return err
			}
			if err := c.ex.WriteRegister(addr, cfg.merge(cur)); err != nil {
				return err
			}
		}
	}
	if !c.configDirty {
		return nil
	}
	if err := c.ex.WriteRegister(Configuration, c.config.encode()); err != nil {
		return err
	}
	c.ex.mu.Lock()
	c.ex.config = c.config
	c.ex.mu.Unlock()
	return nil
}
