package max7301

import (
	"errors"
	"fmt"
)

// busOp is one recorded register transaction.
type busOp struct {
	Write bool
	Addr  RegisterAddress
	Value byte
}

func rd(addr RegisterAddress, v byte) busOp { return busOp{Addr: addr, Value: v} }
func wr(addr RegisterAddress, v byte) busOp { return busOp{Write: true, Addr: addr, Value: v} }

func (o busOp) String() string {
	if o.Write {
		return fmt.Sprintf("W %s=0x%02X", o.Addr, o.Value)
	}
	return fmt.Sprintf("R %s=0x%02X", o.Addr, o.Value)
}

var errBus = errors.New("bus fault")

// simChip is an in-memory MAX7301 implementing Interface. Single-port and
// port-range registers alias the same per-port state, as on the device.
type simChip struct {
	levels uint32 // bit p is port p
	banks  [numBanks]byte
	config byte
	tdm    byte

	ops []busOp

	// fail, if set, is consulted before each transaction. A non-nil return
	// fails the transaction without touching state.
	fail func(write bool, addr RegisterAddress) error
}

func newSimChip() *simChip {
	c := &simChip{}
	// Power-up: every port an input without pull-up, device in shutdown.
	for i := range c.banks {
		c.banks[i] = 0xAA
	}
	return c
}

// failOn makes every transaction with addr fail.
func (c *simChip) failOn(addr RegisterAddress) {
	c.fail = func(_ bool, a RegisterAddress) error {
		if a == addr {
			return errBus
		}
		return nil
	}
}

func (c *simChip) reset() { c.ops = nil }

func (c *simChip) reads() int {
	var n int
	for _, o := range c.ops {
		if !o.Write {
			n++
		}
	}
	return n
}

func (c *simChip) writes() int { return len(c.ops) - c.reads() }

func (c *simChip) level(p Port) bool { return c.levels&(1<<p) != 0 }

func (c *simChip) setLevel(p Port, high bool) {
	if high {
		c.levels |= 1 << p
	} else {
		c.levels &^= 1 << p
	}
}

func (c *simChip) mode(p Port) PortMode {
	return PortMode(c.banks[p.Bank()] >> p.ModeShift() & modeMask)
}

func (c *simChip) ReadRegister(addr RegisterAddress) (byte, error) {
	if c.fail != nil {
		if err := c.fail(false, addr); err != nil {
			return 0, err
		}
	}
	var v byte
	switch {
	case addr == Configuration:
		v = c.config
	case addr == TransitionDetectMask:
		v = c.tdm
	case addr.isBankConfig():
		v = c.banks[addr-bankConfigBase]
	case addr >= singlePortBase+MinPort && addr <= singlePortBase+MaxPort:
		if c.level(Port(addr - singlePortBase)) {
			v = 1
		}
	case addr.isPortRange():
		start := int(addr - portRangeBase)
		for k := 0; k < groupWidth && start+k <= MaxPort; k++ {
			if c.level(Port(start + k)) {
				v |= 1 << k
			}
		}
	}
	c.ops = append(c.ops, rd(addr, v))
	return v, nil
}

func (c *simChip) WriteRegister(addr RegisterAddress, v byte) error {
	if c.fail != nil {
		if err := c.fail(true, addr); err != nil {
			return err
		}
	}
	switch {
	case addr == Configuration:
		c.config = v
	case addr == TransitionDetectMask:
		c.tdm = v
	case addr.isBankConfig():
		c.banks[addr-bankConfigBase] = v
	case addr >= singlePortBase+MinPort && addr <= singlePortBase+MaxPort:
		c.setLevel(Port(addr-singlePortBase), v&1 != 0)
	case addr.isPortRange():
		start := int(addr - portRangeBase)
		for k := 0; k < groupWidth && start+k <= MaxPort; k++ {
			c.setLevel(Port(start+k), v&(1<<k) != 0)
		}
	}
	c.ops = append(c.ops, wr(addr, v))
	return nil
}
