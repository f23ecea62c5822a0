// expander.go
//
// Raw register access to a MAX7301.
//
// Expander is a thin layer over an Interface: every method is exactly one bus
// transaction (Configurator.Commit aside) and transport errors are returned
// unchanged. There is no caching here; see ImmediateIO and TransactionalIO for
// pin-level access.
//
package max7301

import (
	"log"
	"sync"
)

// Expander is a MAX7301 (or MAX7300) reached through an Interface.
type Expander struct {
	// Serializes transactions on the interface.
	mu sync.Mutex
	// Held across read-modify-write cycles by every adapter.
	rmw sync.Mutex
	// Live pin handles of all adapters.
	pins registry

	iface  Interface
	config expanderConfig
	debug  bool
}

// New returns an Expander that owns iface.
func New(iface Interface) *Expander {
	return &Expander{
		iface:  iface,
		config: defaultExpanderConfig(),
	}
}

// SetDebug turns per-transaction logging on or off.
func (e *Expander) SetDebug(debug bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.debug = debug
}

func (e *Expander) debugEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.debug
}

// ReadRegister reads one register. Addresses outside the register map fail
// with ErrInvalidRegister before any bus traffic.
func (e *Expander) ReadRegister(addr RegisterAddress) (byte, error) {
	if !addr.Valid() {
		return 0, ErrInvalidRegister
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	v, err := e.iface.ReadRegister(addr)
	if err != nil {
		if e.debug {
			log.Printf("max7301 read %s failed: %v", addr, err)
		}
		return 0, err
	}
	if e.debug {
		log.Printf("max7301 read %s = 0x%02X", addr, v)
	}
	return v, nil
}

// WriteRegister writes one register. Addresses outside the register map fail
// with ErrInvalidRegister before any bus traffic.
func (e *Expander) WriteRegister(addr RegisterAddress, value byte) error {
	if !addr.Valid() {
		return ErrInvalidRegister
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.iface.WriteRegister(addr, value); err != nil {
		if e.debug {
			log.Printf("max7301 write %s = 0x%02X failed: %v", addr, value, err)
		}
		return err
	}
	if e.debug {
		log.Printf("max7301 write %s = 0x%02X", addr, value)
	}
	return nil
}

// ReadPort reads the level of a single port.
func (e *Expander) ReadPort(p Port) (bool, error) {
	if !p.Valid() {
		return false, ErrInvalidPort
	}
	v, err := e.ReadRegister(SinglePort(p))
	return v&0x01 != 0, err
}

// WritePort writes the level of a single port.
func (e *Expander) WritePort(p Port, high bool) error {
	if !p.Valid() {
		return ErrInvalidPort
	}
	var v byte
	if high {
		v = 0x01
	}
	return e.WriteRegister(SinglePort(p), v)
}

// ReadPorts reads start and the 7 ports above it in one transaction. Bit k
// of the result is port start+k; bits for ports above 31 are 0. start need
// not be aligned.
func (e *Expander) ReadPorts(start Port) (byte, error) {
	if !start.Valid() {
		return 0, ErrInvalidPort
	}
	return e.ReadRegister(PortRange(start))
}

// WritePorts writes start and the 7 ports above it in one transaction, with
// the same bit layout as ReadPorts. Bits for ports above 31 are ignored.
func (e *Expander) WritePorts(start Port, bits byte) error {
	if !start.Valid() {
		return ErrInvalidPort
	}
	return e.WriteRegister(PortRange(start), bits)
}

// Configure begins a configuration change. Nothing is written until
// Configurator.Commit.
func (e *Expander) Configure() *Configurator {
	e.mu.Lock()
	defer e.mu.Unlock()
	return &Configurator{ex: e, config: e.config}
}

// Immediate returns an immediate-mode I/O adapter. Adapters of one expander
// share its pin handles: a port has at most one live handle across all of
// them.
func (e *Expander) Immediate() *ImmediateIO {
	return newImmediateIO(e)
}

// Transactional returns a transactional I/O adapter with an empty write-back
// cache. It shares pin handles with every other adapter of the expander.
func (e *Expander) Transactional() *TransactionalIO {
	return newTransactionalIO(e)
}
