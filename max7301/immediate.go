package max7301

import "fmt"

// ImmediateIO hands out pins that go to the device on every call. A write is
// a read-modify-write of the port's group register; a read is a single
// register read. Each call reflects live device state.
type ImmediateIO struct {
	ex   *Expander
	pins *registry
}

func newImmediateIO(ex *Expander) *ImmediateIO {
	return &ImmediateIO{ex: ex, pins: &ex.pins}
}

// Pin creates the handle for p. It fails with ErrPortInUse while another
// handle for p is live.
func (io *ImmediateIO) Pin(p Port) (*ImmediatePin, error) {
	if err := io.pins.acquire(p, io); err != nil {
		return nil, err
	}
	return &ImmediatePin{io: io, port: p}, nil
}

// Release hands the expander back. It fails with ErrPinsOutstanding while
// any pin of this adapter is live.
func (io *ImmediateIO) Release() (*Expander, error) {
	if io.pins.holds(io) {
		return nil, ErrPinsOutstanding
	}
	return io.ex, nil
}

func (io *ImmediateIO) readField(addr RegisterAddress, shift, width uint8) (byte, error) {
	v, err := io.ex.ReadRegister(addr)
	if err != nil {
		return 0, err
	}
	return v >> shift & (1<<width - 1), nil
}

func (io *ImmediateIO) modifyField(addr RegisterAddress, shift, width uint8, field byte) error {
	io.ex.rmw.Lock()
	defer io.ex.rmw.Unlock()
	v, err := io.ex.ReadRegister(addr)
	if err != nil {
		return err
	}
	mask := byte(1<<width-1) << shift
	return io.ex.WriteRegister(addr, v&^mask|field<<shift&mask)
}

// ImmediatePin is a PortPin whose every operation is a bus transaction.
type ImmediatePin struct {
	io       *ImmediateIO
	port     Port
	released bool
}

var _ PortPin = &ImmediatePin{}

// Port returns the port owned by the pin.
func (p *ImmediatePin) Port() Port { return p.port }

// SetHigh drives the port high.
func (p *ImmediatePin) SetHigh() error { return p.Set(true) }

// SetLow drives the port low.
func (p *ImmediatePin) SetLow() error { return p.Set(false) }

// Set writes the port level with a read-modify-write of its group register.
func (p *ImmediatePin) Set(high bool) error {
	if err := p.io.pins.check(&p.released); err != nil {
		return err
	}
	var bit byte
	if high {
		bit = 1
	}
	return p.io.modifyField(p.port.ValueRegister(), p.port.ValueBit(), 1, bit)
}

// IsHigh reads the port level.
func (p *ImmediatePin) IsHigh() (bool, error) {
	if err := p.io.pins.check(&p.released); err != nil {
		return false, err
	}
	v, err := p.io.readField(p.port.ValueRegister(), p.port.ValueBit(), 1)
	return v == 1, err
}

// IsLow reads the port level.
func (p *ImmediatePin) IsLow() (bool, error) {
	high, err := p.IsHigh()
	if err != nil {
		return false, err
	}
	return !high, nil
}

// SetMode changes the port mode with a read-modify-write of its bank
// register.
func (p *ImmediatePin) SetMode(m PortMode) error {
	if err := p.io.pins.check(&p.released); err != nil {
		return err
	}
	if !m.valid() {
		return fmt.Errorf("%w: %s", ErrReservedMode, m)
	}
	return p.io.modifyField(p.port.ModeRegister(), p.port.ModeShift(), 2, byte(m))
}

// Mode reads the port mode from its bank register.
func (p *ImmediatePin) Mode() (PortMode, error) {
	if err := p.io.pins.check(&p.released); err != nil {
		return 0, err
	}
	v, err := p.io.readField(p.port.ModeRegister(), p.port.ModeShift(), 2)
	if err != nil {
		return 0, err
	}
	return decodeMode(v)
}

// Release gives the port back to the adapter.
func (p *ImmediatePin) Release() error {
	return p.io.pins.release(p.port, &p.released)
}
