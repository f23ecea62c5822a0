// interface.go
//
// Bus transports for the expander.
//
// Both transports move one register value per call:
//   - SPI (MAX7301): 16-bit frames, address in the upper byte, value in the
//     lower. A read takes two frames: the first latches the register, the
//     second (a no-op) shifts it back out along with the echoed address.
//   - I2C (MAX7300): plain register read/write on a 7-bit address.
//
// Retries, if any, belong here and not in the register driver. None are done.
//
package max7301

import (
	"fmt"

	"github.com/reef-pi/rpi/i2c"
	"periph.io/x/conn/v3"
)

// Interface moves single register values to and from the expander. Each
// call is one atomic bus transaction.
type Interface interface {
	WriteRegister(addr RegisterAddress, value byte) error
	ReadRegister(addr RegisterAddress) (byte, error)
}

const readFlag = 0x80

// SPI talks to a MAX7301 over a full-duplex SPI connection. Each Tx must
// assert chip select for exactly one 16-bit frame; a periph spi.Conn does
// this.
type SPI struct {
	c conn.Conn
}

// NewSPI wraps an SPI connection (mode 0, 8 bits per word).
func NewSPI(c conn.Conn) *SPI {
	return &SPI{c: c}
}

func (s *SPI) String() string { return "max7301-spi(" + s.c.String() + ")" }

// WriteRegister writes value into the register at addr.
func (s *SPI) WriteRegister(addr RegisterAddress, value byte) error {
	w := []byte{byte(addr), value}
	r := make([]byte, len(w))
	if err := s.c.Tx(w, r); err != nil {
		return fmt.Errorf("max7301 spi: write %s: %w", addr, err)
	}
	return nil
}

// ReadRegister reads the register at addr.
func (s *SPI) ReadRegister(addr RegisterAddress) (byte, error) {
	cmd := readFlag | byte(addr)

	// The value is latched into the shift register when CS rises.
	r := make([]byte, 2)
	if err := s.c.Tx([]byte{cmd, 0}, r); err != nil {
		return 0, fmt.Errorf("max7301 spi: read %s: %w", addr, err)
	}

	// Shift a no-op in so the second CS edge has no effect.
	if err := s.c.Tx([]byte{byte(Noop), 0}, r); err != nil {
		return 0, fmt.Errorf("max7301 spi: read %s: %w", addr, err)
	}
	if r[0] != cmd {
		return 0, fmt.Errorf("%w: sent 0x%02X, got 0x%02X", ErrEcho, cmd, r[0])
	}
	return r[1], nil
}

// I2C talks to a MAX7300 over a reef-pi I2C bus.
type I2C struct {
	addr byte
	bus  i2c.Bus
}

// NewI2C returns a transport for the MAX7300 at the 7-bit address addr.
func NewI2C(addr byte, bus i2c.Bus) *I2C {
	return &I2C{addr: addr, bus: bus}
}

func (d *I2C) String() string { return fmt.Sprintf("max7300-i2c(0x%02X)", d.addr) }

// WriteRegister writes value into the register at addr.
func (d *I2C) WriteRegister(addr RegisterAddress, value byte) error {
	if err := d.bus.WriteToReg(d.addr, byte(addr), []byte{value}); err != nil {
		return fmt.Errorf("max7300 addr=0x%02X: write %s: %w", d.addr, addr, err)
	}
	return nil
}

// ReadRegister reads the register at addr.
func (d *I2C) ReadRegister(addr RegisterAddress) (byte, error) {
	buf := make([]byte, 1)
	if err := d.bus.ReadFromReg(d.addr, byte(addr), buf); err != nil {
		return 0, fmt.Errorf("max7300 addr=0x%02X: read %s: %w", d.addr, addr, err)
	}
	return buf[0], nil
}
