package max7301

import "errors"

var (
	// ErrInvalidPort signals a port number outside 4..31.
	ErrInvalidPort = errors.New("max7301: invalid port")

	// ErrInvalidRegister signals an address that is not in the device register map.
	ErrInvalidRegister = errors.New("max7301: invalid register address")

	// ErrPortInUse signals that a pin handle for the port is already live.
	ErrPortInUse = errors.New("max7301: port already has a live pin")

	// ErrReleased signals an operation on a pin after Release.
	ErrReleased = errors.New("max7301: pin released")

	// ErrPinsOutstanding signals that an I/O adapter cannot give up its
	// expander while pins are still live.
	ErrPinsOutstanding = errors.New("max7301: pins still live")

	// ErrStale signals a cached read of a port whose register was never
	// refreshed or written.
	ErrStale = errors.New("max7301: cached value unknown, refresh first")

	// ErrDirty signals a refresh of a register that holds unflushed writes.
	ErrDirty = errors.New("max7301: register has unflushed writes")

	// ErrEcho signals that the expander did not echo the requested register
	// address during an SPI read.
	ErrEcho = errors.New("max7301: read echo mismatch")

	// ErrReservedMode signals mode bits 0b00, which the device reserves.
	ErrReservedMode = errors.New("max7301: reserved port mode")
)
