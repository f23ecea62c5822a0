// registers.go
//
// MAX7301 register map and port-to-register mapping.
//
// Register map (same on the MAX7300):
//
//   0x00        no-op
//   0x04        configuration (shutdown, transition detect)
//   0x06        transition detect mask
//   0x09..0x0F  port mode, 4 ports per register (2 bits each)
//   0x24..0x3F  single port value, port p at 0x20+p (LSB)
//   0x44..0x5F  8 consecutive port values starting at port p, at 0x40+p
//
// Every port belongs to exactly one value group (4, 12, 20, 28) and one
// mode bank. Both modes of pin access use the same mapping.
//
package max7301

import (
	"fmt"
	"strconv"
)

const (
	// MinPort is the lowest port number on the device.
	MinPort = 4
	// MaxPort is the highest port number on the device.
	MaxPort = 31
	// NumPorts is the number of ports on the 36-pin package.
	NumPorts = MaxPort - MinPort + 1

	numBanks   = 7
	groupWidth = 8
)

// RegisterAddress is an address in the MAX7301 register map.
type RegisterAddress uint8

const (
	Noop                 RegisterAddress = 0x00
	Configuration        RegisterAddress = 0x04
	TransitionDetectMask RegisterAddress = 0x06

	bankConfigBase RegisterAddress = 0x09
	singlePortBase RegisterAddress = 0x20
	portRangeBase  RegisterAddress = 0x40
)

// BankConfig returns the mode register for bank (0..6). Bank b holds ports
// 4(b+1) through 4(b+1)+3.
func BankConfig(bank int) (RegisterAddress, error) {
	if bank < 0 || bank >= numBanks {
		return 0, fmt.Errorf("%w: bank %d", ErrInvalidRegister, bank)
	}
	return bankConfigBase + RegisterAddress(bank), nil
}

// SinglePort returns the register holding the value of p in its LSB.
func SinglePort(p Port) RegisterAddress {
	return singlePortBase + RegisterAddress(p)
}

// PortRange returns the register holding the values of p through p+7, with
// port p+k in bit k. Bits for ports above 31 read as 0 and are ignored on
// write.
func PortRange(p Port) RegisterAddress {
	return portRangeBase + RegisterAddress(p)
}

// Valid reports whether a is in the device register map.
func (a RegisterAddress) Valid() bool {
	switch {
	case a == Noop, a == Configuration, a == TransitionDetectMask:
		return true
	case a.isBankConfig():
		return true
	case a >= singlePortBase+MinPort && a <= singlePortBase+MaxPort:
		return true
	case a.isPortRange():
		return true
	}
	return false
}

func (a RegisterAddress) isBankConfig() bool {
	return a >= bankConfigBase && a < bankConfigBase+numBanks
}

func (a RegisterAddress) isPortRange() bool {
	return a >= portRangeBase+MinPort && a <= portRangeBase+MaxPort
}

// fullMask is the set of bits in a that map to real device state.
func (a RegisterAddress) fullMask() byte {
	if a.isPortRange() {
		start := int(a - portRangeBase)
		n := MaxPort - start + 1
		if n >= groupWidth {
			return 0xFF
		}
		return byte(1<<n - 1)
	}
	return 0xFF
}

func (a RegisterAddress) String() string {
	switch {
	case a == Noop:
		return "Noop"
	case a == Configuration:
		return "Configuration"
	case a == TransitionDetectMask:
		return "TransitionDetectMask"
	case a.isBankConfig():
		return "BankConfig(" + strconv.Itoa(int(a-bankConfigBase)) + ")"
	case a >= singlePortBase+MinPort && a <= singlePortBase+MaxPort:
		return "SinglePort(" + strconv.Itoa(int(a-singlePortBase)) + ")"
	case a.isPortRange():
		return "PortRange(" + strconv.Itoa(int(a-portRangeBase)) + ")"
	}
	return fmt.Sprintf("Register(0x%02X)", uint8(a))
}

// Port identifies one GPIO port of the expander. The zero value is not a
// valid port; obtain one from NewPort.
type Port uint8

// NewPort validates n and returns it as a Port.
func NewPort(n int) (Port, error) {
	if n < MinPort || n > MaxPort {
		return 0, fmt.Errorf("%w: %d (want %d..%d)", ErrInvalidPort, n, MinPort, MaxPort)
	}
	return Port(n), nil
}

// MustPort is like NewPort but panics on an invalid port number. It is
// intended for constant port numbers.
func MustPort(n int) Port {
	p, err := NewPort(n)
	if err != nil {
		panic(err)
	}
	return p
}

// AllPorts returns ports 4 through 31 in ascending order.
func AllPorts() []Port {
	ports := make([]Port, 0, NumPorts)
	for n := MinPort; n <= MaxPort; n++ {
		ports = append(ports, Port(n))
	}
	return ports
}

// Valid reports whether p is within 4..31.
func (p Port) Valid() bool {
	return p >= MinPort && p <= MaxPort
}

// Group returns the first port of the 8-port value group containing p.
func (p Port) Group() Port {
	return MinPort + (p-MinPort)/groupWidth*groupWidth
}

// ValueRegister returns the multi-port register carrying the value of p.
func (p Port) ValueRegister() RegisterAddress {
	return PortRange(p.Group())
}

// ValueBit returns the bit position of p within ValueRegister.
func (p Port) ValueBit() uint8 {
	return uint8(p - p.Group())
}

// Bank returns the index of the mode bank holding p.
func (p Port) Bank() int {
	return int(p)/4 - 1
}

// ModeRegister returns the register holding the 2-bit mode field of p.
func (p Port) ModeRegister() RegisterAddress {
	return bankConfigBase + RegisterAddress(p.Bank())
}

// ModeShift returns the bit offset of the mode field of p within ModeRegister.
func (p Port) ModeShift() uint8 {
	return uint8(p%4) * 2
}

func (p Port) String() string {
	return "P" + strconv.Itoa(int(p))
}
