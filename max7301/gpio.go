package max7301

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
)

// ErrNotImplemented is returned by GPIOPin.PWM.
var ErrNotImplemented = errors.New("max7301: not implemented")

// GPIOPin exposes a PortPin as a periph gpio.PinIO so expander ports can be
// handed to periph device drivers. Wrapping a TransactionalPin keeps its
// semantics: Out and Read touch the cache and the owner refreshes and flushes.
type GPIOPin struct {
	pin  PortPin
	name string

	mu   sync.Mutex
	mode PortMode
}

// NewGPIOPin wraps p. The port mode is not known until In or Out is called.
func NewGPIOPin(p PortPin) *GPIOPin {
	return &GPIOPin{pin: p, name: "MAX7301_" + p.Port().String()}
}

func (g *GPIOPin) String() string { return g.name }

// RegisterGPIO wraps pins and adds them to the periph gpio registry, where
// they can be found by name with gpioreg.ByName. On error the pins registered
// so far are removed again.
func RegisterGPIO(pins ...PortPin) ([]*GPIOPin, error) {
	out := make([]*GPIOPin, 0, len(pins))
	for _, p := range pins {
		g := NewGPIOPin(p)
		if err := gpioreg.Register(g); err != nil {
			UnregisterGPIO(out...)
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// UnregisterGPIO removes pins added by RegisterGPIO.
func UnregisterGPIO(pins ...*GPIOPin) {
	for _, g := range pins {
		_ = gpioreg.Unregister(g.Name())
	}
}

// Name returns "MAX7301_P<n>".
func (g *GPIOPin) Name() string { return g.name }

// Number returns the expander port number.
func (g *GPIOPin) Number() int { return int(g.pin.Port()) }

func (g *GPIOPin) Function() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case g.mode == Output:
		return "Out"
	case g.mode.IsInput():
		return "In"
	}
	return ""
}

// Halt is a no-op.
func (g *GPIOPin) Halt() error { return nil }

// In switches the port to input. The device has pull-ups but no pull-downs
// and no per-port edge detection.
func (g *GPIOPin) In(pull gpio.Pull, edge gpio.Edge) error {
	if edge != gpio.NoEdge {
		return fmt.Errorf("max7301: %s: edge detection not supported", g.name)
	}
	var m PortMode
	switch pull {
	case gpio.PullUp:
		m = InputPullup
	case gpio.Float, gpio.PullNoChange:
		m = InputFloating
	default:
		return fmt.Errorf("max7301: %s: pull %s not supported", g.name, pull)
	}
	return g.setMode(m)
}

// Read returns the port level. Errors are logged and read as Low.
func (g *GPIOPin) Read() gpio.Level {
	high, err := g.pin.IsHigh()
	if err != nil {
		log.Println(err)
		return gpio.Low
	}
	return gpio.Level(high)
}

// WaitForEdge always returns false. The transition interrupt covers the
// whole device, not one port.
func (g *GPIOPin) WaitForEdge(timeout time.Duration) bool {
	return false
}

func (g *GPIOPin) Pull() gpio.Pull {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mode == InputPullup {
		return gpio.PullUp
	}
	return gpio.Float
}

func (g *GPIOPin) DefaultPull() gpio.Pull { return gpio.Float }

// Out switches the port to output on first use and sets its level.
func (g *GPIOPin) Out(l gpio.Level) error {
	if err := g.setMode(Output); err != nil {
		return err
	}
	return g.pin.Set(bool(l))
}

func (g *GPIOPin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return ErrNotImplemented
}

func (g *GPIOPin) setMode(m PortMode) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mode == m {
		return nil
	}
	if err := g.pin.SetMode(m); err != nil {
		return err
	}
	g.mode = m
	return nil
}

var _ gpio.PinIO = &GPIOPin{}
