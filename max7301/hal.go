// hal.go
//
// reef-pi HAL glue for the MAX7301/MAX7300.
//
// This file provides:
//   - pin objects implementing hal.DigitalInputPin and hal.DigitalOutputPin
//   - a driver implementing hal.DigitalInputDriver and hal.DigitalOutputDriver
//
// Each hal pin owns one expander pin from either I/O adapter:
//   - immediate:     Write is a read-modify-write of the group register, Read
//                    is one register read.
//   - transactional: the driver refreshes every group once at startup; after
//                    that Write is a single register write carrying the
//                    cached group, and Read flushes then refreshes its group.
//
package max7301

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/reef-pi/hal"
)

// max7301Pin is one expander port as seen by reef-pi.
type max7301Pin struct {
	driver *max7301Driver
	pin    PortPin
	last   bool
}

func (p *max7301Pin) Name() string { return fmt.Sprintf("MAX7301:%d", p.pin.Port()) }
func (p *max7301Pin) Number() int  { return int(p.pin.Port()) }
func (p *max7301Pin) Close() error { return nil }

func (p *max7301Pin) Read() (bool, error) {
	return p.driver.readPin(p)
}

func (p *max7301Pin) Write(b bool) error {
	return p.driver.writePin(p, b)
}

func (p *max7301Pin) LastState() bool {
	p.driver.mu.Lock()
	defer p.driver.mu.Unlock()
	return p.last
}

// max7301Driver is the reef-pi driver instance for one expander.
type max7301Driver struct {
	ex *Expander

	// transport description (for logs)
	name string

	// Serialize pin operations so a flush and a refresh of one group never
	// interleave with another pin's.
	mu sync.Mutex

	immediate     *ImmediateIO
	transactional *TransactionalIO

	debug bool
	meta  hal.Metadata

	outputs []*max7301Pin
	inputs  []*max7301Pin
}

// open hands the expander to the adapter selected by mode and acquires one
// pin per configured port.
func (d *max7301Driver) open(mode string, outputs, inputs []Port) error {
	var acquire func(Port) (PortPin, error)
	switch mode {
	case modeTransactional:
		d.transactional = d.ex.Transactional()
		acquire = func(p Port) (PortPin, error) { return d.transactional.Pin(p) }
	default:
		d.immediate = d.ex.Immediate()
		acquire = func(p Port) (PortPin, error) { return d.immediate.Pin(p) }
	}

	for _, list := range []struct {
		ports []Port
		pins  *[]*max7301Pin
	}{
		{outputs, &d.outputs},
		{inputs, &d.inputs},
	} {
		for _, port := range list.ports {
			pin, err := acquire(port)
			if err != nil {
				d.Close()
				return fmt.Errorf("max7301 %s: %w", d.name, err)
			}
			*list.pins = append(*list.pins, &max7301Pin{driver: d, pin: pin})
		}
	}

	if d.transactional != nil {
		if err := d.transactional.Refresh(All()); err != nil {
			d.Close()
			return fmt.Errorf("max7301 %s: initial refresh: %w", d.name, err)
		}
		for _, p := range d.outputs {
			high, err := p.pin.IsHigh()
			if err != nil {
				d.Close()
				return fmt.Errorf("max7301 %s: initial state of %s: %w", d.name, p.pin.Port(), err)
			}
			p.last = high
		}
	}
	return nil
}

func (d *max7301Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for _, p := range append(append([]*max7301Pin{}, d.outputs...), d.inputs...) {
		if err := p.pin.Release(); err != nil && !errors.Is(err, ErrReleased) {
			errs = append(errs, err)
		}
	}
	if d.immediate != nil {
		if _, err := d.immediate.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	if d.transactional != nil {
		if err := d.transactional.Flush(All()); err != nil {
			errs = append(errs, err)
		}
		if _, err := d.transactional.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *max7301Driver) Metadata() hal.Metadata {
	if d.meta.Name != "" {
		return d.meta
	}
	return Factory().Metadata()
}

func (d *max7301Driver) DigitalInputPins() []hal.DigitalInputPin {
	out := make([]hal.DigitalInputPin, len(d.inputs))
	for i, p := range d.inputs {
		out[i] = p
	}
	return out
}

func (d *max7301Driver) DigitalOutputPins() []hal.DigitalOutputPin {
	out := make([]hal.DigitalOutputPin, len(d.outputs))
	for i, p := range d.outputs {
		out[i] = p
	}
	return out
}

// DigitalInputPin looks a pin up by port number.
func (d *max7301Driver) DigitalInputPin(n int) (hal.DigitalInputPin, error) {
	for _, p := range d.inputs {
		if p.Number() == n {
			return p, nil
		}
	}
	return nil, fmt.Errorf("max7301 %s: port %d is not an input", d.name, n)
}

// DigitalOutputPin looks a pin up by port number.
func (d *max7301Driver) DigitalOutputPin(n int) (hal.DigitalOutputPin, error) {
	for _, p := range d.outputs {
		if p.Number() == n {
			return p, nil
		}
	}
	return nil, fmt.Errorf("max7301 %s: port %d is not an output", d.name, n)
}

func (d *max7301Driver) Pins(cap hal.Capability) ([]hal.Pin, error) {
	var src []*max7301Pin
	switch cap {
	case hal.DigitalInput:
		src = d.inputs
	case hal.DigitalOutput:
		src = d.outputs
	default:
		return nil, fmt.Errorf("max7301 %s: unsupported capability: %s", d.name, cap.String())
	}
	pins := make([]hal.Pin, 0, len(src))
	for _, p := range src {
		pins = append(pins, p)
	}
	sort.Slice(pins, func(i, j int) bool { return pins[i].Number() < pins[j].Number() })
	return pins, nil
}

// readPin returns the live level of the port.
func (d *max7301Driver) readPin(p *max7301Pin) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.transactional != nil {
		scope := Ports(p.pin.Port())
		if err := d.transactional.Flush(scope); err != nil {
			return false, fmt.Errorf("max7301 %s read %s: %w", d.name, p.pin.Port(), err)
		}
		if err := d.transactional.Refresh(scope); err != nil {
			return false, fmt.Errorf("max7301 %s read %s: %w", d.name, p.pin.Port(), err)
		}
	}

	level, err := p.pin.IsHigh()
	if err != nil {
		return false, fmt.Errorf("max7301 %s read %s: %w", d.name, p.pin.Port(), err)
	}
	if d.debug {
		log.Printf("max7301 %s read %s level=%v", d.name, p.pin.Port(), level)
	}
	return level, nil
}

// writePin drives the port and, in transactional mode, flushes its group.
func (d *max7301Driver) writePin(p *max7301Pin, on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := p.pin.Set(on); err != nil {
		return fmt.Errorf("max7301 %s write %s: %w", d.name, p.pin.Port(), err)
	}
	if d.transactional != nil {
		if err := d.transactional.Flush(Ports(p.pin.Port())); err != nil {
			return fmt.Errorf("max7301 %s write %s: %w", d.name, p.pin.Port(), err)
		}
	}
	p.last = on

	if d.debug {
		log.Printf("max7301 %s write %s on=%v", d.name, p.pin.Port(), on)
	}
	return nil
}
