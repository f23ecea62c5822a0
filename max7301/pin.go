package max7301

import (
	"fmt"
	"sync"
)

// OutputPin is the digital output capability of a port.
type OutputPin interface {
	SetHigh() error
	SetLow() error
}

// InputPin is the digital input capability of a port.
type InputPin interface {
	IsHigh() (bool, error)
	IsLow() (bool, error)
}

// PortPin is a handle owning one port of the expander. ImmediatePin and
// TransactionalPin both implement it, so code driving pins does not depend
// on the access mode.
type PortPin interface {
	OutputPin
	InputPin

	// Set drives the port high or low.
	Set(high bool) error
	// SetMode changes the electrical mode of the port.
	SetMode(m PortMode) error
	// Mode returns the electrical mode of the port.
	Mode() (PortMode, error)
	// Port returns the port owned by the handle.
	Port() Port
	// Release gives the port back to the adapter. The handle is unusable
	// afterwards.
	Release() error
}

// registry tracks which ports have a live handle and which adapter handed it
// out. An Expander owns one, shared by all of its adapters, so a port has at
// most one live handle whatever the access mode.
type registry struct {
	mu    sync.Mutex
	owner [MaxPort + 1]interface{}
}

func (r *registry) acquire(p Port, owner interface{}) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPort, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owner[p] != nil {
		return fmt.Errorf("%w: %s", ErrPortInUse, p)
	}
	r.owner[p] = owner
	return nil
}

// release returns p to the pool and marks the handle released. It fails if
// the handle was already released.
func (r *registry) release(p Port, released *bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if *released {
		return ErrReleased
	}
	*released = true
	r.owner[p] = nil
	return nil
}

func (r *registry) check(released *bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if *released {
		return ErrReleased
	}
	return nil
}

// ports returns the live ports handed out by owner, ascending.
func (r *registry) ports(owner interface{}) []Port {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ports []Port
	for n := MinPort; n <= MaxPort; n++ {
		if r.owner[n] == owner {
			ports = append(ports, Port(n))
		}
	}
	return ports
}

// holds reports whether owner has any live handle.
func (r *registry) holds(owner interface{}) bool {
	return len(r.ports(owner)) > 0
}
