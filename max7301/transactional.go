// transactional.go
//
// Transactional I/O adapter: pins operate on the write-back cache only, and
// the caller decides when the cache is synchronized with the device.
//
//   Refresh(scope)  one register read per distinct register in scope
//   Flush(scope)    one register write per distinct dirty register in scope
//   Discard(scope)  forget unflushed writes, no bus traffic
//
// Per register:  unknown -refresh-> clean -write-> dirty -flush-> clean
//                dirty -refresh-> ErrDirty, dirty -discard-> unknown
//
// Batches run in ascending register order and stop at the first bus error.
// Registers already done keep their new state, the rest keep the old one, so
// a failed batch can simply be retried.
//
package max7301

import (
	"fmt"
	"log"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Strategy selects how Flush writes a dirty value register that still has
// bits the cache never learned from the device.
type Strategy int

const (
	// Merge reads the register first and keeps the device's value for
	// unknown bits. One read and one write per such register, so ports
	// nobody wrote keep their level.
	Merge Strategy = iota
	// Overwrite writes the shadow byte as-is; unknown bits go out as 0.
	// One write per dirty register. The unknown bits stay unknown.
	Overwrite
)

func (s Strategy) String() string {
	if s == Overwrite {
		return "Overwrite"
	}
	return "Merge"
}

// Scope selects the registers a Refresh, Flush or Discard acts on.
type Scope struct {
	all   bool
	ports []Port
	modes bool
}

// All selects every register the cache holds plus the value registers of all
// live pins.
func All() Scope {
	return Scope{all: true}
}

// Ports selects the registers covering the given ports.
func Ports(ports ...Port) Scope {
	return Scope{ports: ports}
}

// WithModes makes Refresh read mode registers as well as value registers.
// Flush and Discard always cover both.
func (s Scope) WithModes() Scope {
	s.modes = true
	return s
}

// TransactionalIO hands out pins that only touch a write-back cache, and
// synchronizes that cache with the device on request.
type TransactionalIO struct {
	ex       *Expander
	cache    *WriteBackCache
	pins     *registry
	strategy Strategy
}

func newTransactionalIO(ex *Expander) *TransactionalIO {
	return &TransactionalIO{
		ex:    ex,
		cache: newWriteBackCache(),
		pins:  &ex.pins,
	}
}

// SetStrategy selects the flush strategy. The default is Merge.
func (io *TransactionalIO) SetStrategy(s Strategy) {
	io.cache.mu.Lock()
	defer io.cache.mu.Unlock()
	io.strategy = s
}

// Cache exposes the write-back cache for inspection.
func (io *TransactionalIO) Cache() *WriteBackCache {
	return io.cache
}

// Pin creates the handle for p. It fails with ErrPortInUse while another
// handle for p is live.
func (io *TransactionalIO) Pin(p Port) (*TransactionalPin, error) {
	if err := io.pins.acquire(p, io); err != nil {
		return nil, err
	}
	return &TransactionalPin{cache: io.cache, pins: io.pins, port: p}, nil
}

// Release hands the expander back. It fails with ErrPinsOutstanding while
// any pin of this adapter is live. Unflushed writes are dropped with the
// cache.
func (io *TransactionalIO) Release() (*Expander, error) {
	if io.pins.holds(io) {
		return nil, ErrPinsOutstanding
	}
	return io.ex, nil
}

func validatePorts(ports []Port) error {
	for _, p := range ports {
		if !p.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidPort, p)
		}
	}
	return nil
}

// refreshSet returns the deduplicated, ascending registers a refresh of s
// reads. The caller holds io.cache.mu.
func (io *TransactionalIO) refreshSet(s Scope) []RegisterAddress {
	set := make(map[RegisterAddress]struct{})
	add := func(p Port) {
		set[p.ValueRegister()] = struct{}{}
		if s.modes {
			set[p.ModeRegister()] = struct{}{}
		}
	}
	if s.all {
		for _, p := range io.pins.ports(io) {
			add(p)
		}
		for addr := range io.cache.entries {
			if addr.isPortRange() || s.modes {
				set[addr] = struct{}{}
			}
		}
	}
	for _, p := range s.ports {
		add(p)
	}
	addrs := maps.Keys(set)
	slices.Sort(addrs)
	return addrs
}

// flushSet returns the deduplicated, ascending registers a flush or discard
// of s considers. The caller holds io.cache.mu.
func (io *TransactionalIO) flushSet(s Scope) []RegisterAddress {
	if s.all {
		return io.cache.addresses()
	}
	set := make(map[RegisterAddress]struct{})
	for _, p := range s.ports {
		set[p.ValueRegister()] = struct{}{}
		set[p.ModeRegister()] = struct{}{}
	}
	addrs := maps.Keys(set)
	slices.Sort(addrs)
	return addrs
}

// Refresh loads the registers in s from the device, one read per distinct
// register. If any of them holds unflushed writes nothing is read and the
// error wraps ErrDirty; flush or discard first.
func (io *TransactionalIO) Refresh(s Scope) error {
	if err := validatePorts(s.ports); err != nil {
		return err
	}

	io.cache.mu.Lock()
	defer io.cache.mu.Unlock()

	addrs := io.refreshSet(s)
	for _, addr := range addrs {
		if e, ok := io.cache.entries[addr]; ok && e.state == StateDirty {
			return fmt.Errorf("%w: %s", ErrDirty, addr)
		}
	}

	for _, addr := range addrs {
		v, err := io.ex.ReadRegister(addr)
		if err != nil {
			return fmt.Errorf("max7301: refresh %s: %w", addr, err)
		}
		io.cache.markRefreshed(addr, v)
	}

	if io.ex.debugEnabled() {
		log.Printf("max7301 refresh: read %d registers", len(addrs))
	}
	return nil
}

// Flush writes every dirty register in s to the device, one write per
// register, carrying all cached bits of that register. Clean and unknown
// registers are skipped.
//
// A mode register with unknown fields is always read and merged first, since
// 0b00 is not a valid mode. Value registers are merged only under the Merge
// strategy.
func (io *TransactionalIO) Flush(s Scope) error {
	if err := validatePorts(s.ports); err != nil {
		return err
	}

	io.cache.mu.Lock()
	defer io.cache.mu.Unlock()
	io.ex.rmw.Lock()
	defer io.ex.rmw.Unlock()

	var written int
	for _, addr := range io.flushSet(s) {
		e, ok := io.cache.entries[addr]
		if !ok || e.state != StateDirty {
			continue
		}

		full := addr.fullMask()
		v, known := e.value, e.known
		if known&full != full && (addr.isBankConfig() || io.strategy == Merge) {
			cur, err := io.ex.ReadRegister(addr)
			if err != nil {
				return fmt.Errorf("max7301: flush %s: %w", addr, err)
			}
			v = cur&^known | v&known
			known = full
		}
		v &= full

		if err := io.ex.WriteRegister(addr, v); err != nil {
			return fmt.Errorf("max7301: flush %s: %w", addr, err)
		}
		io.cache.markFlushed(addr, v, known)
		written++
	}

	if io.ex.debugEnabled() {
		log.Printf("max7301 flush: wrote %d registers (%s)", written, io.strategy)
	}
	return nil
}

// Discard drops unflushed writes for the registers in s. Those registers
// become unknown and must be refreshed before they can be read again.
func (io *TransactionalIO) Discard(s Scope) error {
	if err := validatePorts(s.ports); err != nil {
		return err
	}

	io.cache.mu.Lock()
	defer io.cache.mu.Unlock()

	for _, addr := range io.flushSet(s) {
		if e, ok := io.cache.entries[addr]; ok && e.state == StateDirty {
			io.cache.markDiscarded(addr)
		}
	}
	return nil
}

// TransactionalPin is a PortPin backed by the write-back cache. It has no
// access to the bus; its operations never cause a transaction.
type TransactionalPin struct {
	cache    *WriteBackCache
	pins     *registry
	port     Port
	released bool
}

var _ PortPin = &TransactionalPin{}

// Port returns the port owned by the pin.
func (p *TransactionalPin) Port() Port { return p.port }

// SetHigh sets the cached level high.
func (p *TransactionalPin) SetHigh() error { return p.Set(true) }

// SetLow sets the cached level low.
func (p *TransactionalPin) SetLow() error { return p.Set(false) }

// Set writes the cached level. The value reaches the device on the next
// Flush covering the port.
func (p *TransactionalPin) Set(high bool) error {
	if err := p.pins.check(&p.released); err != nil {
		return err
	}
	var bit byte
	if high {
		bit = 1
	}
	p.cache.writeField(p.port.ValueRegister(), p.port.ValueBit(), 1, bit)
	return nil
}

// IsHigh returns the cached level. It fails with ErrStale if the level was
// never refreshed or written.
func (p *TransactionalPin) IsHigh() (bool, error) {
	if err := p.pins.check(&p.released); err != nil {
		return false, err
	}
	v, err := p.cache.readField(p.port.ValueRegister(), p.port.ValueBit(), 1)
	return v == 1, err
}

// IsLow is the negation of IsHigh.
func (p *TransactionalPin) IsLow() (bool, error) {
	high, err := p.IsHigh()
	if err != nil {
		return false, err
	}
	return !high, nil
}

// SetMode writes the cached port mode.
func (p *TransactionalPin) SetMode(m PortMode) error {
	if err := p.pins.check(&p.released); err != nil {
		return err
	}
	if !m.valid() {
		return fmt.Errorf("%w: %s", ErrReservedMode, m)
	}
	p.cache.writeField(p.port.ModeRegister(), p.port.ModeShift(), 2, byte(m))
	return nil
}

// Mode returns the cached port mode. Mode registers are only loaded by a
// Refresh with WithModes.
func (p *TransactionalPin) Mode() (PortMode, error) {
	if err := p.pins.check(&p.released); err != nil {
		return 0, err
	}
	v, err := p.cache.readField(p.port.ModeRegister(), p.port.ModeShift(), 2)
	if err != nil {
		return 0, err
	}
	return decodeMode(v)
}

// Release gives the port back to the adapter. Cached writes stay in the
// cache and go out with the next Flush.
func (p *TransactionalPin) Release() error {
	return p.pins.release(p.port, &p.released)
}
