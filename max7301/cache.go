// cache.go
//
// Write-back cache for the transactional adapter.
//
// The cache shadows value registers (PortRange of each group) and mode
// registers (BankConfig). Each register entry carries:
//   - a state tag: unknown (never synchronized), clean, or dirty;
//   - the shadow byte;
//   - known: bits that hold real data (read from the device or written);
//   - dirty: bits written since the last synchronization.
//
// Several ports share one register; their writes all land in the same shadow
// byte and go out together on flush. The cache has no transport and never
// talks to the bus.
//
package max7301

import (
	"fmt"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// EntryState is the synchronization state of one cached register.
type EntryState int

const (
	// StateUnknown: never refreshed, or discarded.
	StateUnknown EntryState = iota
	// StateClean: the known bits match the device.
	StateClean
	// StateDirty: holds writes not yet flushed.
	StateDirty
)

func (s EntryState) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	}
	return "unknown"
}

type cacheEntry struct {
	state EntryState
	value byte
	known byte
	dirty byte
}

// WriteBackCache shadows expander registers for transactional pins.
type WriteBackCache struct {
	mu      sync.Mutex
	entries map[RegisterAddress]*cacheEntry
}

func newWriteBackCache() *WriteBackCache {
	return &WriteBackCache{entries: make(map[RegisterAddress]*cacheEntry)}
}

func (c *WriteBackCache) entry(addr RegisterAddress) *cacheEntry {
	e, ok := c.entries[addr]
	if !ok {
		e = &cacheEntry{}
		c.entries[addr] = e
	}
	return e
}

// readField returns width bits of the shadow of addr at shift. The bits must
// be known, otherwise ErrStale.
func (c *WriteBackCache) readField(addr RegisterAddress, shift, width uint8) (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mask := byte(1<<width-1) << shift
	e, ok := c.entries[addr]
	if !ok || e.state == StateUnknown || e.known&mask != mask {
		return 0, fmt.Errorf("%w: %s", ErrStale, addr)
	}
	return e.value & mask >> shift, nil
}

// writeField sets width bits of the shadow of addr at shift and marks the
// register dirty.
func (c *WriteBackCache) writeField(addr RegisterAddress, shift, width uint8, field byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mask := byte(1<<width-1) << shift
	e := c.entry(addr)
	e.value = e.value&^mask | field<<shift&mask
	e.known |= mask
	e.dirty |= mask
	e.state = StateDirty
}

// State reports the tag of the register entry at addr.
func (c *WriteBackCache) State(addr RegisterAddress) EntryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[addr]; ok {
		return e.state
	}
	return StateUnknown
}

// markRefreshed stores a device read of addr and marks it clean. The caller
// holds c.mu.
func (c *WriteBackCache) markRefreshed(addr RegisterAddress, value byte) {
	e := c.entry(addr)
	mask := addr.fullMask()
	e.value = value & mask
	e.known = mask
	e.dirty = 0
	e.state = StateClean
}

// markFlushed records that value was written to addr. Only the known bits
// are trusted afterwards: a written bit of an input port does not set its
// level. The caller holds c.mu.
func (c *WriteBackCache) markFlushed(addr RegisterAddress, value, known byte) {
	e := c.entry(addr)
	known &= addr.fullMask()
	e.value = value & known
	e.known = known
	e.dirty = 0
	e.state = StateClean
}

// markDiscarded drops the shadow of addr back to unknown. The caller holds
// c.mu.
func (c *WriteBackCache) markDiscarded(addr RegisterAddress) {
	delete(c.entries, addr)
}

// addresses returns the addresses of all entries in ascending order. The
// caller holds c.mu.
func (c *WriteBackCache) addresses() []RegisterAddress {
	addrs := maps.Keys(c.entries)
	slices.Sort(addrs)
	return addrs
}
