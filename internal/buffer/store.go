// Package buffer provides the per-channel event buffers shared by the read loop and polling callers.
package buffer

import (
	"sync"

	"github.com/coinflex-exchange/api-connectors/internal/schema"
)

// DefaultCapacity bounds every channel buffer.
const DefaultCapacity = 200

// Store maps a channel to a bounded FIFO of events. A single mutex guards every buffer;
// channel counts are small and each operation is O(1) amortized.
//
// When an append pushes a buffer past capacity, the buffer is compacted to its most recent
// capacity/2 entries. This is a halving policy, not a sliding window: bursty channels lose
// everything older than the newest half at once.
type Store struct {
	mu       sync.Mutex
	capacity int
	buffers  map[schema.Channel][]schema.Event
}

// NewStore creates a store. Capacities below 2 fall back to DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity < 2 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		buffers:  make(map[schema.Channel][]schema.Event),
	}
}

// Capacity returns the per-channel bound.
func (s *Store) Capacity() int { return s.capacity }

// Ensure creates the buffer for ch if it does not exist. It reports whether it created one.
func (s *Store) Ensure(ch schema.Channel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buffers[ch]; ok {
		return false
	}
	s.buffers[ch] = make([]schema.Event, 0, 16)
	return true
}

// Has reports whether a buffer exists for ch.
func (s *Store) Has(ch schema.Channel) bool {
	s.mu.Lock()
	_, ok := s.buffers[ch]
	s.mu.Unlock()
	return ok
}

// Append adds ev to the tail of ch's buffer. Nothing is stored when the buffer does not exist.
// evicted is the number of entries dropped by compaction.
func (s *Store) Append(ch schema.Channel, ev schema.Event) (stored bool, evicted int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.buffers[ch]
	if !ok {
		return false, 0
	}
	buf = append(buf, ev)
	if len(buf) > s.capacity {
		keep := s.capacity / 2
		evicted = len(buf) - keep
		compacted := make([]schema.Event, keep, s.capacity+1)
		copy(compacted, buf[evicted:])
		buf = compacted
	}
	s.buffers[ch] = buf
	return true, evicted
}

// PopOldest removes and returns the head of ch's buffer. It returns false when the buffer
// is missing or empty.
func (s *Store) PopOldest(ch schema.Channel) (schema.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := s.buffers[ch]
	if len(buf) == 0 {
		return schema.Event{}, false
	}
	ev := buf[0]
	buf[0] = schema.Event{}
	s.buffers[ch] = buf[1:]
	return ev, true
}

// Len returns the number of buffered events for ch.
func (s *Store) Len(ch schema.Channel) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffers[ch])
}

// Depths returns a snapshot of every buffer's length.
func (s *Store) Depths() map[schema.Channel]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[schema.Channel]int, len(s.buffers))
	for ch, buf := range s.buffers {
		out[ch] = len(buf)
	}
	return out
}
