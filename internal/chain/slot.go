// Package chain defines the contracts for the three ancillary loops
// spec.md §2 calls out as "specified only as a contract": SlotSource,
// AccountStream and OracleView. The blockchain RPC client and wire
// decoder that actually implement these against a live chain are out of
// scope (spec.md §1) — this package provides the interfaces plus
// in-process implementations (polling, websocket push) that any RPC
// binding can plug into.
package chain

import "sync"

// SlotSource provides the monotonic current chain slot (spec.md §4,
// component 1). The last received slot is guarded by a mutex so health checks
// and BookBuilder both see a consistent value (spec.md §5).
type SlotSource struct {
	mu   sync.Mutex
	slot uint64
}

// NewSlotSource creates a SlotSource starting at slot 0.
func NewSlotSource() *SlotSource {
	return &SlotSource{}
}

// Current returns the last slot observed.
func (s *SlotSource) Current() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slot
}

// Advance records a newly observed slot. Slots only move forward —
// a lower or equal value is ignored, since the source is defined as
// monotonic (spec.md glossary "Slot").
func (s *SlotSource) Advance(slot uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot > s.slot {
		s.slot = slot
	}
}
