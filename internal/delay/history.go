package delay

import (
	"fmt"
	"sort"
)

// Record is a value captured at a point in simulated time.
type Record[T any] struct {
	Time  float64
	Value T
}

// History is an append-only sequence of timestamped records, prunable from
// the head. Timestamps are strictly increasing. Every record keeps a stable
// sequence number that survives pruning, so "N ticks ago" lookups stay exact
// after old entries are dropped.
type History[T any] struct {
	recs []Record[T]
	base uint64 // sequence number of recs[0]
}

// Append adds a record at time t, which must exceed the newest timestamp.
func (h *History[T]) Append(t float64, v T) error {
	if n := len(h.recs); n > 0 && t <= h.recs[n-1].Time {
		return fmt.Errorf("delay: timestamp %v not after %v", t, h.recs[n-1].Time)
	}
	h.recs = append(h.recs, Record[T]{Time: t, Value: v})
	return nil
}

// Len returns the number of retained records.
func (h *History[T]) Len() int { return len(h.recs) }

// Earliest returns the oldest retained record.
func (h *History[T]) Earliest() Record[T] { return h.recs[0] }

// Latest returns the newest record.
func (h *History[T]) Latest() Record[T] { return h.recs[len(h.recs)-1] }

// LastSeq returns the sequence number of the newest record.
func (h *History[T]) LastSeq() uint64 { return h.base + uint64(len(h.recs)) - 1 }

// At returns the record with the given sequence number, clamped into the
// retained range.
func (h *History[T]) At(seq uint64) Record[T] {
	if seq < h.base {
		seq = h.base
	}
	if last := h.LastSeq(); seq > last {
		seq = last
	}
	return h.recs[seq-h.base]
}

// Before returns the newest record with Time <= t and its sequence number.
// If t precedes the earliest record, the earliest is returned with ok=false.
func (h *History[T]) Before(t float64) (Record[T], uint64, bool) {
	// First index with Time > t; the record before it is the answer.
	i := sort.Search(len(h.recs), func(i int) bool { return h.recs[i].Time > t })
	if i == 0 {
		return h.recs[0], h.base, false
	}
	return h.recs[i-1], h.base + uint64(i-1), true
}

// PruneTo drops records from the head until at most keep remain.
func (h *History[T]) PruneTo(keep int) {
	if drop := len(h.recs) - keep; drop > 0 {
		h.recs = h.recs[drop:]
		h.base += uint64(drop)
	}
}

// Reset discards all records and restarts sequence numbering.
func (h *History[T]) Reset() {
	h.recs = h.recs[:0]
	h.base = 0
}
