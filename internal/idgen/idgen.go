// Package idgen issues identifiers for new spots, floors, schema items,
// special dates and reservations.
package idgen

import "sync/atomic"

// Generator issues unique ids.
type Generator interface {
	Next() int64
}

// Sequence is a monotonically increasing counter safe for concurrent use.
type Sequence struct {
	last atomic.Int64
}

// NewSequence returns a sequence whose first id is start+1.
func NewSequence(start int64) *Sequence {
	s := &Sequence{}
	s.last.Store(start)
	return s
}

// Next returns the next id.
func (s *Sequence) Next() int64 {
	return s.last.Add(1)
}

// Observe raises the floor so that later ids are above id.
func (s *Sequence) Observe(id int64) {
	for {
		cur := s.last.Load()
		if id <= cur || s.last.CompareAndSwap(cur, id) {
			return
		}
	}
}

// Func adapts a function to Generator.
type Func func() int64

// Next calls f.
func (f Func) Next() int64 {
	return f()
}
