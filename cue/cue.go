// Package cue implements the 16-slot cue point store attached to each
// deck: fixed positions a DJ can jump back to. A Set does no locking of
// its own.
package cue

import "math"

// NumSlots is the number of cue point slots per deck.
const NumSlots = 16

// Unset is the sentinel stored in an empty slot.
const Unset = math.MaxFloat64

// Set is a fixed-size array of cue positions. The zero value has every
// slot set to position 0; NewSet returns one with every slot unset.
type Set struct {
	positions [NumSlots]float64
}

// NewSet returns a Set with every slot unset.
func NewSet() *Set {
	s := &Set{}
	for i := range s.positions {
		s.positions[i] = Unset
	}
	return s
}

// Set records position seconds at label. label must be in
// [0, NumSlots); out-of-range labels are ignored, matching the
// "disable the offending controller binding" policy for malformed
// input rather than panicking on a UI/controller thread.
func (s *Set) Set(label int, position float64) {
	if label < 0 || label >= NumSlots {
		return
	}
	s.positions[label] = position
}

// Unset clears label back to the unset sentinel.
func (s *Set) Unset(label int) {
	if label < 0 || label >= NumSlots {
		return
	}
	s.positions[label] = Unset
}

// Get returns the position stored at label, or Unset if label is
// unset or out of range.
func (s *Set) Get(label int) float64 {
	if label < 0 || label >= NumSlots {
		return Unset
	}
	return s.positions[label]
}

// Prev returns the label and position of the nearest set cue strictly
// before current, and ok=false if none exists.
func (s *Set) Prev(current float64) (label int, position float64, ok bool) {
	best := -math.MaxFloat64
	found := false
	for i, p := range s.positions {
		if p == Unset || p >= current {
			continue
		}
		if p > best {
			best = p
			label = i
			found = true
		}
	}
	return label, best, found
}

// Next returns the label and position of the nearest set cue strictly
// after current, and ok=false if none exists.
func (s *Set) Next(current float64) (label int, position float64, ok bool) {
	best := math.MaxFloat64
	found := false
	for i, p := range s.positions {
		if p == Unset || p <= current {
			continue
		}
		if p < best {
			best = p
			label = i
			found = true
		}
	}
	return label, best, found
}
