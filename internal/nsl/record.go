package nsl

import "github.com/tsouche/nsl/internal/nslcard"

// Record is the heap-backed, exact-length form of an NSL, used wherever an
// NSL crosses a package boundary that cares about allocation size: the
// batch accumulator and the zero-copy store. Unlike List, Record's slices
// are sized to exactly N and len(Remaining), so a batch of persisted
// Records does not pay the fixed MaxSize/maxRemaining padding tax that the
// stack form accepts in exchange for being copy-cheap in the hot kernel
// loop.
type Record struct {
	N         uint8
	MaxCard   nslcard.Card
	Chosen    []nslcard.Card
	Remaining []nslcard.Card
}

// Equal reports whether two records describe the same NSL.
func (r *Record) Equal(o *Record) bool {
	if r.N != o.N || r.MaxCard != o.MaxCard {
		return false
	}
	if len(r.Chosen) != len(o.Chosen) || len(r.Remaining) != len(o.Remaining) {
		return false
	}
	for i := range r.Chosen {
		if r.Chosen[i] != o.Chosen[i] {
			return false
		}
	}
	for i := range r.Remaining {
		if r.Remaining[i] != o.Remaining[i] {
			return false
		}
	}
	return true
}
