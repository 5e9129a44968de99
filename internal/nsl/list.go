// Package nsl implements the No-Set-List (NSL) combinatorial state: the
// stack-allocated hot form used by the expansion kernel, the heap-allocated
// compact form used for serialization, and the kernel itself.
package nsl

import (
	"fmt"

	"github.com/tsouche/nsl/internal/nslcard"
)

// MinSize and MaxSize bound the NSL sizes this package supports, per the
// generator's sizes 3 through 18.
const (
	MinSize = 3
	MaxSize = 18
)

// maxRemaining is a conservative upper bound on len(remaining): at most
// nslcard.NumCards-1 cards can exceed max_card.
const maxRemaining = nslcard.NumCards

// List is the stack-allocated, fixed-capacity form of an NSL. It is
// deliberately a flat value type: the expansion kernel clones a parent's
// List tens of times per call, and a flat array-backed struct is copyable
// with zero heap traffic.
//
// The zero List is not a valid NSL; use NewList or Seed to construct one.
type List struct {
	n         uint8
	r         uint8
	maxCard   nslcard.Card
	chosen    [MaxSize]nslcard.Card
	remaining [maxRemaining]nslcard.Card
}

// NewList builds a List from ascending, distinct chosen cards and an
// ascending remaining-candidates list, both already pruned per invariants
// I1-I4. It panics if the inputs violate the documented invariants; callers
// at the kernel's trust boundary (seed generation, deserialization) are
// expected to have already established them.
func NewList(chosen, remaining []nslcard.Card) List {
	var l List
	if len(chosen) < MinSize || len(chosen) > MaxSize {
		panic(fmt.Sprintf("nsl: chosen length %d out of range [%d,%d]", len(chosen), MinSize, MaxSize))
	}
	if len(remaining) > maxRemaining {
		panic(fmt.Sprintf("nsl: remaining length %d exceeds capacity %d", len(remaining), maxRemaining))
	}
	l.n = uint8(len(chosen))
	copy(l.chosen[:], chosen)
	l.maxCard = chosen[len(chosen)-1]
	l.r = uint8(len(remaining))
	copy(l.remaining[:], remaining)
	if err := l.CheckInvariants(); err != nil {
		panic(err)
	}
	return l
}

// CheckInvariants verifies I1-I4 against l's current contents and returns an
// error describing the first one it finds, rather than panicking. NewList
// panics on this same check because its caller controls the input directly;
// CheckInvariants exists for callers at a trust boundary (heap-form records
// read back from disk) that must fail loudly without crashing the process
// (spec.md §7: invariant violations are never swallowed).
func (l *List) CheckInvariants() error {
	chosen := l.Chosen()
	for i := 1; i < len(chosen); i++ {
		if chosen[i-1] >= chosen[i] {
			return fmt.Errorf("nsl: invariant I1 violated: chosen is not strictly ascending: %v", chosen)
		}
	}
	if len(chosen) > 0 && chosen[len(chosen)-1] >= nslcard.NumCards {
		return fmt.Errorf("nsl: invariant I1 violated: card %d is not a valid card", chosen[len(chosen)-1])
	}
	remaining := l.Remaining()
	for i := 1; i < len(remaining); i++ {
		if remaining[i-1] >= remaining[i] {
			return fmt.Errorf("nsl: remaining is not strictly ascending: %v", remaining)
		}
	}
	if len(remaining) > 0 && remaining[0] <= l.maxCard {
		return fmt.Errorf("nsl: invariant I3 violated: remaining element %d not greater than max_card %d", remaining[0], l.maxCard)
	}
	for i := 0; i < len(chosen); i++ {
		for j := i + 1; j < len(chosen); j++ {
			d := nslcard.Complete(chosen[i], chosen[j])
			for _, r := range remaining {
				if r == d {
					return fmt.Errorf("nsl: invariant I4 violated: %d completes {%d,%d} but is in remaining", d, chosen[i], chosen[j])
				}
			}
		}
	}
	return l.checkNoSet()
}

// checkNoSet verifies invariant I2: no three cards in chosen form a Set.
func (l *List) checkNoSet() error {
	chosen := l.Chosen()
	for i := 0; i < len(chosen); i++ {
		for j := i + 1; j < len(chosen); j++ {
			for k := j + 1; k < len(chosen); k++ {
				if nslcard.IsSet(chosen[i], chosen[j], chosen[k]) {
					return fmt.Errorf("nsl: invariant I2 violated: {%d,%d,%d} form a Set", chosen[i], chosen[j], chosen[k])
				}
			}
		}
	}
	return nil
}

// N returns the number of chosen cards.
func (l *List) N() int { return int(l.n) }

// MaxCard returns the largest chosen card.
func (l *List) MaxCard() nslcard.Card { return l.maxCard }

// Chosen returns the active chosen slice, in ascending order. The returned
// slice aliases the List's internal array and must not be retained past the
// List's lifetime if the List is subsequently mutated in place (List values
// produced by this package are never mutated after construction, so in
// practice the slice is safe to hold as long as the List itself is alive).
func (l *List) Chosen() []nslcard.Card { return l.chosen[:l.n] }

// Remaining returns the active remaining-candidates slice, in ascending
// order. See Chosen for aliasing notes.
func (l *List) Remaining() []nslcard.Card { return l.remaining[:l.r] }

// ToRecord converts the stack form to the heap form used for serialization.
func (l *List) ToRecord() Record {
	r := Record{
		N:         l.n,
		MaxCard:   l.maxCard,
		Chosen:    append([]nslcard.Card(nil), l.Chosen()...),
		Remaining: append([]nslcard.Card(nil), l.Remaining()...),
	}
	return r
}

// FromRecord converts the heap form back to the stack form. It does not
// itself re-validate invariants; nslstore only validates an archive's byte
// layout (offsets, CRC, fixed-prefix lengths), not NSL-domain invariants, so
// callers feeding it archive-read records that the kernel is about to trust
// as expansion parents should call CheckInvariants first.
func FromRecord(r *Record) List {
	var l List
	l.n = r.N
	l.maxCard = r.MaxCard
	copy(l.chosen[:], r.Chosen)
	l.r = uint8(len(r.Remaining))
	copy(l.remaining[:], r.Remaining)
	return l
}
