package nsl

import "github.com/tsouche/nsl/internal/nslcard"

// Expand produces all valid size-(n+1) Lists reachable from parent by
// extending with one of parent's remaining cards. minRemainingAfter is the
// pruning threshold k from spec.md §4.3: a child is discarded unless
// len(child.Remaining()) >= minRemainingAfter. Passing 0 disables pruning.
//
// Children are emitted via emit, in ascending order of the extension card,
// giving deterministic, sorted output. Expand performs no heap allocation
// beyond what emit itself triggers: each candidate child is built as a fresh
// stack value and handed to emit by value, so emit may keep it without it
// being changed by later candidates.
func Expand(parent *List, minRemainingAfter int, emit func(List)) {
	pChosen := parent.Chosen()
	pRemaining := parent.Remaining()

	for ci, c := range pRemaining {
		child := List{
			n:       parent.n + 1,
			maxCard: c,
		}
		copy(child.chosen[:], pChosen)
		child.chosen[parent.n] = c

		// remaining' starts as the elements of parent.remaining strictly
		// greater than c; pRemaining is ascending so this is everything
		// after index ci.
		tail := pRemaining[ci+1:]
		copy(child.remaining[:], tail)
		child.r = uint8(len(tail))

		// For each p in parent.chosen, remove complete(p, c) from
		// remaining' if it is present and > c.
		for _, p := range pChosen {
			d := nslcard.Complete(p, c)
			if d <= c {
				continue
			}
			child.removeRemaining(d)
		}

		if int(child.r) < minRemainingAfter {
			continue
		}

		emit(child)
	}
}

// removeRemaining deletes value v from l.remaining if present, shifting
// subsequent elements left by one. remaining is sorted ascending, so this
// uses a binary search to locate v and a linear shift to close the gap.
func (l *List) removeRemaining(v nslcard.Card) {
	lo, hi := 0, int(l.r)
	for lo < hi {
		mid := (lo + hi) / 2
		if l.remaining[mid] < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo >= int(l.r) || l.remaining[lo] != v {
		return
	}
	copy(l.remaining[lo:l.r-1], l.remaining[lo+1:l.r])
	l.r--
}
