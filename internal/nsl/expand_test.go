package nsl

import (
	"testing"

	"github.com/tsouche/nsl/internal/nslcard"
)

func TestExpandScenario1(t *testing.T) {
	// chosen = [0,1,3], max=3. complete(0,1)=2, complete(0,3)=6, complete(1,3)=8.
	// 2 <= max_card so it was never a remaining candidate; 6 and 8 exceed
	// max_card so the parent's remaining excludes them by construction.
	l := NewList([]nslcard.Card{0, 1, 3}, excludeUpTo(4, 80, 6, 8))

	var found *List
	Expand(&l, 0, func(c List) {
		if c.MaxCard() == 4 {
			cp := c
			found = &cp
		}
	})
	if found == nil {
		t.Fatal("no child extended with c=4")
	}

	wantExcluded := map[nslcard.Card]bool{
		6: true, 8: true,
		nslcard.Complete(0, 4): true,
		nslcard.Complete(1, 4): true,
		nslcard.Complete(3, 4): true,
	}
	for _, r := range found.Remaining() {
		if r <= 4 {
			t.Fatalf("remaining element %d not > max_card 4", r)
		}
		if wantExcluded[r] && r > 4 {
			t.Fatalf("card %d should have been removed from child remaining, found in %v", r, found.Remaining())
		}
	}
}

func TestExpandEmptyRemainingYieldsNoChildren(t *testing.T) {
	l := NewList([]nslcard.Card{0, 1, 3}, nil)
	count := 0
	Expand(&l, 0, func(List) { count++ })
	if count != 0 {
		t.Fatalf("expected 0 children from empty remaining, got %d", count)
	}
}

func TestExpandMaxCard80YieldsNoChildren(t *testing.T) {
	// A list whose max_card is 80 cannot have any remaining (I3 requires
	// remaining > max_card, and 80 is the largest card), so Expand must
	// emit zero children regardless of pruning threshold.
	l := NewList([]nslcard.Card{0, 1, 80}, nil)
	count := 0
	Expand(&l, 0, func(List) { count++ })
	if count != 0 {
		t.Fatalf("expected 0 children when max_card=80, got %d", count)
	}
}

func TestExpandPreservesInvariants(t *testing.T) {
	seen := 0
	Seed(func(parent List) {
		if seen >= 200 {
			return
		}
		Expand(&parent, 0, func(child List) {
			seen++
			chosen := child.Chosen()
			for i := 0; i < len(chosen); i++ {
				for j := i + 1; j < len(chosen); j++ {
					for k := j + 1; k < len(chosen); k++ {
						if nslcard.IsSet(chosen[i], chosen[j], chosen[k]) {
							t.Fatalf("child contains a Set: %v", chosen)
						}
					}
				}
			}
			for _, r := range child.Remaining() {
				if r <= child.MaxCard() {
					t.Fatalf("remaining %d not > max_card %d", r, child.MaxCard())
				}
			}
		})
	})
}

// excludeUpTo returns ascending cards in [lo, hi] excluding the given values.
func excludeUpTo(lo, hi int, exclude ...nslcard.Card) []nslcard.Card {
	ex := map[nslcard.Card]bool{}
	for _, e := range exclude {
		ex[e] = true
	}
	var out []nslcard.Card
	for v := lo; v <= hi; v++ {
		if !ex[nslcard.Card(v)] {
			out = append(out, nslcard.Card(v))
		}
	}
	return out
}
