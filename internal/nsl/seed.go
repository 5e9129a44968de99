package nsl

import "github.com/tsouche/nsl/internal/nslcard"

// seedCeiling bounds the largest card of a seed: Seed only produces triples
// with k < seedCeiling.
const seedCeiling = 72

// Seed enumerates the size-3 NSLs whose largest card is below seedCeiling:
// all ascending triples (i,j,k) with 0 <= i < j < k < 72 that do not form a
// Set, with remaining initialized to the cards above k that are not the
// completion of any chosen pair. This yields 58,896 seeds; triples whose
// largest card is 72..80 are not produced.
func Seed(emit func(List)) {
	for i := 0; i < nslcard.NumCards; i++ {
		for j := i + 1; j < nslcard.NumCards; j++ {
			for k := j + 1; k < seedCeiling; k++ {
				a, b, c := nslcard.Card(i), nslcard.Card(j), nslcard.Card(k)
				if nslcard.IsSet(a, b, c) {
					continue
				}
				emit(seedList(a, b, c))
			}
		}
	}
}

func seedList(a, b, c nslcard.Card) List {
	var l List
	l.n = 3
	l.chosen[0], l.chosen[1], l.chosen[2] = a, b, c
	l.maxCard = c

	exclude := [3]nslcard.Card{
		nslcard.Complete(a, b),
		nslcard.Complete(a, c),
		nslcard.Complete(b, c),
	}

	r := uint8(0)
	for v := int(c) + 1; v < nslcard.NumCards; v++ {
		card := nslcard.Card(v)
		if card == exclude[0] || card == exclude[1] || card == exclude[2] {
			continue
		}
		l.remaining[r] = card
		r++
	}
	l.r = r
	return l
}
