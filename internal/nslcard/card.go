// Package nslcard implements the card algebra for the game of Set: the
// encoding of the 81 cards as 8-bit values, the is-a-Set predicate, and the
// completion function that gives the unique third card of a Set given any
// two others.
package nslcard

// Card is one of the 81 cards of Set, stored in a byte as an integer 0..80
// whose four base-3 digits are the card's four attribute values.
type Card = uint8

// NumCards is the number of distinct cards in the deck.
const NumCards = 81

// NumAttrs is the number of attributes distinguishing cards (number,
// color, shading, shape).
const NumAttrs = 4

// attrWeight[i] is the place value of attribute i's base-3 digit; attr
// extracts attribute i (0..3) from a card, attribute 0 being the least
// significant digit.
var attrWeight = [NumAttrs]uint8{1, 3, 9, 27}

func attr(c Card, i uint) uint8 {
	return (c / attrWeight[i]) % 3
}

// IsSet reports whether the three given cards form a Set: for every
// attribute, the three values are either all equal or pairwise distinct.
func IsSet(a, b, c Card) bool {
	for i := uint(0); i < NumAttrs; i++ {
		x, y, z := attr(a, i), attr(b, i), attr(c, i)
		if x == y && y == z {
			continue
		}
		if x != y && y != z && x != z {
			continue
		}
		return false
	}
	return true
}

// Complete returns the unique card c such that {a, b, c} is a Set. Per
// attribute, if a and b agree the completion agrees too; otherwise the
// completion is the third residue mod 3 (0+1+2 == 3 == 0 mod 3).
//
// Complete is total: it is defined for any a != b, including encodings
// that are not themselves valid cards, and Complete(a, b) == Complete(b, a).
func Complete(a, b Card) Card {
	var out Card
	for i := uint(0); i < NumAttrs; i++ {
		x, y := int(attr(a, i)), int(attr(b, i))
		var z int
		if x == y {
			z = x
		} else {
			// x and y are distinct digits in {0,1,2}, so 3-x-y is the third.
			z = 3 - x - y
		}
		out += Card(z) * attrWeight[i]
	}
	return out
}
