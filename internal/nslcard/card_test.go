package nslcard

import "testing"

func TestCompleteSymmetric(t *testing.T) {
	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			if Complete(Card(a), Card(b)) != Complete(Card(b), Card(a)) {
				t.Fatalf("Complete(%d,%d) != Complete(%d,%d)", a, b, b, a)
			}
		}
	}
}

func TestCompleteIsSet(t *testing.T) {
	for a := 0; a < NumCards; a++ {
		for b := 0; b < NumCards; b++ {
			if a == b {
				continue
			}
			c := Complete(Card(a), Card(b))
			if !IsSet(Card(a), Card(b), c) {
				t.Fatalf("IsSet(%d,%d,complete)=false, complete=%d", a, b, c)
			}
		}
	}
}

func TestIsSetKnown(t *testing.T) {
	cases := []struct {
		a, b, c Card
		want    bool
	}{
		{0, 1, 2, true},  // attr0 takes 0,1,2: all distinct; other attrs all 0
		{0, 0, 0, true},  // degenerate: same card three times, all attrs equal
		{0, 1, 5, false}, // attr1: 0,0,1 -> neither all-same nor all-distinct
	}
	for _, c := range cases {
		if got := IsSet(c.a, c.b, c.c); got != c.want {
			t.Errorf("IsSet(%d,%d,%d) = %v, want %v", c.a, c.b, c.c, got, c.want)
		}
	}
}
