package nsl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tsouche/nsl/internal/nslcard"
)

func TestStackHeapRoundTrip(t *testing.T) {
	l := NewList([]nslcard.Card{0, 1, 3}, []nslcard.Card{7, 9, 12})
	rec := l.ToRecord()
	back := FromRecord(&rec)

	if diff := cmp.Diff(l.Chosen(), back.Chosen()); diff != "" {
		t.Errorf("chosen mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(l.Remaining(), back.Remaining()); diff != "" {
		t.Errorf("remaining mismatch (-want +got):\n%s", diff)
	}
	if l.MaxCard() != back.MaxCard() {
		t.Errorf("max_card mismatch: %d vs %d", l.MaxCard(), back.MaxCard())
	}
}

func TestRecordEqual(t *testing.T) {
	a := Record{N: 3, MaxCard: 3, Chosen: []nslcard.Card{0, 1, 3}, Remaining: []nslcard.Card{7, 9}}
	b := Record{N: 3, MaxCard: 3, Chosen: []nslcard.Card{0, 1, 3}, Remaining: []nslcard.Card{7, 9}}
	if !a.Equal(&b) {
		t.Fatal("expected equal records to compare equal")
	}
	b.Remaining[1] = 10
	if a.Equal(&b) {
		t.Fatal("expected differing records to compare unequal")
	}
}
