package nslbatch

import (
	"testing"

	"github.com/tsouche/nsl/internal/nsl"
	"github.com/tsouche/nsl/internal/nslcard"
	"github.com/tsouche/nsl/internal/nslfile"
	"github.com/tsouche/nsl/internal/nslstate"
	"github.com/tsouche/nsl/internal/nslstore"
)

func rec(maxCard nslcard.Card) nsl.Record {
	return nsl.Record{N: 4, MaxCard: maxCard, Chosen: []nslcard.Card{0, 1, 3, maxCard}, Remaining: nil}
}

func TestAccumulatorFlushesAtThreshold(t *testing.T) {
	dir := t.TempDir()
	gfs := &nslstate.GFS{Dir: dir, TargetSize: 4}
	acc := New(dir, 3, 4, gfs)
	acc.Threshold = 3
	acc.SetSourceBatch(0)

	for i := nslcard.Card(4); i < 4+5; i++ {
		if err := acc.Push(rec(i)); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	if err := acc.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	sealed := acc.TakeSealed()
	if len(sealed) != 2 {
		t.Fatalf("sealed %d files, want 2 (one full at threshold, one partial remainder)", len(sealed))
	}
	if sealed[0].Count != 3 || sealed[1].Count != 2 {
		t.Fatalf("unexpected sealed counts: %+v", sealed)
	}

	if gfs.Total() != 5 {
		t.Fatalf("GFS total = %d, want 5", gfs.Total())
	}

	for _, s := range sealed {
		a, err := nslstore.Open(nslfile.Path(dir, s.Name))
		if err != nil {
			t.Fatalf("Open %s: %v", s.Name, err)
		}
		if a.Count() != s.Count {
			t.Errorf("archive %s has %d records, GFS says %d", s.Name, a.Count(), s.Count)
		}
		a.Close()
	}
}

func TestFinalizeNoOpWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	gfs := &nslstate.GFS{Dir: dir, TargetSize: 4}
	acc := New(dir, 3, 4, gfs)
	if err := acc.Finalize(); err != nil {
		t.Fatalf("Finalize on empty accumulator: %v", err)
	}
	if len(acc.TakeSealed()) != 0 {
		t.Fatal("expected no sealed files from an empty accumulator")
	}
}
