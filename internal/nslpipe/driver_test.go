package nslpipe

import (
	"log"
	"os"
	"testing"

	"github.com/tsouche/nsl/internal/nsl"
	"github.com/tsouche/nsl/internal/nslfile"
	"github.com/tsouche/nsl/internal/nslstate"
	"github.com/tsouche/nsl/internal/nslstore"
)

func testConfig(t *testing.T, dir string) Config {
	t.Helper()
	return Config{
		InputDir:  dir,
		OutputDir: dir,
		Log:       log.New(os.Stderr, "[test] ", 0),
	}
}

// seedSubset returns the first n size-3 NSLs in enumeration order, as a
// quick, deterministic stand-in for the full 58,896-seed set.
func seedSubset(n int) []nsl.Record {
	var out []nsl.Record
	nsl.Seed(func(l nsl.List) {
		if len(out) >= n {
			return
		}
		out = append(out, l.ToRecord())
	})
	return out
}

func wantExpansionCount(records []nsl.Record, k int) int {
	want := 0
	for i := range records {
		parent := nsl.FromRecord(&records[i])
		nsl.Expand(&parent, k, func(nsl.List) { want++ })
	}
	return want
}

func TestRunSizeMatchesDirectKernelExpansion(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	seeds := seedSubset(500)
	seedName := nslfile.Name{SourceSize: nslfile.SeedSourceSize, SourceBatch: nslfile.SeedSourceBatch, TargetSize: 3, TargetBatch: 0}
	if err := nslstore.Write(nslfile.Path(dir, seedName), 3, seeds); err != nil {
		t.Fatalf("seeding input archive: %v", err)
	}
	gfs3 := &nslstate.GFS{Dir: dir, TargetSize: 3}
	if err := gfs3.RegisterFile(seedName, len(seeds)); err != nil {
		t.Fatalf("registering seed archive: %v", err)
	}
	if err := nslstate.WriteIntermediate(dir, 3, nslfile.SeedSourceSize, nslfile.SeedSourceBatch,
		[]nslstate.IntermediateEntry{{Name: seedName, Count: len(seeds)}}); err != nil {
		t.Fatalf("writing seed intermediary: %v", err)
	}

	if err := RunSize(cfg, 4, 0, false, 4); err != nil {
		t.Fatalf("RunSize(4): %v", err)
	}

	gfs4, err := nslstate.Load(dir, 4)
	if err != nil {
		t.Fatalf("loading size-4 table: %v", err)
	}
	got := gfs4.Total()
	want := wantExpansionCount(seeds, 0)
	if got != want {
		t.Fatalf("size-4 total = %d, want %d (direct kernel expansion)", got, want)
	}

	if !nslstate.HasIntermediate(dir, 4, 3, 0) {
		t.Fatal("expected intermediary file for source batch 0 after RunSize")
	}
}

func TestRunSizeIsResumable(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	seeds := seedSubset(200)
	seedName := nslfile.Name{SourceSize: nslfile.SeedSourceSize, SourceBatch: nslfile.SeedSourceBatch, TargetSize: 3, TargetBatch: 0}
	if err := nslstore.Write(nslfile.Path(dir, seedName), 3, seeds); err != nil {
		t.Fatalf("seeding input archive: %v", err)
	}
	gfs3 := &nslstate.GFS{Dir: dir, TargetSize: 3}
	if err := gfs3.RegisterFile(seedName, len(seeds)); err != nil {
		t.Fatalf("registering seed archive: %v", err)
	}
	if err := nslstate.WriteIntermediate(dir, 3, nslfile.SeedSourceSize, nslfile.SeedSourceBatch,
		[]nslstate.IntermediateEntry{{Name: seedName, Count: len(seeds)}}); err != nil {
		t.Fatalf("writing seed intermediary: %v", err)
	}

	if err := RunSize(cfg, 4, 0, false, 4); err != nil {
		t.Fatalf("first RunSize(4): %v", err)
	}
	first, err := nslstate.Load(dir, 4)
	if err != nil {
		t.Fatalf("loading size-4 table: %v", err)
	}
	firstTotal := first.Total()

	// A second run must see the intermediary file already present and do
	// nothing further (spec.md's resumability invariant G3).
	if err := RunSize(cfg, 4, 0, false, 4); err != nil {
		t.Fatalf("second RunSize(4): %v", err)
	}
	second, err := nslstate.Load(dir, 4)
	if err != nil {
		t.Fatalf("reloading size-4 table: %v", err)
	}
	if second.Total() != firstTotal {
		t.Fatalf("re-running RunSize changed the total: %d -> %d", firstTotal, second.Total())
	}
}

func TestRunUnitaryReplacesPriorOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	seeds := seedSubset(100)
	seedName := nslfile.Name{SourceSize: nslfile.SeedSourceSize, SourceBatch: nslfile.SeedSourceBatch, TargetSize: 3, TargetBatch: 0}
	if err := nslstore.Write(nslfile.Path(dir, seedName), 3, seeds); err != nil {
		t.Fatalf("seeding input archive: %v", err)
	}
	gfs3 := &nslstate.GFS{Dir: dir, TargetSize: 3}
	if err := gfs3.RegisterFile(seedName, len(seeds)); err != nil {
		t.Fatalf("registering seed archive: %v", err)
	}

	if err := RunUnitary(cfg, 3, 0); err != nil {
		t.Fatalf("first RunUnitary: %v", err)
	}
	first, err := nslstate.Load(dir, 4)
	if err != nil {
		t.Fatalf("loading size-4 table: %v", err)
	}
	want := wantExpansionCount(seeds, 0)
	if first.Total() != want {
		t.Fatalf("after first RunUnitary, total = %d, want %d", first.Total(), want)
	}

	// Rerunning unitary on the same batch must remove the stale outputs
	// before reprocessing, leaving the total unchanged rather than doubled.
	if err := RunUnitary(cfg, 3, 0); err != nil {
		t.Fatalf("second RunUnitary: %v", err)
	}
	second, err := nslstate.Load(dir, 4)
	if err != nil {
		t.Fatalf("reloading size-4 table: %v", err)
	}
	if second.Total() != want {
		t.Fatalf("after second RunUnitary, total = %d, want %d (no duplication)", second.Total(), want)
	}
}
