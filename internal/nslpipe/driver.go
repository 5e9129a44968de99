// Package nslpipe implements the pipeline driver (spec.md §4.9): the
// per-size main loop that enumerates input files, expands every NSL they
// contain, and accumulates, seals, and registers the results, plus the
// count/check/compact maintenance modes.
package nslpipe

import (
	"log"
	"os"
	"sort"

	"golang.org/x/xerrors"

	"github.com/tsouche/nsl/internal/nsl"
	"github.com/tsouche/nsl/internal/nslbatch"
	"github.com/tsouche/nsl/internal/nslerr"
	"github.com/tsouche/nsl/internal/nslfile"
	"github.com/tsouche/nsl/internal/nsllog"
	"github.com/tsouche/nsl/internal/nslstate"
	"github.com/tsouche/nsl/internal/nslstore"
)

// MaxTargetSize is the largest NSL size the generator builds (spec.md §1).
const MaxTargetSize = 18

// Config bundles the directories and knobs shared by every driver mode.
type Config struct {
	InputDir  string
	OutputDir string
	Force     bool
	Log       *log.Logger
}

func (c Config) logger() *log.Logger {
	if c.Log != nil {
		return c.Log
	}
	return nsllog.NewStderr("nslpipe")
}

// loadOrRebuild loads the global table for size, or rebuilds it from disk
// when it is absent or --force was given. When a non-empty table is present
// and force is false, it is cross-checked against disk truth (the same
// comparison --check reports via checkTableMatchesDisk): spec.md §7 requires
// that size/unitary refuse to proceed on a table/disk disagreement unless
// the caller explicitly passed --force to rebuild past it.
func loadOrRebuild(dir string, size int, force bool) (*nslstate.GFS, error) {
	if force {
		return nslstate.Rebuild(dir, size)
	}
	g, err := nslstate.Load(dir, size)
	if err != nil {
		return nil, err
	}
	if len(g.Entries) == 0 {
		// Absent table: rebuild from disk, matching spec.md §4.9 step 2
		// ("Load GFS for size s from disk; if absent or --force, rebuild
		// via count").
		return nslstate.Rebuild(dir, size)
	}
	truth, err := nslstate.Rebuild(dir, size)
	if err != nil {
		return nil, err
	}
	for _, f := range checkTableMatchesDisk(g, truth) {
		if !f.OK {
			return nil, nslerr.Wrap(nslerr.StateInconsistent, "global table for size %d disagrees with disk (%s); rerun with --force to rebuild it", size, f.Message)
		}
	}
	return g, nil
}

// RunDefault runs the default pipeline (spec.md §6): seeds, then sizes
// 4..18 in order.
func RunDefault(cfg Config) error {
	log := cfg.logger()
	log.Printf("generating seeds (size 3)")
	if err := RunSeed(cfg); err != nil {
		return xerrors.Errorf("nslpipe: seed stage: %w", err)
	}
	for s := 4; s <= MaxTargetSize; s++ {
		log.Printf("expanding to size %d", s)
		if err := RunSize(cfg, s, 0, false, MaxTargetSize); err != nil {
			return xerrors.Errorf("nslpipe: size %d: %w", s, err)
		}
	}
	return nil
}

// RunSeed generates every size-3 NSL and seals it as the legacy size-3
// batch file (spec.md §4.4, §6): source_size=03, source_batch=000000.
func RunSeed(cfg Config) error {
	gfs, err := loadOrRebuild(cfg.OutputDir, 3, cfg.Force)
	if err != nil {
		return err
	}
	if nslstate.HasIntermediate(cfg.OutputDir, 3, nslfile.SeedSourceSize, nslfile.SeedSourceBatch) && !cfg.Force {
		cfg.logger().Printf("seeds already generated, skipping")
		return nil
	}

	acc := nslbatch.New(cfg.OutputDir, nslfile.SeedSourceSize, 3, gfs)
	acc.SetSourceBatch(nslfile.SeedSourceBatch)

	var kernelErr error
	nsl.Seed(func(l nsl.List) {
		if kernelErr != nil {
			return
		}
		rec := l.ToRecord()
		if err := acc.Push(rec); err != nil {
			kernelErr = err
		}
	})
	if kernelErr != nil {
		return xerrors.Errorf("nslpipe: seed: %w", kernelErr)
	}
	if err := acc.Finalize(); err != nil {
		return xerrors.Errorf("nslpipe: seed: finalize: %w", err)
	}
	return writeIntermediaryFor(cfg.OutputDir, 3, nslfile.SeedSourceSize, nslfile.SeedSourceBatch, acc.TakeSealed())
}

func writeIntermediaryFor(dir string, targetSize, sourceSize, sourceBatch int, sealed []nslbatch.Sealed) error {
	entries := make([]nslstate.IntermediateEntry, len(sealed))
	for i, s := range sealed {
		entries[i] = nslstate.IntermediateEntry{Name: s.Name, Count: s.Count}
	}
	return nslstate.WriteIntermediate(dir, targetSize, sourceSize, sourceBatch, entries)
}

// RunSize processes every not-yet-processed input batch of size
// targetSize-1, producing size-targetSize outputs (spec.md §4.9). If
// hasResume, batches with input batch id below resumeBatch are skipped in
// addition to the normal intermediary-file resumability check.
// ultimateTarget is the size the overall run intends to reach; it bounds
// the kernel's pruning threshold k (spec.md §4.3), which is 0 (no pruning)
// when ultimateTarget <= targetSize.
func RunSize(cfg Config, targetSize, resumeBatch int, hasResume bool, ultimateTarget int) error {
	if targetSize < nsl.MinSize+1 || targetSize > MaxTargetSize {
		return nslerr.Wrap(nslerr.Input, "size %d out of range [%d,%d]", targetSize, nsl.MinSize+1, MaxTargetSize)
	}
	sourceSize := targetSize - 1

	gfs, err := loadOrRebuild(cfg.OutputDir, targetSize, cfg.Force)
	if err != nil {
		return err
	}

	scan, err := nslfile.Scan(cfg.InputDir, sourceSize)
	if err != nil {
		return err
	}
	inputs := append([]nslfile.Name(nil), scan.Entries...)
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].TargetBatch < inputs[j].TargetBatch })

	k := 0
	if ultimateTarget > targetSize {
		k = ultimateTarget - targetSize
	}

	acc := nslbatch.New(cfg.OutputDir, sourceSize, targetSize, gfs)
	log := cfg.logger()

	skip := func(id int) bool {
		if hasResume && id < resumeBatch {
			return true
		}
		return !cfg.Force && nslstate.HasIntermediate(cfg.OutputDir, targetSize, sourceSize, id)
	}
	last := -1
	for idx, in := range inputs {
		if !skip(in.TargetBatch) {
			last = idx
		}
	}

	for idx, in := range inputs {
		inputBatchID := in.TargetBatch
		if skip(inputBatchID) {
			continue
		}

		acc.SetSourceBatch(inputBatchID)
		path := nslfile.Path(cfg.InputDir, in)
		count, err := processInputFile(path, k, acc)
		if err != nil {
			return xerrors.Errorf("nslpipe: processing %s: %w", in.String(), err)
		}
		log.Printf("consumed %s (%d parents) -> size %d accumulator", in.String(), count, targetSize)

		if idx == last {
			if err := acc.Finalize(); err != nil {
				return xerrors.Errorf("nslpipe: finalize at end of size %d input: %w", sourceSize, err)
			}
		}

		if err := writeIntermediaryFor(cfg.OutputDir, targetSize, sourceSize, inputBatchID, acc.TakeSealed()); err != nil {
			return xerrors.Errorf("nslpipe: writing intermediary for size %d batch %d: %w", sourceSize, inputBatchID, err)
		}
	}
	return nil
}

// processInputFile mmaps and validates path, expands every record it
// contains via the kernel, and pushes the children into acc. It returns the
// number of parent records consumed.
func processInputFile(path string, k int, acc *nslbatch.Accumulator) (int, error) {
	arch, err := nslstore.Open(path)
	if err != nil {
		return 0, nslerr.Wrap(nslerr.Corrupt, "open %s: %v", path, err)
	}
	defer arch.Close()

	var pushErr error
	n := arch.Count()
	for i := 0; i < n; i++ {
		v := arch.At(i)
		rec := nsl.Record{N: uint8(v.N()), MaxCard: v.MaxCard(), Chosen: v.Chosen(), Remaining: v.Remaining()}
		parent := nsl.FromRecord(&rec)
		if err := parent.CheckInvariants(); err != nil {
			return i, nslerr.Wrap(nslerr.Invariant, "parent record %d of %s: %v", i, path, err)
		}
		nsl.Expand(&parent, k, func(child nsl.List) {
			if pushErr != nil {
				return
			}
			if err := acc.Push(child.ToRecord()); err != nil {
				pushErr = err
			}
		})
		if pushErr != nil {
			return i, pushErr
		}
	}
	return n, nil
}

// RunUnitary reprocesses exactly input batch sourceBatch of size
// sourceSize, overwriting any outputs it previously produced. It is the
// only canonical way to replace existing outputs (spec.md §4.9).
func RunUnitary(cfg Config, sourceSize, sourceBatch int) error {
	targetSize := sourceSize + 1
	if targetSize < nsl.MinSize+1 || targetSize > MaxTargetSize {
		return nslerr.Wrap(nslerr.Input, "source size %d out of range", sourceSize)
	}

	gfs, err := loadOrRebuild(cfg.OutputDir, targetSize, cfg.Force)
	if err != nil {
		return err
	}

	if nslstate.HasIntermediate(cfg.OutputDir, targetSize, sourceSize, sourceBatch) {
		prior, err := nslstate.ReadIntermediate(cfg.OutputDir, targetSize, sourceSize, sourceBatch)
		if err != nil {
			return err
		}
		toRemove := make(map[nslfile.Name]bool, len(prior))
		for _, e := range prior {
			toRemove[e.Name] = true
		}
		if err := gfs.Remove(toRemove); err != nil {
			return xerrors.Errorf("nslpipe: unitary: removing prior entries: %w", err)
		}
		for name := range toRemove {
			if err := os.Remove(nslfile.Path(cfg.OutputDir, name)); err != nil && !os.IsNotExist(err) {
				return nslerr.Wrap(nslerr.IO, "removing stale output %s: %v", name.String(), err)
			}
		}
	}

	scan, err := nslfile.Scan(cfg.InputDir, sourceSize)
	if err != nil {
		return err
	}
	var in *nslfile.Name
	for i := range scan.Entries {
		if scan.Entries[i].TargetBatch == sourceBatch {
			in = &scan.Entries[i]
			break
		}
	}
	if in == nil {
		return nslerr.Wrap(nslerr.Input, "no input file of size %d with batch %d", sourceSize, sourceBatch)
	}

	acc := nslbatch.New(cfg.OutputDir, sourceSize, targetSize, gfs)
	acc.SetSourceBatch(sourceBatch)
	if _, err := processInputFile(nslfile.Path(cfg.InputDir, *in), 0, acc); err != nil {
		return xerrors.Errorf("nslpipe: unitary: %w", err)
	}
	if err := acc.Finalize(); err != nil {
		return xerrors.Errorf("nslpipe: unitary: finalize: %w", err)
	}
	return writeIntermediaryFor(cfg.OutputDir, targetSize, sourceSize, sourceBatch, acc.TakeSealed())
}
