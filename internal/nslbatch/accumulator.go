// Package nslbatch implements the batch accumulator (spec.md §4.5): an
// in-memory buffer of produced NSL records that spills to disk once it
// reaches a threshold, sealing one archive file per spill via
// internal/nslstore and registering it in internal/nslstate's global file
// state.
package nslbatch

import (
	"golang.org/x/xerrors"

	"github.com/tsouche/nsl/internal/nsl"
	"github.com/tsouche/nsl/internal/nslfile"
	"github.com/tsouche/nsl/internal/nslstate"
	"github.com/tsouche/nsl/internal/nslstore"
)

// DefaultThreshold is T from spec.md §4.5: the default number of records
// buffered before a flush.
const DefaultThreshold = 20_000_000

// Sealed describes one archive this accumulator flushed to disk.
type Sealed struct {
	Name  nslfile.Name
	Count int
}

// Accumulator buffers heap-form Records produced while expanding one target
// size, and seals them into archive files of up to Threshold records.
type Accumulator struct {
	Dir         string
	SourceSize  int
	TargetSize  int
	Threshold   int
	GFS         *nslstate.GFS
	sourceBatch int // source_batch of the input currently feeding this accumulator

	pending []nsl.Record
	sealed  []Sealed
}

// New returns an Accumulator with DefaultThreshold, ready to accept Push
// calls for records expanded from input size sourceSize into output size
// targetSize.
func New(dir string, sourceSize, targetSize int, gfs *nslstate.GFS) *Accumulator {
	return &Accumulator{
		Dir:        dir,
		SourceSize: sourceSize,
		TargetSize: targetSize,
		Threshold:  DefaultThreshold,
		GFS:        gfs,
	}
}

// SetSourceBatch records which input batch is currently being consumed;
// flushed archives are named with this as their source_batch (spec.md §4.6).
// Changing it mid-accumulation is valid: spec.md §4.9 step 4d mandates that
// a partial buffer carries across an input-batch boundary rather than
// flushing early, so one sealed file's contents may straddle two input
// batches. Flushed files are always named with the source_batch that was
// active at flush time.
func (a *Accumulator) SetSourceBatch(b int) { a.sourceBatch = b }

// Push appends rec to the pending buffer, flushing if the threshold is
// reached.
func (a *Accumulator) Push(rec nsl.Record) error {
	a.pending = append(a.pending, rec)
	if len(a.pending) >= a.Threshold {
		return a.Flush()
	}
	return nil
}

// Flush seals the current pending buffer to one archive file, if non-empty,
// and registers it in GFS. It is a no-op if pending is empty.
//
// Flush is atomic with respect to external observers: nslstore.Write either
// fully seals the archive (temp write + fsync + rename) or leaves no trace,
// and RegisterFile is only called after the archive exists on disk, so the
// sealed file and its GFS entry either both exist or neither does.
func (a *Accumulator) Flush() error {
	if len(a.pending) == 0 {
		return nil
	}
	name := nslfile.Name{
		SourceSize:  a.SourceSize,
		SourceBatch: a.sourceBatch,
		TargetSize:  a.TargetSize,
		TargetBatch: a.GFS.NextTargetBatch(),
	}
	path := nslfile.Path(a.Dir, name)
	if err := nslstore.Write(path, a.TargetSize, a.pending); err != nil {
		return xerrors.Errorf("nslbatch: flush: %w", err)
	}
	count := len(a.pending)
	if err := a.GFS.RegisterFile(name, count); err != nil {
		return xerrors.Errorf("nslbatch: flush: register %s: %w", name.String(), err)
	}
	a.sealed = append(a.sealed, Sealed{Name: name, Count: count})
	a.pending = a.pending[:0]
	return nil
}

// Finalize flushes any remainder. Callers invoke it once, at end of input
// (spec.md §4.9 step 5), never between input batches.
func (a *Accumulator) Finalize() error {
	return a.Flush()
}

// TakeSealed returns and clears the list of archives sealed since the last
// call, for the driver to build an intermediary file from (spec.md §4.8).
func (a *Accumulator) TakeSealed() []Sealed {
	s := a.sealed
	a.sealed = nil
	return s
}
