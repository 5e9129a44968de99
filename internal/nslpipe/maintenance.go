package nslpipe

import (
	"fmt"
	"os"
	"sort"

	"golang.org/x/xerrors"

	"github.com/tsouche/nsl/internal/nsl"
	"github.com/tsouche/nsl/internal/nslfile"
	"github.com/tsouche/nsl/internal/nslstate"
	"github.com/tsouche/nsl/internal/nslstore"
)

// CompactThreshold is the target size, in records, of a compacted archive
// (spec.md §4.9: "repack ... into <=10M-entry files").
const CompactThreshold = 10_000_000

// RunCount rebuilds and persists the global table for targetSize from the
// files on disk, and backfills any missing intermediary files grouped by
// each sealed file's recorded source_batch. Idempotent: running it twice in
// a row makes no further changes on the second run (spec.md §8).
func RunCount(cfg Config, targetSize int) (*nslstate.GFS, error) {
	gfs, err := nslstate.Rebuild(cfg.OutputDir, targetSize)
	if err != nil {
		return nil, err
	}
	if err := gfs.Persist(); err != nil {
		return nil, err
	}

	bySourceBatch := map[int][]nslstate.FileEntry{}
	for _, e := range gfs.Entries {
		bySourceBatch[e.Name.SourceBatch] = append(bySourceBatch[e.Name.SourceBatch], e)
	}
	for sb, entries := range bySourceBatch {
		sourceSize := entries[0].Name.SourceSize
		if nslstate.HasIntermediate(cfg.OutputDir, targetSize, sourceSize, sb) {
			continue
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name.TargetBatch < entries[j].Name.TargetBatch })
		ie := make([]nslstate.IntermediateEntry, len(entries))
		for i, e := range entries {
			ie[i] = nslstate.IntermediateEntry{Name: e.Name, Count: e.Count}
		}
		if err := nslstate.WriteIntermediate(cfg.OutputDir, targetSize, sourceSize, sb, ie); err != nil {
			return nil, xerrors.Errorf("nslpipe: count: backfilling intermediary for batch %d: %w", sb, err)
		}
	}
	return gfs, nil
}

// Finding is one line of a --check report.
type Finding struct {
	OK      bool
	Message string
}

func ok(format string, args ...interface{}) Finding {
	return Finding{OK: true, Message: fmt.Sprintf(format, args...)}
}
func bad(format string, args ...interface{}) Finding {
	return Finding{OK: false, Message: fmt.Sprintf(format, args...)}
}

// String renders a finding as "[OK] ..." or "[!!] ...", per spec.md §4.9.
func (f Finding) String() string {
	tag := "[OK]"
	if !f.OK {
		tag = "[!!]"
	}
	return tag + " " + f.Message
}

// RunCheck verifies integrity for targetSize without mutating anything:
// batch-number continuity, agreement between the loaded global table and
// the files on disk, and agreement between intermediary files and the
// outputs they claim to have produced (spec.md §4.9).
func RunCheck(cfg Config, targetSize int) ([]Finding, error) {
	var findings []Finding

	loaded, err := nslstate.Load(cfg.OutputDir, targetSize)
	if err != nil {
		return nil, err
	}
	diskTruth, err := nslstate.Rebuild(cfg.OutputDir, targetSize)
	if err != nil {
		return nil, err
	}

	findings = append(findings, checkContinuity(diskTruth)...)
	findings = append(findings, checkTableMatchesDisk(loaded, diskTruth)...)
	findings = append(findings, checkIntermediaries(cfg, targetSize, diskTruth)...)
	findings = append(findings, checkArchiveIntegrity(cfg, diskTruth)...)

	return findings, nil
}

// checkArchiveIntegrity re-validates every listed file's header and offset
// table directly (nslstore.Archive.Validate), catching bit rot that would
// not show up as a mere count mismatch against the global table.
func checkArchiveIntegrity(cfg Config, truth *nslstate.GFS) []Finding {
	var findings []Finding
	for _, e := range truth.Entries {
		path := nslfile.Path(cfg.OutputDir, e.Name)
		a, err := nslstore.Open(path)
		if err != nil {
			findings = append(findings, bad("%s: failed to open: %v", e.Name.String(), err))
			continue
		}
		err = a.Validate()
		a.Close()
		if err != nil {
			findings = append(findings, bad("%s: failed validation: %v", e.Name.String(), err))
		}
	}
	if len(findings) == 0 {
		findings = append(findings, ok("all %d archives pass header/offset validation", len(truth.Entries)))
	}
	return findings
}

func checkContinuity(truth *nslstate.GFS) []Finding {
	entries := append([]nslstate.FileEntry(nil), truth.Entries...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name.TargetBatch < entries[j].Name.TargetBatch })
	var findings []Finding
	for i, e := range entries {
		if e.Name.TargetBatch != i {
			findings = append(findings, bad("target_batch sequence has a gap or duplicate at position %d: found %d", i, e.Name.TargetBatch))
			return findings
		}
	}
	findings = append(findings, ok("target_batch numbers are contiguous (%d files)", len(entries)))
	return findings
}

func checkTableMatchesDisk(loaded, truth *nslstate.GFS) []Finding {
	var findings []Finding
	truthByName := map[nslfile.Name]nslstate.FileEntry{}
	for _, e := range truth.Entries {
		truthByName[e.Name] = e
	}
	for _, e := range loaded.Entries {
		t, exists := truthByName[e.Name]
		if !exists {
			findings = append(findings, bad("global table lists %s but it is not on disk (or failed validation)", e.Name.String()))
			continue
		}
		if t.Count != e.Count {
			findings = append(findings, bad("%s: table says %d lists, file actually has %d", e.Name.String(), e.Count, t.Count))
		}
	}
	if len(loaded.Entries) != len(truth.Entries) {
		findings = append(findings, bad("global table has %d entries, disk has %d", len(loaded.Entries), len(truth.Entries)))
	}
	if len(findings) == 0 {
		findings = append(findings, ok("global table matches files on disk (%d entries)", len(truth.Entries)))
	}
	return findings
}

func checkIntermediaries(cfg Config, targetSize int, truth *nslstate.GFS) []Finding {
	var findings []Finding
	bySourceBatch := map[int][]nslstate.FileEntry{}
	for _, e := range truth.Entries {
		bySourceBatch[e.Name.SourceBatch] = append(bySourceBatch[e.Name.SourceBatch], e)
	}
	for sb, entries := range bySourceBatch {
		sourceSize := entries[0].Name.SourceSize
		if !nslstate.HasIntermediate(cfg.OutputDir, targetSize, sourceSize, sb) {
			findings = append(findings, bad("source batch %d has sealed outputs but no intermediary file", sb))
			continue
		}
		claimed, err := nslstate.ReadIntermediate(cfg.OutputDir, targetSize, sourceSize, sb)
		if err != nil {
			findings = append(findings, bad("source batch %d: %v", sb, err))
			continue
		}
		claimedCounts := map[nslfile.Name]int{}
		for _, c := range claimed {
			claimedCounts[c.Name] = c.Count
		}
		good := true
		for _, e := range entries {
			if cc, exists := claimedCounts[e.Name]; !exists || cc != e.Count {
				findings = append(findings, bad("source batch %d: intermediary disagrees with disk for %s", sb, e.Name.String()))
				good = false
			}
		}
		if good {
			findings = append(findings, ok("source batch %d: intermediary matches %d output files", sb, len(entries)))
		}
	}
	return findings
}

// RunCompact repacks non-compacted files for targetSize into <=CompactThreshold-entry
// "_compacted" files. If hasMaxBatch, only files whose source_batch is <=
// maxBatch are eligible. Each successor is sealed and registered before its
// source files are deleted (spec.md §4.9).
func RunCompact(cfg Config, targetSize int, maxBatch int, hasMaxBatch bool) error {
	gfs, err := loadOrRebuild(cfg.OutputDir, targetSize, cfg.Force)
	if err != nil {
		return err
	}
	scan, err := nslfile.Scan(cfg.OutputDir, targetSize)
	if err != nil {
		return err
	}

	sourceSize := targetSize - 1
	minSourceBatch := func(names []nslfile.Name) int {
		m := names[0].SourceBatch
		for _, n := range names[1:] {
			if n.SourceBatch < m {
				m = n.SourceBatch
			}
		}
		return m
	}

	var buf []nsl.Record
	var consumed []nslfile.Name

	seal := func() error {
		if len(buf) == 0 {
			return nil
		}
		name := nslfile.Name{
			SourceSize:  sourceSize,
			SourceBatch: minSourceBatch(consumed),
			TargetSize:  targetSize,
			TargetBatch: gfs.NextTargetBatch(),
			Compacted:   true,
		}
		recs := make([]nsl.Record, len(buf))
		copy(recs, buf)
		if err := nslstore.Write(nslfile.Path(cfg.OutputDir, name), targetSize, recs); err != nil {
			return xerrors.Errorf("nslpipe: compact: sealing %s: %w", name.String(), err)
		}
		if err := gfs.RegisterFile(name, len(recs)); err != nil {
			return xerrors.Errorf("nslpipe: compact: registering %s: %w", name.String(), err)
		}
		toRemove := map[nslfile.Name]bool{}
		for _, n := range consumed {
			toRemove[n] = true
		}
		if err := gfs.Remove(toRemove); err != nil {
			return xerrors.Errorf("nslpipe: compact: removing originals from GFS: %w", err)
		}
		for _, n := range consumed {
			if err := os.Remove(nslfile.Path(cfg.OutputDir, n)); err != nil && !os.IsNotExist(err) {
				return xerrors.Errorf("nslpipe: compact: deleting %s: %w", n.String(), err)
			}
		}
		buf = buf[:0]
		consumed = consumed[:0]
		return nil
	}

	for _, n := range scan.Entries {
		if n.Compacted {
			continue
		}
		if hasMaxBatch && n.SourceBatch > maxBatch {
			continue
		}
		a, err := nslstore.Open(nslfile.Path(cfg.OutputDir, n))
		if err != nil {
			return xerrors.Errorf("nslpipe: compact: opening %s: %w", n.String(), err)
		}
		for i := 0; i < a.Count(); i++ {
			buf = append(buf, a.Owned(i))
			if len(buf) >= CompactThreshold {
				consumed = append(consumed, n)
				if err := seal(); err != nil {
					a.Close()
					return err
				}
			}
		}
		a.Close()
		if len(buf) > 0 {
			consumed = append(consumed, n)
		}
	}
	return seal()
}
