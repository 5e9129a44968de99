// Package nslfile implements the canonical batch-file naming scheme and the
// directory scanner that recovers (source_size, source_batch, target_size,
// target_batch) tuples from a directory listing (spec.md §4.6, §6).
package nslfile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"golang.org/x/xerrors"
)

// SeedSourceSize and SeedSourceBatch are the legacy (source_size,
// source_batch) pair used by size-3 seed files, which have no real input
// batch.
const (
	SeedSourceSize  = 3
	SeedSourceBatch = 0
)

// Name identifies one batch file by its (source_size, source_batch,
// target_size, target_batch) coordinates, plus whether it is a compacted
// archive.
type Name struct {
	SourceSize  int
	SourceBatch int
	TargetSize  int
	TargetBatch int
	Compacted   bool
}

// String renders the canonical filename for n, per spec.md §6:
//
//	nsl_{ssz:02}_batch_{sbt:06}_to_{tsz:02}_batch_{tbt:06}.rkyv
//
// with an optional "_compacted" suffix before the extension.
func (n Name) String() string {
	s := fmt.Sprintf("nsl_%02d_batch_%06d_to_%02d_batch_%06d", n.SourceSize, n.SourceBatch, n.TargetSize, n.TargetBatch)
	if n.Compacted {
		s += "_compacted"
	}
	return s + ".rkyv"
}

// nameRE parses the canonical filename format. Ill-formed filenames are
// reported (via Scan's Malformed slice) but never auto-deleted.
var nameRE = regexp.MustCompile(`^nsl_(\d{2})_batch_(\d{6})_to_(\d{2})_batch_(\d{6})(_compacted)?\.rkyv$`)

// ParseName parses a canonical filename (base name only, no directory
// component) into a Name.
func ParseName(base string) (Name, error) {
	m := nameRE.FindStringSubmatch(base)
	if m == nil {
		return Name{}, xerrors.Errorf("nslfile: %q does not match the canonical batch filename pattern", base)
	}
	atoi := func(s string) int {
		v, _ := strconv.Atoi(s)
		return v
	}
	return Name{
		SourceSize:  atoi(m[1]),
		SourceBatch: atoi(m[2]),
		TargetSize:  atoi(m[3]),
		TargetBatch: atoi(m[4]),
		Compacted:   m[5] != "",
	}, nil
}

// GlobalTableName returns the filename of the global count table for target
// size s: nsl_{s:02}_global_count.txt.
func GlobalTableName(s int) string {
	return fmt.Sprintf("nsl_%02d_global_count.txt", s)
}

// IntermediateName returns the filename of the intermediary file recording
// the outputs produced by input batch (sourceSize, sourceBatch):
//
//	nsl_{s:02}_intermediate_count_from_{ssz:02}_{sbt:06}.txt
func IntermediateName(targetSize, sourceSize, sourceBatch int) string {
	return fmt.Sprintf("nsl_%02d_intermediate_count_from_%02d_%06d.txt", targetSize, sourceSize, sourceBatch)
}

// ScanResult is the outcome of scanning a directory for batch files
// targeting a given size.
type ScanResult struct {
	// Entries are well-formed batch files, sorted by (SourceBatch, TargetBatch).
	Entries []Name
	// Malformed holds basenames that looked like they might be batch files
	// (matched the .rkyv extension) but failed to parse.
	Malformed []string
}

// Scan globs dir for files targeting target size s and returns them sorted
// by (source_batch, target_batch), per spec.md §4.6.
func Scan(dir string, targetSize int) (ScanResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ScanResult{}, xerrors.Errorf("nslfile: scan %s: %w", dir, err)
	}
	var res ScanResult
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		base := e.Name()
		if filepath.Ext(base) != ".rkyv" {
			continue
		}
		n, err := ParseName(base)
		if err != nil {
			res.Malformed = append(res.Malformed, base)
			continue
		}
		if n.TargetSize != targetSize {
			continue
		}
		res.Entries = append(res.Entries, n)
	}
	sort.Slice(res.Entries, func(i, j int) bool {
		a, b := res.Entries[i], res.Entries[j]
		if a.SourceBatch != b.SourceBatch {
			return a.SourceBatch < b.SourceBatch
		}
		return a.TargetBatch < b.TargetBatch
	})
	sort.Strings(res.Malformed)
	return res, nil
}

// Path joins dir and n's canonical filename.
func Path(dir string, n Name) string {
	return filepath.Join(dir, n.String())
}
