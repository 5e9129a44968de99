// Package nslstate implements the Global File State (GFS, spec.md §3, §4.8):
// the on-disk, per-size registry of every sealed batch file, plus the
// per-input-batch intermediary files that make the pipeline resumable.
//
// Following spec.md §9's design note, GFS is treated as a pair of pure
// functions (Load from disk, Rebuild from scratch) plus an append path
// with temp-file-then-rename atomicity; there is no in-memory singleton.
package nslstate

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
	"golang.org/x/xerrors"

	"github.com/tsouche/nsl/internal/nslfile"
	"github.com/tsouche/nsl/internal/nslstore"
)

// FileEntry records one sealed batch file's accounting (spec.md §3).
type FileEntry struct {
	Name       nslfile.Name
	Count      int // nb_lists_in_file
	Cumulative int // cumulative_nb_lists, in canonical (ascending target_batch) order
}

// GFS is the in-memory form of one target size's global file state, backed
// by dir/nsl_{size:02}_global_count.txt.
type GFS struct {
	Dir        string
	TargetSize int
	// Entries is kept sorted ascending by TargetBatch (the canonical order
	// invariants G4 and the cumulative-sum column are defined over).
	Entries []FileEntry
}

// Total returns the sum of every file's record count, i.e. the final
// cumulative total for this size.
func (g *GFS) Total() int {
	if len(g.Entries) == 0 {
		return 0
	}
	return g.Entries[len(g.Entries)-1].Cumulative
}

// NextTargetBatch returns the next unused target_batch identifier.
func (g *GFS) NextTargetBatch() int {
	max := -1
	for _, e := range g.Entries {
		if e.Name.TargetBatch > max {
			max = e.Name.TargetBatch
		}
	}
	return max + 1
}

func tablePath(dir string, size int) string {
	return filepath.Join(dir, nslfile.GlobalTableName(size))
}

// Load reads the on-disk global table for size s, if present. A missing
// table is not an error: it returns an empty GFS, which callers typically
// treat the same as "needs Rebuild".
func Load(dir string, size int) (*GFS, error) {
	g := &GFS{Dir: dir, TargetSize: size}
	path := tablePath(dir, size)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return g, nil
	}
	if err != nil {
		return nil, xerrors.Errorf("nslstate: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		e, err := parseRow(line)
		if err != nil {
			return nil, xerrors.Errorf("nslstate: %s: %w", path, err)
		}
		g.Entries = append(g.Entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, xerrors.Errorf("nslstate: read %s: %w", path, err)
	}
	sort.Slice(g.Entries, func(i, j int) bool { return g.Entries[i].Name.TargetBatch < g.Entries[j].Name.TargetBatch })
	return g, nil
}

// Rebuild reconstructs a GFS for size s from first principles: it scans dir
// for size-s batch files, opens and validates each one (nslstore.Open), and
// recomputes cumulative totals in canonical order. Used by `count` and by
// `size`/`unitary` under --force (spec.md §4.9, §7's state-inconsistency
// handling).
func Rebuild(dir string, size int) (*GFS, error) {
	scan, err := nslfile.Scan(dir, size)
	if err != nil {
		return nil, err
	}
	// Canonical order for cumulative sums is ascending target_batch.
	names := append([]nslfile.Name(nil), scan.Entries...)
	sort.Slice(names, func(i, j int) bool { return names[i].TargetBatch < names[j].TargetBatch })

	g := &GFS{Dir: dir, TargetSize: size}
	cum := 0
	for _, n := range names {
		path := nslfile.Path(dir, n)
		a, err := nslstore.Open(path)
		if err != nil {
			return nil, xerrors.Errorf("nslstate: rebuild: %s: %w", path, err)
		}
		count := a.Count()
		a.Close()
		cum += count
		g.Entries = append(g.Entries, FileEntry{Name: n, Count: count, Cumulative: cum})
	}
	return g, nil
}

// RegisterFile appends a newly sealed file's accounting to g and persists
// the updated global table via temp-file-then-rename (spec.md §4.8's
// atomic-update rule, invariant G1). It is the caller's responsibility to
// have already sealed the archive itself (nslstore.Write) before calling
// RegisterFile: per spec.md's flush atomicity, the file and its GFS entry
// must both exist, or neither does.
func (g *GFS) RegisterFile(n nslfile.Name, count int) error {
	cum := g.Total() + count
	g.Entries = append(g.Entries, FileEntry{Name: n, Count: count, Cumulative: cum})
	return g.save()
}

// Persist writes g's current in-memory entries to disk, recomputing
// nothing. Used after Rebuild (which only computes entries in memory) or
// after a batch of Remove calls.
func (g *GFS) Persist() error {
	return g.save()
}

// Remove deletes every entry whose Name is in names from g, recomputes
// cumulative totals in canonical order, and persists the result. It does
// not touch the underlying files; callers remove the files themselves,
// only after the updated table (without those entries) is safely
// persisted or the replacement entries are already in place, per the
// "successor sealed and registered before originals deleted" ordering of
// spec.md §4.9's compact mode.
func (g *GFS) Remove(names map[nslfile.Name]bool) error {
	kept := g.Entries[:0:0]
	for _, e := range g.Entries {
		if !names[e.Name] {
			kept = append(kept, e)
		}
	}
	g.Entries = kept
	g.recompute()
	return g.save()
}

// recompute resorts Entries ascending by TargetBatch and recomputes
// cumulative totals over that canonical order.
func (g *GFS) recompute() {
	sort.Slice(g.Entries, func(i, j int) bool { return g.Entries[i].Name.TargetBatch < g.Entries[j].Name.TargetBatch })
	cum := 0
	for i := range g.Entries {
		cum += g.Entries[i].Count
		g.Entries[i].Cumulative = cum
	}
}

func (g *GFS) save() error {
	// Rendered descending by target_batch, per spec.md §3/§4.8.
	rows := append([]FileEntry(nil), g.Entries...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name.TargetBatch > rows[j].Name.TargetBatch })

	var sb strings.Builder
	for _, e := range rows {
		fmt.Fprintf(&sb, "%6d %6d | %16d | %12d | %s\n",
			e.Name.SourceBatch, e.Name.TargetBatch, e.Cumulative, e.Count, e.Name.String())
	}
	return atomic.WriteFile(tablePath(g.Dir, g.TargetSize), strings.NewReader(sb.String()))
}

func parseRow(line string) (FileEntry, error) {
	parts := strings.SplitN(line, "|", 4)
	if len(parts) != 4 {
		return FileEntry{}, xerrors.Errorf("malformed global table row: %q", line)
	}
	ids := strings.Fields(parts[0])
	if len(ids) != 2 {
		return FileEntry{}, xerrors.Errorf("malformed global table row identifiers: %q", line)
	}
	sourceBatch, err := strconv.Atoi(ids[0])
	if err != nil {
		return FileEntry{}, xerrors.Errorf("malformed source_batch in row %q: %w", line, err)
	}
	targetBatch, err := strconv.Atoi(ids[1])
	if err != nil {
		return FileEntry{}, xerrors.Errorf("malformed target_batch in row %q: %w", line, err)
	}
	cum, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return FileEntry{}, xerrors.Errorf("malformed cumulative count in row %q: %w", line, err)
	}
	count, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return FileEntry{}, xerrors.Errorf("malformed file count in row %q: %w", line, err)
	}
	filename := strings.TrimSpace(parts[3])
	name, err := nslfile.ParseName(filename)
	if err != nil {
		return FileEntry{}, xerrors.Errorf("malformed filename in row %q: %w", line, err)
	}
	if name.SourceBatch != sourceBatch || name.TargetBatch != targetBatch {
		return FileEntry{}, xerrors.Errorf("row %q: filename batches disagree with listed columns", line)
	}
	return FileEntry{Name: name, Count: count, Cumulative: cum}, nil
}
