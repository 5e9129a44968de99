package nslstate

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
	"golang.org/x/xerrors"

	"github.com/tsouche/nsl/internal/nslfile"
)

// IntermediateEntry is one line of an intermediary file: an output file
// this input batch produced, and how many lists it contributed.
type IntermediateEntry struct {
	Name  nslfile.Name
	Count int
}

func intermediatePath(dir string, targetSize, sourceSize, sourceBatch int) string {
	return filepath.Join(dir, nslfile.IntermediateName(targetSize, sourceSize, sourceBatch))
}

// HasIntermediate reports whether the intermediary file for input batch
// (sourceSize, sourceBatch) exists. Per spec.md's invariant G3, its
// presence is the resumability witness: that input batch's outputs are
// complete and registered.
func HasIntermediate(dir string, targetSize, sourceSize, sourceBatch int) bool {
	_, err := os.Stat(intermediatePath(dir, targetSize, sourceSize, sourceBatch))
	return err == nil
}

var intermediateLineRE = regexp.MustCompile(`^\s*\.\.\.\s*(\d+)\s+lists\s+in\s+(.+)$`)

// WriteIntermediate writes, once, the intermediary file for input batch
// (sourceSize, sourceBatch), listing every output file it produced
// (spec.md §4.8). It must be called only after every one of those output
// files has been sealed and registered in the global table.
func WriteIntermediate(dir string, targetSize, sourceSize, sourceBatch int, entries []IntermediateEntry) error {
	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "   ... %d lists in %s\n", e.Count, e.Name.String())
	}
	return atomic.WriteFile(intermediatePath(dir, targetSize, sourceSize, sourceBatch), strings.NewReader(sb.String()))
}

// ReadIntermediate parses a previously written intermediary file.
func ReadIntermediate(dir string, targetSize, sourceSize, sourceBatch int) ([]IntermediateEntry, error) {
	path := intermediatePath(dir, targetSize, sourceSize, sourceBatch)
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("nslstate: open %s: %w", path, err)
	}
	defer f.Close()

	var out []IntermediateEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := intermediateLineRE.FindStringSubmatch(line)
		if m == nil {
			return nil, xerrors.Errorf("nslstate: malformed intermediary line %q in %s", line, path)
		}
		count, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, xerrors.Errorf("nslstate: %s: %w", path, err)
		}
		name, err := nslfile.ParseName(strings.TrimSpace(m[2]))
		if err != nil {
			return nil, xerrors.Errorf("nslstate: %s: %w", path, err)
		}
		out = append(out, IntermediateEntry{Name: name, Count: count})
	}
	if err := scanner.Err(); err != nil {
		return nil, xerrors.Errorf("nslstate: read %s: %w", path, err)
	}
	return out, nil
}
