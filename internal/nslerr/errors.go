// Package nslerr defines the error taxonomy of spec.md §7: five categories
// a driver failure falls into, exposed as sentinel errors that wrap a
// contextual message via golang.org/x/xerrors so callers can classify a
// failure with errors.Is without string matching.
package nslerr

import "golang.org/x/xerrors"

// The five categories of spec.md §7.
var (
	// Input covers bad CLI, missing directories, sizes out of range.
	Input = xerrors.New("input error")
	// IO covers read/map/write failures.
	IO = xerrors.New("I/O error")
	// Corrupt covers archive validation and filename-parse failures.
	Corrupt = xerrors.New("corruption")
	// StateInconsistent covers global-table/disk disagreement.
	StateInconsistent = xerrors.New("state inconsistency")
	// Invariant covers kernel invariant breakage (I1-I4): a programmer
	// error, never swallowed.
	Invariant = xerrors.New("invariant violation")
)

// Wrap annotates err with category, preserving it for errors.Is(err, category).
func Wrap(category error, format string, args ...interface{}) error {
	return xerrors.Errorf(format+": %w", append(args, category)...)
}
