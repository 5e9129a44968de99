// Package nslflags parses the CLI surface of spec.md §6 into an exclusive
// Mode selection, following the defaults-and-validators idiom of
// github.com/google/wuffs's cmd/commonflags package (retrieved as this
// repository's reference for CLI option naming), upgraded to
// github.com/spf13/pflag for GNU-style long/short flags.
package nslflags

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/tsouche/nsl/internal/nslerr"
)

// Verb identifies which exclusive mode the CLI was invoked in.
type Verb int

const (
	VerbDefault Verb = iota
	VerbSize
	VerbUnitary
	VerbCount
	VerbCheck
	VerbCompact
)

const (
	InputDirDefault  = "."
	InputDirUsage    = "input directory"
	OutputDirDefault = "."
	OutputDirUsage   = "output directory"
	ForceUsage       = "with count/unitary/size, regenerate global file state before acting"
)

// Version is the CLI's build-info string, matching the pattern of a
// version flag threaded through a command-line tool.
const Version = "nsl/0.1.0"

// Options is the parsed, validated form of the CLI invocation.
type Options struct {
	Verb Verb

	// ShowVersion reports whether --version was given; the caller should
	// print Version and exit before looking at any other field.
	ShowVersion bool

	// Size is the target output size for --size/--count/--check/--compact,
	// or the input size for --unitary.
	Size int
	// ResumeBatch is the optional restart batch for --size, or the required
	// input batch for --unitary.
	ResumeBatch int
	// HasResumeBatch reports whether ResumeBatch was supplied (it is
	// optional for --size, required for --unitary).
	HasResumeBatch bool
	// MaxBatch is the optional source-batch ceiling for --compact.
	MaxBatch    int
	HasMaxBatch bool

	Force     bool
	InputDir  string
	OutputDir string
}

// Parse parses args (typically os.Args[1:]) into Options, applying the
// defaults and mutual-exclusivity rules of spec.md §6. It returns an error
// wrapping nslerr.Input on any malformed or ambiguous invocation.
func Parse(args []string) (Options, error) {
	fs := pflag.NewFlagSet("nsl", pflag.ContinueOnError)

	size := fs.Bool("size", false, "target output size (3..18); optional positional resume batch")
	unitary := fs.Bool("unitary", false, "reprocess exactly one input batch; requires two positional args: size batch")
	count := fs.Bool("count", false, "verify/rebuild global+intermediary tables for a target size")
	check := fs.Bool("check", false, "report integrity for a target size without mutation")
	compact := fs.Bool("compact", false, "consolidate non-compacted files for a target size")
	force := fs.Bool("force", false, ForceUsage)
	version := fs.Bool("version", false, "print the version and exit")
	inputDir := fs.StringP("input", "i", InputDirDefault, InputDirUsage)
	outputDir := fs.StringP("output", "o", OutputDirDefault, OutputDirUsage)

	if err := fs.Parse(args); err != nil {
		return Options{}, nslerr.Wrap(nslerr.Input, "parsing flags: %v", err)
	}

	if *version {
		return Options{ShowVersion: true}, nil
	}

	selected := 0
	for _, b := range []bool{*size, *unitary, *count, *check, *compact} {
		if b {
			selected++
		}
	}
	if selected > 1 {
		return Options{}, nslerr.Wrap(nslerr.Input, "at most one of --size/--unitary/--count/--check/--compact may be given")
	}

	opts := Options{
		Force:     *force,
		InputDir:  *inputDir,
		OutputDir: *outputDir,
	}

	rest := fs.Args()
	nextInt := func(label string) (int, error) {
		if len(rest) == 0 {
			return 0, nslerr.Wrap(nslerr.Input, "missing %s argument", label)
		}
		v, err := strconv.Atoi(rest[0])
		if err != nil {
			return 0, nslerr.Wrap(nslerr.Input, "%s argument %q is not an integer", label, rest[0])
		}
		rest = rest[1:]
		return v, nil
	}

	switch {
	case *size:
		opts.Verb = VerbSize
		s, err := nextInt("size")
		if err != nil {
			return Options{}, err
		}
		opts.Size = s
		if len(rest) > 0 {
			b, err := nextInt("resume batch")
			if err != nil {
				return Options{}, err
			}
			opts.ResumeBatch, opts.HasResumeBatch = b, true
		}
	case *unitary:
		opts.Verb = VerbUnitary
		s, err := nextInt("size")
		if err != nil {
			return Options{}, err
		}
		b, err := nextInt("batch")
		if err != nil {
			return Options{}, err
		}
		opts.Size, opts.ResumeBatch, opts.HasResumeBatch = s, b, true
	case *count:
		opts.Verb = VerbCount
		s, err := nextInt("size")
		if err != nil {
			return Options{}, err
		}
		opts.Size = s
	case *check:
		opts.Verb = VerbCheck
		s, err := nextInt("size")
		if err != nil {
			return Options{}, err
		}
		opts.Size = s
	case *compact:
		opts.Verb = VerbCompact
		s, err := nextInt("size")
		if err != nil {
			return Options{}, err
		}
		opts.Size = s
		if len(rest) > 0 {
			b, err := nextInt("max batch")
			if err != nil {
				return Options{}, err
			}
			opts.MaxBatch, opts.HasMaxBatch = b, true
		}
	default:
		opts.Verb = VerbDefault
	}

	if opts.Verb != VerbDefault {
		if opts.Size < 3 || opts.Size > 18 {
			return Options{}, nslerr.Wrap(nslerr.Input, "size %d out of range [3,18]", opts.Size)
		}
	}

	return opts, nil
}

// Usage returns a short usage string, for --help or error output.
func Usage(prog string) string {
	return fmt.Sprintf(`Usage:
  %s [--size <s> [<b>]] [--unitary <s> <b>] [--count <s>] [--check <s>]
     [--compact <s> [<max_b>]] [--force] [-i <input_dir>] [-o <output_dir>]

No flags runs the default pipeline: seeds (size 3), then sizes 4..18.`, prog)
}
