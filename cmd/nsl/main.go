// nsl enumerates No-Set-Lists: subsets of the 81-card deck of Set that
// contain no three cards forming a Set.
package main

import (
	"fmt"
	"os"

	"github.com/tsouche/nsl/internal/nslerr"
	"github.com/tsouche/nsl/internal/nslflags"
	"github.com/tsouche/nsl/internal/nslpipe"
)

func usage() {
	fmt.Fprintln(os.Stderr, nslflags.Usage("nsl"))
}

func main() {
	if err := main1(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func main1() error {
	opts, err := nslflags.Parse(os.Args[1:])
	if err != nil {
		usage()
		return err
	}
	if opts.ShowVersion {
		fmt.Println(nslflags.Version)
		return nil
	}

	cfg := nslpipe.Config{
		InputDir:  opts.InputDir,
		OutputDir: opts.OutputDir,
		Force:     opts.Force,
	}

	switch opts.Verb {
	case nslflags.VerbDefault:
		return nslpipe.RunDefault(cfg)

	case nslflags.VerbSize:
		return nslpipe.RunSize(cfg, opts.Size, opts.ResumeBatch, opts.HasResumeBatch, nslpipe.MaxTargetSize)

	case nslflags.VerbUnitary:
		if !opts.HasResumeBatch {
			return nslerr.Wrap(nslerr.Input, "--unitary requires a batch argument")
		}
		return nslpipe.RunUnitary(cfg, opts.Size, opts.ResumeBatch)

	case nslflags.VerbCount:
		_, err := nslpipe.RunCount(cfg, opts.Size)
		return err

	case nslflags.VerbCheck:
		findings, err := nslpipe.RunCheck(cfg, opts.Size)
		if err != nil {
			return err
		}
		bad := false
		for _, f := range findings {
			fmt.Println(f.String())
			if !f.OK {
				bad = true
			}
		}
		if bad {
			os.Exit(1)
		}
		return nil

	case nslflags.VerbCompact:
		return nslpipe.RunCompact(cfg, opts.Size, opts.MaxBatch, opts.HasMaxBatch)

	default:
		usage()
		return nslerr.Wrap(nslerr.Input, "unrecognized verb")
	}
}
