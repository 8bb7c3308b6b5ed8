// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

/*
sambamba-pileup fans a BAM file's covered regions out across a pool of
worker goroutines, each of which streams one chunk through an external
mpileup tool (optionally followed by a variant caller) via a named pipe,
and reassembles the tools' output into a single ordered file.
*/

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/sambamba/interval"
	"github.com/grailbio/sambamba/pileup"
)

// flags is a dedicated FlagSet rather than the package-level flag.CommandLine
// so that an unrecognized flag can be handled per spec §6's contract (usage
// on stderr, exit 0 if no positional inputs were given, error otherwise)
// instead of package flag's default ExitOnError policy, which calls
// os.Exit(2) from inside Parse before this program ever gets a chance to
// inspect the positional arguments.
var flags = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)

var (
	regionsFlag    = flags.String("regions", "", "BED file restricting the region set (-L)")
	outputFlag     = flags.String("output-filename", "", "Final output file; default stdout (-o)")
	tmpDirFlag     = flags.String("tmpdir", os.TempDir(), "Parent directory for the temporary run directory")
	nThreadsFlag   = flags.Int("nthreads", runtime.NumCPU(), "Worker pool size (-t)")
	bufferSizeFlag = flags.Int("buffer-size", pileup.DefaultBufferSize, "Chunker target chunk size in bytes (-b)")
	samtoolsFlag   = flags.String("samtools-path", "samtools", "Path override for the mpileup tool; otherwise resolved via PATH")
	bcftoolsFlag   = flags.String("bcftools-path", "bcftools", "Path override for the caller tool; otherwise resolved via PATH")
)

func init() {
	flags.StringVar(regionsFlag, "L", *regionsFlag, "shorthand for -regions")
	flags.StringVar(outputFlag, "o", *outputFlag, "shorthand for -output-filename")
	flags.IntVar(nThreadsFlag, "t", *nThreadsFlag, "shorthand for -nthreads")
	flags.IntVar(bufferSizeFlag, "b", *bufferSizeFlag, "shorthand for -buffer-size")
	flags.Usage = usage
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [OPTIONS] BAMPATH --samtools ARGS... [--bcftools ARGS...]

Options:
`, os.Args[0])
	flags.PrintDefaults()
}

// splitToolArgs pulls the --samtools and --bcftools trailing argument runs
// out of argv before flags.Parse ever sees them: both consume the remainder
// of the command line up to the next recognized separator, which plain
// package flag cannot express.
func splitToolArgs(argv []string) (before, samtoolsArgs, bcftoolsArgs []string, hasCaller bool) {
	samIdx, bcfIdx := -1, -1
	for i, a := range argv {
		switch a {
		case "--samtools":
			if samIdx < 0 {
				samIdx = i
			}
		case "--bcftools":
			if bcfIdx < 0 {
				bcfIdx = i
			}
		}
	}
	switch {
	case samIdx < 0:
		return argv, nil, nil, false
	case bcfIdx < 0:
		return argv[:samIdx], argv[samIdx+1:], nil, false
	case bcfIdx < samIdx:
		// --bcftools with no --samtools is malformed; treat everything from
		// --bcftools onward as unrecognized flags for flags.Parse to reject.
		return argv, nil, nil, false
	default:
		return argv[:samIdx], argv[samIdx+1 : bcfIdx], argv[bcfIdx+1:], true
	}
}

func main() {
	if runHelperSubcommand(os.Args[1:]) {
		return
	}

	shutdown := grail.Init()
	defer shutdown()

	before, samtoolsArgs, bcftoolsArgs, hasCaller := splitToolArgs(os.Args[1:])
	if err := flags.Parse(before); err != nil {
		// flags.Parse already printed the error and usage() (flags.Usage) to
		// stderr; only the exit code depends on whether any arguments
		// remain after the flag at which parsing stopped.
		if flags.NArg() == 0 {
			os.Exit(0)
		}
		os.Exit(1)
	}

	positional := flags.Args()
	if len(positional) != 1 {
		usage()
		if len(positional) == 0 {
			os.Exit(0)
		}
		os.Exit(1)
	}
	bamPath := positional[0]

	if err := run(bamPath, samtoolsArgs, bcftoolsArgs, hasCaller); err != nil {
		fmt.Fprintf(os.Stderr, "sambamba-pileup: %v\n", err)
		os.Exit(1)
	}
}

func mustSelfPath() string {
	p, err := os.Executable()
	if err != nil {
		return os.Args[0]
	}
	return p
}

func run(bamPath string, samtoolsArgs, bcftoolsArgs []string, hasCaller bool) error {
	ctx := vcontext.Background()

	samtoolsPath, err := probeTool(*samtoolsFlag, "samtools")
	if err != nil {
		return err
	}
	var bcftoolsPath string
	if hasCaller {
		bcftoolsPath, err = probeTool(*bcftoolsFlag, "bcftools")
		if err != nil {
			return err
		}
	}

	norm, err := pileup.Normalize(samtoolsArgs, bcftoolsArgs, hasCaller)
	if err != nil {
		return err
	}
	if norm.Note != "" {
		fmt.Fprintf(os.Stderr, "sambamba-pileup: %s\n", norm.Note)
	}

	bamFile, err := file.Open(ctx, bamPath)
	if err != nil {
		return err
	}
	defer bamFile.Close(ctx)

	source, err := pileup.OpenBAMSource(bamFile.Reader(ctx), nil, runtime.NumCPU())
	if err != nil {
		return err
	}
	defer source.Close()

	var regions *interval.BEDUnion
	if *regionsFlag != "" {
		loaded, err := interval.NewBEDUnionFromPath(*regionsFlag, interval.NewBEDOpts{SAMHeader: source.Header()})
		if err != nil {
			return err
		}
		regions = &loaded
	}

	tmpDir, err := os.MkdirTemp(*tmpDirFlag, "sambamba-fork-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	var sink *os.File
	if *outputFlag == "" {
		sink = os.Stdout
	} else {
		sink, err = os.Create(*outputFlag)
		if err != nil {
			return err
		}
		defer sink.Close()
	}

	rctx := &pileup.RuntimeContext{
		MpileupPath: samtoolsPath,
		CallerPath:  bcftoolsPath,
		Args:        norm,
		TmpDir:      tmpDir,
		Concurrency: *nThreadsFlag,
		Header:      source.Header(),
		SelfPath:    mustSelfPath(),
		Regions:     regions,
	}

	chunker := pileup.NewChunker(source, *bufferSizeFlag)
	disp := pileup.NewDispatcher(rctx, chunker, sink)
	return pileup.RunPool(rctx, disp, rctx.Concurrency)
}
