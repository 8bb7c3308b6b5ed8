package pileup

import (
	"github.com/biogo/hts/sam"
	"github.com/grailbio/sambamba/interval"
)

// RuntimeContext is the immutable configuration threaded through the
// Dispatcher and every Worker for one run. Per the design notes (spec.md
// §9), the source this core is modeled on kept tool paths, the Recipe
// table, and the program's own self-invocation path as process-wide
// globals; this reimplementation collects them into one value built once
// at startup instead, mirroring how the teacher repo's own long-lived
// components (e.g. markduplicates.Opts) thread configuration explicitly
// rather than reading package-level state.
type RuntimeContext struct {
	// MpileupPath and CallerPath are the resolved, version-probed paths of
	// the external tools.
	MpileupPath string
	CallerPath  string
	// Args is the normalized argument set shared by every chunk's command
	// line; only the filename and chunk number vary per invocation.
	Args *NormalizedArgs
	// TmpDir is the per-run scratch directory holding FIFOs and BED
	// side-cars.
	TmpDir string
	// Concurrency is the worker pool size, clamped to at least 1.
	Concurrency int
	// Header carries the alignment file's reference metadata into every
	// chunk's BAM writer.
	Header *sam.Header
	// SelfPath is the path used to re-invoke this binary for the recipe
	// helper subcommands (strip-bcf-header, spool-compress). Set once by
	// cmd/sambamba-pileup at startup.
	SelfPath string
	// Regions restricts the Dispatcher to chunks intersecting the
	// -L/--regions BED file, or is nil when no restriction was requested.
	Regions *interval.BEDUnion
}
