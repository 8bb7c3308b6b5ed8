package pileup

// OutputFormat is the effective format of a chunk's captured external-tool
// output, computed by the Argument Normalizer (see Normalize).
type OutputFormat int

const (
	// Pileup is samtools/bcftools-style text pileup output (no caller
	// stage, neither `-g` nor `-v`).
	Pileup OutputFormat = iota
	// BCF is binary compressed variant-call output.
	BCF
	// UncompressedBCF is binary uncompressed variant-call output.
	UncompressedBCF
	// VCF is text variant-call output.
	VCF
	// GzippedVCF is bgzipped text variant-call output. Not supported by
	// this core; Normalize rejects it before a Recipe would ever be
	// looked up.
	GzippedVCF
)

func (f OutputFormat) String() string {
	switch f {
	case Pileup:
		return "PILEUP"
	case BCF:
		return "BCF"
	case UncompressedBCF:
		return "UNCOMPRESSED_BCF"
	case VCF:
		return "VCF"
	case GzippedVCF:
		return "GZIPPED_VCF"
	default:
		return "UNKNOWN"
	}
}

// headerStripFlag is the flag the strip-header helper subcommand needs for
// each format, so it knows how to locate the end of the header region.
func (f OutputFormat) headerStripFlag() string {
	switch f {
	case BCF:
		return "--bcf"
	case UncompressedBCF:
		return "--ubcf"
	default:
		return "--vcf"
	}
}

// Recipe names, for one OutputFormat, the shell fragments the command-line
// builder (Args.Build) stitches into a chunk's pipeline, and the Go
// function that inverts the spool compression at emit time.
//
// There is no decompress function pointer: the inverse of CompressCmd is the
// Codec value RecipeFor picks for each OutputFormat, keeping all per-format
// knowledge in this file.
type Recipe struct {
	// StripHeaderCmd is the shell fragment that removes a chunk's leading
	// header region from its captured output. Empty for formats that never
	// need it (there are none among the four supported formats: BCF still
	// carries a binary header block bcftools writes to every chunk).
	StripHeaderCmd string
	// CompressCmd is the shell fragment the self-invoked helper runs to
	// spool-compress a chunk's post-strip bytes. Empty means identity.
	CompressCmd string
	// Codec inverts CompressCmd when emitting to the final sink.
	Codec Codec
}

// RecipeFor returns the Recipe for format, self-invoking the binary at
// selfPath, and whether a Recipe exists for format. GzippedVCF has none:
// Normalize rejects it before a Recipe would ever be looked up.
//
// selfPath is threaded in by the caller (RuntimeContext.SelfPath) rather
// than read from package state: recipes were originally built once from a
// package-level table at init time, before cmd/sambamba-pileup had a
// chance to resolve its own executable path, which silently froze every
// shell fragment onto a default that was usually wrong. Building each
// Recipe on demand from an explicit parameter closes that hole.
func RecipeFor(format OutputFormat, selfPath string) (Recipe, bool) {
	switch format {
	case Pileup:
		return Recipe{
			StripHeaderCmd: selfInvoke(selfPath, "strip-bcf-header", Pileup.headerStripFlag()),
			CompressCmd:    selfInvoke(selfPath, "spool-compress"),
			Codec:          SnappyCodec{},
		}, true
	case BCF:
		return Recipe{
			StripHeaderCmd: selfInvoke(selfPath, "strip-bcf-header", BCF.headerStripFlag()),
			CompressCmd:    "",
			Codec:          IdentityCodec{},
		}, true
	case UncompressedBCF:
		return Recipe{
			StripHeaderCmd: selfInvoke(selfPath, "strip-bcf-header", UncompressedBCF.headerStripFlag()),
			CompressCmd:    selfInvoke(selfPath, "spool-compress"),
			Codec:          SnappyCodec{},
		}, true
	case VCF:
		return Recipe{
			StripHeaderCmd: selfInvoke(selfPath, "strip-bcf-header", VCF.headerStripFlag()),
			CompressCmd:    selfInvoke(selfPath, "spool-compress"),
			Codec:          SnappyCodec{},
		}, true
	default:
		return Recipe{}, false
	}
}

// selfInvoke builds the shell fragment that re-executes the binary at
// selfPath as a helper subcommand. Nothing is quoted, the executable path
// included: helper subcommand names and flags are internally generated,
// never user-supplied, and selfPath is inserted as is.
func selfInvoke(selfPath, subcommand string, args ...string) string {
	cmd := selfPath + " " + subcommand
	for _, a := range args {
		cmd += " " + a
	}
	return cmd
}
