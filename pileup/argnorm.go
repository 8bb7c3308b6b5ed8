package pileup

import (
	"strings"
)

// excludeUnbundle is the set of leading letters that are never split by
// Unbundle, because bcftools treats them as long-form-looking short flags
// whose case carries meaning (-Ov, -Ob, -Ou, -Oz).
const excludeUnbundle = "O"

// isLowerAlpha reports whether b is an ASCII lowercase letter. Unbundle
// treats only lowercase letters as further short flags to split off; an
// uppercase letter (or digit, or anything else) ends the run and becomes
// the value of the preceding flag, matching bcftools' own short-option
// conventions (lowercase are boolean-ish toggles, uppercase like -O start a
// value).
func isLowerAlpha(b byte) bool { return b >= 'a' && b <= 'z' }

// Unbundle splits any token of the form "-xyzREST", where x,y,z are
// lowercase letters, into "-x", "-y", "-z", "REST" — except tokens whose
// first letter after the dash is in exclude, which are returned unchanged.
// Tokens that are already a bare "-x" (a single character after the dash)
// pass through untouched.
func Unbundle(tokens []string, exclude string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok) < 3 || tok[0] != '-' {
			out = append(out, tok)
			continue
		}
		rest := tok[1:]
		if strings.IndexByte(exclude, rest[0]) >= 0 {
			out = append(out, tok)
			continue
		}
		i := 0
		for i < len(rest) && isLowerAlpha(rest[i]) {
			i++
		}
		if i == 0 {
			out = append(out, tok)
			continue
		}
		for _, c := range rest[:i] {
			out = append(out, "-"+string(c))
		}
		if i < len(rest) {
			out = append(out, rest[i:])
		}
	}
	return out
}

// NormalizedArgs is the Argument Normalizer's output: the two normalized
// argument vectors, the effective OutputFormat they imply, and any
// advisory note that should be surfaced to the user (e.g. a format
// downgrade).
type NormalizedArgs struct {
	PileupArgs []string
	CallerArgs []string
	HasCaller  bool
	Format     OutputFormat
	Note       string
}

func containsFlag(tokens []string, flag string) bool {
	for _, t := range tokens {
		if t == flag {
			return true
		}
	}
	return false
}

func removeFlag(tokens []string, flag string) []string {
	out := tokens[:0:0]
	for _, t := range tokens {
		if t != flag {
			out = append(out, t)
		}
	}
	return out
}

// lastCallerFormat scans normalized caller args for the last occurrence of
// -Ov|-Ob|-Ou|-Oz and returns the format it selects, and whether any such
// flag was present. It also reports whether -Oz specifically was ever
// present, since that's rejected regardless of whether it happened to be
// the last one.
func lastCallerFormat(tokens []string) (format OutputFormat, found bool, sawGzip bool) {
	for _, t := range tokens {
		switch t {
		case "-Ov":
			format, found = VCF, true
		case "-Ob":
			format, found = BCF, true
		case "-Ou":
			format, found = UncompressedBCF, true
		case "-Oz":
			format, found = GzippedVCF, true
			sawGzip = true
		}
	}
	return
}

// Normalize implements the Argument Normalizer (spec §4.A): it unbundles
// short flags, forbids -o on either side, rewrites the pileup-side format
// flags when a caller stage follows, detects the caller-side format, and
// computes the effective OutputFormat.
func Normalize(pileupArgs, callerArgs []string, hasCaller bool) (*NormalizedArgs, error) {
	pileup := Unbundle(pileupArgs, excludeUnbundle)
	caller := Unbundle(callerArgs, excludeUnbundle)

	if bad := findFlag(pileup, "-o"); bad != "" {
		return nil, errf(ArgRejected, nil,
			"forbidden flag %q in --samtools arguments: the pipeline owns final output via -o/--output-filename", bad)
	}
	if bad := findFlag(caller, "-o"); bad != "" {
		return nil, errf(ArgRejected, nil,
			"forbidden flag %q in --bcftools arguments: the pipeline owns final output via -o/--output-filename", bad)
	}

	hasG := containsFlag(pileup, "-g")
	hasV := containsFlag(pileup, "-v")
	hasU := containsFlag(pileup, "-u")
	if hasG && hasV {
		return nil, errf(ArgRejected, nil, "-g and -v are mutually exclusive in --samtools arguments")
	}

	var note string
	if hasCaller {
		pileup = removeFlag(pileup, "-g")
		pileup = removeFlag(pileup, "-v")
		pileup = removeFlag(pileup, "-u")
		pileup = append(pileup, "-g", "-u")
		note = "downgraded pileup output to uncompressed BCF (-gu) for speed: a caller stage follows"
	}

	callerFormat, callerFormatFound, sawGzip := lastCallerFormat(caller)
	if sawGzip {
		return nil, errf(ArgRejected, nil, "gzipped VCF output (-Oz) is not supported")
	}

	var format OutputFormat
	switch {
	case hasCaller:
		if callerFormatFound {
			format = callerFormat
		} else {
			format = VCF // bcftools' own default output format
		}
	case hasG && hasU:
		format = UncompressedBCF
	case hasG:
		format = BCF
	case hasV:
		format = VCF
	default:
		format = Pileup
	}

	return &NormalizedArgs{
		PileupArgs: pileup,
		CallerArgs: caller,
		HasCaller:  hasCaller,
		Format:     format,
		Note:       note,
	}, nil
}

// findFlag returns the first token in tokens exactly equal to flag, or "".
func findFlag(tokens []string, flag string) string {
	for _, t := range tokens {
		if t == flag {
			return t
		}
	}
	return ""
}

// Build assembles the full shell pipeline for one chunk, per spec §4.A:
//
//	<mpileup> mpileup <filename> -l <filename>.bed <norm-pileup-args>
//	  [ | <caller> <norm-caller-args> ]
//	  [ | <strip_header_cmd> ]   (when num != 1)
//	  [ | <compression_cmd> ]    (when Recipe has one)
//
// num is the chunk number; header stripping is skipped only for chunk 1.
// selfPath is the executable path used to re-invoke the binary for the
// recipe's helper subcommands.
func (n *NormalizedArgs) Build(mpileupPath, callerPath, filename string, num int, selfPath string) (string, error) {
	var b strings.Builder
	b.WriteString(shellQuote(mpileupPath))
	b.WriteString(" mpileup ")
	b.WriteString(shellQuote(filename))
	b.WriteString(" -l ")
	b.WriteString(shellQuote(filename + ".bed"))
	for _, a := range n.PileupArgs {
		b.WriteByte(' ')
		b.WriteString(shellQuote(a))
	}
	if n.HasCaller {
		b.WriteString(" | ")
		b.WriteString(shellQuote(callerPath))
		for _, a := range n.CallerArgs {
			b.WriteByte(' ')
			b.WriteString(shellQuote(a))
		}
	}
	recipe, ok := RecipeFor(n.Format, selfPath)
	if !ok {
		return "", errf(ArgRejected, nil, "no recipe for output format %v", n.Format)
	}
	if num != 1 && recipe.StripHeaderCmd != "" {
		b.WriteString(" | ")
		b.WriteString(recipe.StripHeaderCmd)
	}
	if recipe.CompressCmd != "" {
		b.WriteString(" | ")
		b.WriteString(recipe.CompressCmd)
	}
	return b.String(), nil
}

// shellQuote wraps s in single quotes for use inside a `sh -c` command
// line, escaping any embedded single quotes. Chunk-generated paths never
// contain shell metacharacters, but user-supplied --samtools/--bcftools
// arguments may (e.g. -r "chr1:100-200"), so every token is quoted.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
