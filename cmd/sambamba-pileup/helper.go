package main

import (
	"flag"
	"os"

	"github.com/grailbio/sambamba/pileup"
)

// runHelperSubcommand dispatches the self-invoked helper subcommands a
// Recipe's shell fragments name (spec §4.B): "strip-bcf-header" and
// "spool-compress"/"spool-decompress". These read stdin and write stdout,
// exactly as the recipes assume. They are not part of the core spec, but a
// real binary needs to actually implement what it self-invokes.
func runHelperSubcommand(args []string) (handled bool) {
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "strip-bcf-header":
		mustStripHeader(args[1:])
		return true
	case "spool-compress":
		mustSpoolCompress()
		return true
	case "spool-decompress":
		mustSpoolDecompress()
		return true
	default:
		return false
	}
}

func mustStripHeader(args []string) {
	fs := flag.NewFlagSet("strip-bcf-header", flag.ExitOnError)
	bcf := fs.Bool("bcf", false, "input is BCF (compressed)")
	ubcf := fs.Bool("ubcf", false, "input is uncompressed BCF")
	fs.Bool("vcf", true, "input is VCF text (default)")
	_ = fs.Parse(args)

	format := pileup.VCF
	switch {
	case *bcf:
		format = pileup.BCF
	case *ubcf:
		format = pileup.UncompressedBCF
	}
	if err := pileup.StripHeader(format, os.Stdin, os.Stdout); err != nil {
		fatalHelper(err)
	}
}

func mustSpoolCompress() {
	if err := pileup.SpoolCompress(os.Stdin, os.Stdout); err != nil {
		fatalHelper(err)
	}
}

func mustSpoolDecompress() {
	if err := pileup.SpoolDecompress(os.Stdin, os.Stdout); err != nil {
		fatalHelper(err)
	}
}

func fatalHelper(err error) {
	os.Stderr.WriteString("sambamba-pileup: " + err.Error() + "\n")
	os.Exit(1)
}
