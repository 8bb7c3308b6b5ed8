package pileup

import (
	"bufio"
	"encoding/binary"
	"io"
)

// bcfMagic is the 5-byte magic bcftools writes at the start of every BCF
// stream (both compressed and uncompressed), followed by a 4-byte
// little-endian length and that many bytes of VCF-format header text.
var bcfMagic = []byte("BCF\x02\x02")

// StripHeader copies src to dst with the leading header region of format
// removed, implementing the self-invoked strip-bcf-header helper (spec
// §4.B). It recognizes and skips the header only; it does not otherwise
// parse the BCF/VCF body, matching this core's explicit non-goals.
func StripHeader(format OutputFormat, src io.Reader, dst io.Writer) error {
	switch format {
	case BCF, UncompressedBCF:
		return stripBCFHeader(src, dst)
	default:
		return stripVCFHeader(src, dst)
	}
}

// stripVCFHeader drops every leading line beginning with '#' (the VCF
// header convention: "##" meta-lines followed by one "#CHROM..." column
// header line), then copies the remainder verbatim.
func stripVCFHeader(src io.Reader, dst io.Writer) error {
	r := bufio.NewReaderSize(src, 1<<20)
	for {
		peek, err := r.Peek(1)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return errf(IoFailure, err, "reading VCF stream while stripping header")
		}
		if peek[0] != '#' {
			break
		}
		if _, err := r.ReadBytes('\n'); err != nil {
			if err == io.EOF {
				return nil
			}
			return errf(IoFailure, err, "reading VCF header line")
		}
	}
	_, err := io.Copy(dst, r)
	if err != nil {
		return errf(IoFailure, err, "copying VCF body after header strip")
	}
	return nil
}

// stripBCFHeader validates the BCF magic, reads the little-endian header
// length that follows it, discards exactly that many bytes of header text,
// and copies the rest of the stream verbatim.
func stripBCFHeader(src io.Reader, dst io.Writer) error {
	magic := make([]byte, len(bcfMagic))
	if _, err := io.ReadFull(src, magic); err != nil {
		return errf(BamReadFailure, err, "reading BCF magic while stripping header")
	}
	for i, b := range bcfMagic {
		if magic[i] != b {
			return errf(BamReadFailure, nil, "input does not begin with a BCF magic (got %q)", magic)
		}
	}
	var length uint32
	if err := binary.Read(src, binary.LittleEndian, &length); err != nil {
		return errf(BamReadFailure, err, "reading BCF header length")
	}
	if _, err := io.CopyN(io.Discard, src, int64(length)); err != nil {
		return errf(IoFailure, err, "discarding BCF header text")
	}
	if _, err := io.Copy(dst, src); err != nil {
		return errf(IoFailure, err, "copying BCF body after header strip")
	}
	return nil
}
