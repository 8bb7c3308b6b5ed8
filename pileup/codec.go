package pileup

import (
	"io"

	"github.com/golang/snappy"
)

// Codec is the transient compression codec used to spool a chunk's captured
// output between the Worker that produced it and the Orderer that emits it.
// BCF output can be bulky and must be buffered in memory until its turn to
// be emitted; compressing it on the producing side keeps peak RSS down.
//
// Grounded on cmd/bio-bam-sort/sorter/sortshard.go's
// snappy.Encode/snappy.Decode pair, which spools serialized sam.Records the
// same way. The spec's own recipe table names this step "lz4compress"; no
// lz4 library appears anywhere in the retrieval pack, so snappy — already a
// direct dependency of the teacher repo, used for exactly this purpose — is
// the concrete implementation. See DESIGN.md.
type Codec interface {
	// Compress returns src compressed as one block.
	Compress(src []byte) []byte
	// Decompress inverts Compress, writing the decoded bytes to dst.
	Decompress(src []byte, dst io.Writer) error
}

// IdentityCodec implements Codec as a no-op, used by recipes whose Recipe
// has no compression_cmd (e.g. BCF, which is already binary-compact).
type IdentityCodec struct{}

// Compress returns src unmodified.
func (IdentityCodec) Compress(src []byte) []byte { return src }

// Decompress writes src to dst unmodified.
func (IdentityCodec) Decompress(src []byte, dst io.Writer) error {
	_, err := dst.Write(src)
	return err
}

// SpoolCompress reads all of src and writes its snappy-compressed block to
// dst, implementing the self-invoked "spool-compress" helper a Recipe's
// CompressCmd shells out to.
func SpoolCompress(src io.Reader, dst io.Writer) error {
	raw, err := io.ReadAll(src)
	if err != nil {
		return errf(IoFailure, err, "reading spool-compress input")
	}
	_, err = dst.Write(SnappyCodec{}.Compress(raw))
	return err
}

// SpoolDecompress inverts SpoolCompress. It is not wired into any Recipe
// (decompression happens in-process at ordered-emit time, per spec §4.H),
// but is exposed as a subcommand for manually inspecting a spooled chunk.
func SpoolDecompress(src io.Reader, dst io.Writer) error {
	raw, err := io.ReadAll(src)
	if err != nil {
		return errf(IoFailure, err, "reading spool-decompress input")
	}
	return SnappyCodec{}.Decompress(raw, dst)
}

// SnappyCodec implements Codec using block snappy compression.
type SnappyCodec struct{}

// Compress snappy-encodes src into a new block.
func (SnappyCodec) Compress(src []byte) []byte {
	return snappy.Encode(nil, src)
}

// Decompress snappy-decodes src and writes the result to dst.
func (SnappyCodec) Decompress(src []byte, dst io.Writer) error {
	decoded, err := snappy.Decode(nil, src)
	if err != nil {
		return errf(IoFailure, err, "snappy decode failed")
	}
	_, err = dst.Write(decoded)
	return err
}
