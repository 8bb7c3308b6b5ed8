package pileup

import (
	"io"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
)

// BAMSource is the concrete alignment-library collaborator: it opens a BAM
// file and exposes an ordered RecordIterator plus reference metadata, the
// two pieces spec §1 names as external to the core. Region restriction
// against -L/--regions happens one level up, at the Dispatcher, which skips
// dispatching chunks that don't intersect the requested BEDUnion rather
// than narrowing this iterator's underlying byte range.
//
// Grounded on encoding/bamprovider.bamIterator's Scan/Record/Err/Close
// shape (bamprovider.go), with the PAM/columnar-format branch that
// bamprovider.BAMProvider also carried dropped: this driver only ever
// reads BAM.
type BAMSource struct {
	r      *bam.Reader
	closer io.Closer
	header *sam.Header

	lastRec *sam.Record
	lastErr error
}

// OpenBAMSource opens the BAM stream r (with its backing closer, if any).
// concurrency is passed to bam.NewReader for parallel block decompression.
func OpenBAMSource(r io.Reader, closer io.Closer, concurrency int) (*BAMSource, error) {
	reader, err := bam.NewReader(r, concurrency)
	if err != nil {
		return nil, errf(BamReadFailure, err, "opening BAM stream")
	}
	return &BAMSource{r: reader, closer: closer, header: reader.Header()}, nil
}

// Header returns the BAM header, exposing reference-sequence metadata.
func (s *BAMSource) Header() *sam.Header { return s.header }

// Scan implements RecordIterator.
func (s *BAMSource) Scan() bool {
	rec, err := s.r.Read()
	if err != nil {
		s.lastErr = err
		return false
	}
	s.lastRec = rec
	return true
}

// Record implements RecordIterator.
func (s *BAMSource) Record() *sam.Record { return s.lastRec }

// Err implements RecordIterator.
func (s *BAMSource) Err() error {
	if s.lastErr != nil && s.lastErr != io.EOF {
		return errf(BamReadFailure, s.lastErr, "reading BAM records")
	}
	return nil
}

// Close releases the underlying reader and, if present, its backing file.
func (s *BAMSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
