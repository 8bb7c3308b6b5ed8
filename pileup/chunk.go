package pileup

import (
	"github.com/biogo/hts/sam"
)

// DefaultBufferSize is the Chunker's default target chunk size, in
// approximate serialized bytes (spec §6, -b/--buffer-size).
const DefaultBufferSize = 64 << 20

// OverlapSlack is the number of bases of read-position slack a chunk
// extends beyond [start,end) on both sides, per the Chunk data model
// (spec §3): "a finite ordered sequence of reads covering
// [start - Δ, end + Δ]". The external mpileup/caller tools filter by the
// BED region written by the Dispatcher, so this overlap is discarded
// downstream; it exists purely so a read whose alignment spans a chunk
// boundary is fully visible to whichever chunk needs it.
const OverlapSlack = 1000

// RecordIterator is the ordered-read-iterator half of the alignment
// library collaborator the Chunker consumes (spec §1). Implementations
// must return records for a single BAM file in non-decreasing
// (RefID, Pos) order.
type RecordIterator interface {
	// Scan advances to the next record, returning false at EOF or on
	// error (distinguish via Err).
	Scan() bool
	// Record returns the record most recently made current by Scan.
	Record() *sam.Record
	// Err returns the first error encountered by Scan, if any.
	Err() error
}

// Chunk is a unit of work produced by the Chunker: a contiguous genomic
// interval plus the (possibly overlap-padded) reads covering it. A Chunk
// is an immutable snapshot once produced. Consecutive chunks of the same
// reference satisfy chunk[i].End == chunk[i+1].Start, except where the
// underlying reads leave an uncovered gap between them, in which case the
// next chunk's Start simply begins at the next available read.
type Chunk struct {
	RefID int
	// Start and End are the chunk's own (non-overlapping) boundaries,
	// 0-based, End exclusive. Consecutive chunks of the same reference
	// satisfy chunk[i].End == chunk[i+1].Start except across a gap in the
	// reads (see Chunk).
	Start int
	End   int
	// Reads covers [Start-Δ, End+Δ), Δ = OverlapSlack, in iterator order.
	Reads []*sam.Record
}

// RefName returns the reference name for the chunk, or "*" if the chunk
// covers unmapped reads (RefID < 0).
func (c *Chunk) RefName(header *sam.Header) string {
	if c.RefID < 0 || c.RefID >= len(header.Refs()) {
		return "*"
	}
	return header.Refs()[c.RefID].Name()
}

// approxRecordSize estimates a record's serialized BAM size in bytes. The
// Chunker only needs this to decide when a chunk has grown large enough;
// exact boundaries are explicitly not this core's responsibility (spec
// §4.C: "Exact chunk boundaries are the alignment library's
// responsibility").
func approxRecordSize(r *sam.Record) int {
	const fixedFields = 32
	n := fixedFields + len(r.Name) + 1
	n += 4 * len(r.Cigar)
	seqLen := r.Seq.Length
	n += (seqLen+1)/2 + seqLen
	for _, aux := range r.AuxFields {
		n += len(aux) + 3
	}
	return n
}

// Chunker turns an ordered RecordIterator into a lazy, finite, single-pass
// sequence of overlapping Chunks whose core (non-overlap) bytes fit within
// a target bufferSize (spec §4.C).
type Chunker struct {
	it         RecordIterator
	bufferSize int

	carry      []*sam.Record // overlap reads seeded from the previous chunk's tail
	carryRef   int           // reference the carry belongs to, valid iff len(carry) > 0
	pendingEnd int            // previous chunk's End on carryRef, the next chunk's Start
	next       *sam.Record    // one record of lookahead, already pulled from it
	itDone     bool
	itErr      error
	started    bool
}

// NewChunker creates a Chunker reading from it, targeting bufferSize bytes
// of core (non-overlap) content per chunk. bufferSize <= 0 uses
// DefaultBufferSize.
func NewChunker(it RecordIterator, bufferSize int) *Chunker {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Chunker{it: it, bufferSize: bufferSize}
}

// advance pulls the next record from the underlying iterator into c.next,
// setting c.itDone/c.itErr at end of stream.
func (c *Chunker) advance() {
	if c.it.Scan() {
		rec := c.it.Record()
		c.next = rec
		return
	}
	c.itDone = true
	c.itErr = c.it.Err()
	c.next = nil
}

func refID(r *sam.Record) int {
	if r.Ref == nil {
		return -1
	}
	return r.Ref.ID()
}

// Next produces the next Chunk, or (nil, false, nil) when the iterator is
// exhausted, or (nil, false, err) on a read error.
func (c *Chunker) Next() (*Chunk, bool, error) {
	if !c.started {
		c.started = true
		c.advance()
	}
	if c.itErr != nil {
		return nil, false, errf(BamReadFailure, c.itErr, "reading alignment records")
	}
	if c.itDone && len(c.carry) == 0 {
		return nil, false, nil
	}

	var core, reads []*sam.Record

	var chunkRef, start int
	if n := len(c.carry); n > 0 && c.carry[n-1].Pos >= c.pendingEnd {
		// The carry ends with trailing overlap from the immediately
		// preceding chunk on the same reference (see the trailing loop
		// below), so this chunk continues that reference's core boundary
		// exactly where the previous one left off and takes the whole
		// carry: the previous chunk's reads in [start-Δ, start) plus that
		// trailing overlap.
		chunkRef = c.carryRef
		start = c.pendingEnd
		reads = append(reads, c.carry...)
	} else if c.next != nil {
		chunkRef = refID(c.next)
		start = c.next.Pos
	}

	size := 0
	end := start
	for c.next != nil && refID(c.next) == chunkRef && size < c.bufferSize {
		rec := c.next
		core = append(core, rec)
		size += approxRecordSize(rec)
		end = rec.Pos + 1
		c.advance()
		if c.itErr != nil {
			return nil, false, errf(BamReadFailure, c.itErr, "reading alignment records")
		}
	}
	reads = append(reads, core...)

	// Extend the chunk with trailing overlap reads (pos in [end, end+Δ))
	// on the same reference; these seed the next chunk's carry.
	var trailing []*sam.Record
	for c.next != nil && refID(c.next) == chunkRef && c.next.Pos < end+OverlapSlack {
		trailing = append(trailing, c.next)
		c.advance()
		if c.itErr != nil {
			return nil, false, errf(BamReadFailure, c.itErr, "reading alignment records")
		}
	}
	reads = append(reads, trailing...)

	if len(core) == 0 && len(trailing) == 0 {
		// Nothing left on this reference beyond what the previous chunk
		// already carried and emitted as its own trailing overlap; those
		// reads were already visible downstream, so this round contributes
		// no new chunk. Recurse onto the next reference (or EOF).
		c.carry = nil
		return c.Next()
	}

	// The next chunk's carry: this chunk's reads in [end-Δ, end), then the
	// trailing overlap.
	c.carry = nil
	for _, r := range reads[:len(reads)-len(trailing)] {
		if r.Pos >= end-OverlapSlack {
			c.carry = append(c.carry, r)
		}
	}
	c.carry = append(c.carry, trailing...)
	c.carryRef = chunkRef
	c.pendingEnd = end

	return &Chunk{RefID: chunkRef, Start: start, End: end, Reads: reads}, true, nil
}
