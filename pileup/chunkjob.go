package pileup

// ChunkJob is one unit of dispatched work: a Chunk plus the bookkeeping the
// Dispatcher and Worker need to run its external pipeline and land its
// output in the right slot of the final ordered stream (spec §3).
type ChunkJob struct {
	Chunk *Chunk
	// Num is the chunk's 1-based position in emission order.
	Num int
	// FifoPath is the named pipe the Worker feeds this chunk's reads
	// through: "<tmpdir>/<num>", e.g. "<tmpdir>/42".
	FifoPath string
	// BedPath is the side-car BED file naming this chunk's own (non-
	// overlap) region, written before the external pipeline starts so its
	// "-l <filename>.bed" flag can filter overlap reads back out.
	BedPath string
}
