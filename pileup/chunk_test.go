package pileup

import (
	"fmt"
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/require"
)

// newRecord builds a minimal sam.Record for chunking tests. Grounded on
// markduplicates/testutils.go's NewRecord helper, dropping the free-pool
// allocation it uses since this package has no equivalent pool.
func newRecord(name string, ref *sam.Reference, pos int) *sam.Record {
	return &sam.Record{Name: name, Ref: ref, Pos: pos, MateRef: ref, MatePos: -1}
}

type sliceIterator struct {
	recs []*sam.Record
	i    int
}

func (s *sliceIterator) Scan() bool {
	if s.i >= len(s.recs) {
		return false
	}
	s.i++
	return true
}
func (s *sliceIterator) Record() *sam.Record { return s.recs[s.i-1] }
func (s *sliceIterator) Err() error          { return nil }

func drainChunker(t *testing.T, c *Chunker) []*Chunk {
	var out []*Chunk
	for {
		chunk, ok, err := c.Next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, chunk)
	}
}

func TestChunkerEmptyInput(t *testing.T) {
	c := NewChunker(&sliceIterator{}, 1<<20)
	chunks := drainChunker(t, c)
	require.Empty(t, chunks)
}

func TestChunkerSingleChunk(t *testing.T) {
	ref1, err := sam.NewReference("chr1", "", "", 1000, nil, nil)
	require.NoError(t, err)
	_, err = sam.NewHeader(nil, []*sam.Reference{ref1})
	require.NoError(t, err)

	recs := []*sam.Record{
		newRecord("r1", ref1, 10),
		newRecord("r2", ref1, 20),
		newRecord("r3", ref1, 30),
	}
	c := NewChunker(&sliceIterator{recs: recs}, 1<<20)
	chunks := drainChunker(t, c)
	require.Len(t, chunks, 1)
	require.Equal(t, 0, chunks[0].RefID)
	require.Len(t, chunks[0].Reads, 3)
}

func TestChunkerOverlapCarriesAcrossChunks(t *testing.T) {
	ref1, err := sam.NewReference("chr1", "", "", 100000, nil, nil)
	require.NoError(t, err)
	_, err = sam.NewHeader(nil, []*sam.Reference{ref1})
	require.NoError(t, err)

	// Reads dense enough that OverlapSlack always finds a next-door
	// neighbor, so every chunk boundary carries at least one read into
	// the following chunk and chunk[i].End == chunk[i+1].Start holds
	// throughout.
	recs := make([]*sam.Record, 0, 20)
	for i := 0; i < 20; i++ {
		recs = append(recs, newRecord("r", ref1, i*100))
	}
	// A buffer size of 1 forces every core batch to stop after one record.
	c := NewChunker(&sliceIterator{recs: recs}, 1)
	chunks := drainChunker(t, c)
	require.True(t, len(chunks) > 1)

	for i := 1; i < len(chunks); i++ {
		require.Equal(t, chunks[i-1].End, chunks[i].Start)
	}

	// The overlap read at a boundary is visible in more than one chunk.
	seen := map[string]int{}
	for _, ch := range chunks {
		for _, r := range ch.Reads {
			seen[fmt.Sprintf("%p", r)]++
		}
	}
	dup := 0
	for _, n := range seen {
		if n > 1 {
			dup++
		}
	}
	require.Greater(t, dup, 0)
}

func TestChunkerRefBoundary(t *testing.T) {
	ref1, err := sam.NewReference("chr1", "", "", 100, nil, nil)
	require.NoError(t, err)
	ref2, err := sam.NewReference("chr2", "", "", 100, nil, nil)
	require.NoError(t, err)
	_, err = sam.NewHeader(nil, []*sam.Reference{ref1, ref2})
	require.NoError(t, err)

	recs := []*sam.Record{
		newRecord("a", ref1, 10),
		newRecord("b", ref2, 20),
	}
	c := NewChunker(&sliceIterator{recs: recs}, 1<<20)
	chunks := drainChunker(t, c)
	require.Len(t, chunks, 2)
	require.Equal(t, 0, chunks[0].RefID)
	require.Equal(t, 1, chunks[1].RefID)
}
