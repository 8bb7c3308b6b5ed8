package interval

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/require"
)

func writeBED(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "regions.bed")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0644))
	return path
}

func fakeHeader(t *testing.T, refNames ...string) *sam.Header {
	t.Helper()
	refs := make([]*sam.Reference, len(refNames))
	for i, name := range refNames {
		ref, err := sam.NewReference(name, "", "", 1<<30, nil, nil)
		require.NoError(t, err)
		refs[i] = ref
	}
	header, err := sam.NewHeader(nil, refs)
	require.NoError(t, err)
	return header
}

func TestNewBEDUnionFromPathMergesOverlappingIntervals(t *testing.T) {
	path := writeBED(t, "chr1\t100\t200\nchr1\t150\t250\nchr1\t400\t500\n")
	header := fakeHeader(t, "chr1")

	u, err := NewBEDUnionFromPath(path, NewBEDOpts{SAMHeader: header})
	require.NoError(t, err)

	require.True(t, u.Intersects(0, 100, 0, 101))
	require.True(t, u.Intersects(0, 180, 0, 300)) // overlapping [150,250) merged into [100,250)
	require.False(t, u.Intersects(0, 250, 0, 400))
	require.True(t, u.Intersects(0, 0, 0, 1000))
}

func TestNewBEDUnionFromPathOneBasedInput(t *testing.T) {
	path := writeBED(t, "chr1\t101\t200\n")
	header := fakeHeader(t, "chr1")

	u, err := NewBEDUnionFromPath(path, NewBEDOpts{SAMHeader: header, OneBasedInput: true})
	require.NoError(t, err)

	require.True(t, u.Intersects(0, 100, 0, 101))
	require.False(t, u.Intersects(0, 99, 0, 100))
}

func TestBEDUnionIntersectsAcrossReferences(t *testing.T) {
	path := writeBED(t, "chr1\t0\t10\nchr3\t0\t10\n")
	header := fakeHeader(t, "chr1", "chr2", "chr3")

	u, err := NewBEDUnionFromPath(path, NewBEDOpts{SAMHeader: header})
	require.NoError(t, err)

	require.False(t, u.Intersects(1, 0, 1, 100)) // chr2 mentioned in no region
	require.True(t, u.Intersects(1, 0, 2, 5))    // spans into chr3's region
}

func TestBEDUnionUnmentionedReferenceNeverIntersects(t *testing.T) {
	path := writeBED(t, "chr1\t0\t10\n")
	header := fakeHeader(t, "chr1", "chr2")

	u, err := NewBEDUnionFromPath(path, NewBEDOpts{SAMHeader: header})
	require.NoError(t, err)

	require.False(t, u.Intersects(1, 0, 1, 1000))
}

func TestNewBEDUnionRejectsUnsortedInput(t *testing.T) {
	path := writeBED(t, "chr1\t100\t200\nchr1\t50\t60\n")
	header := fakeHeader(t, "chr1")

	_, err := NewBEDUnionFromPath(path, NewBEDOpts{SAMHeader: header})
	require.Error(t, err)
}
