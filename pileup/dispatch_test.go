package pileup

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/sambamba/interval"
	"github.com/stretchr/testify/require"
)

// TestDispatcherOrdersOutOfOrderCompletion is the dense-order test from
// spec §8's end-to-end scenarios, exercised directly against the
// Dispatcher's ordered-commit rendezvous: eight "workers" finish in
// reverse order, but bytes must land in the sink in ascending chunk order.
func TestDispatcherOrdersOutOfOrderCompletion(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "sink")
	require.NoError(t, err)
	defer f.Close()

	disp := &Dispatcher{sink: f, currNum: 1}
	disp.orderCV = newCondFor(disp)

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	for i := n; i >= 1; i-- {
		num := i
		go func() {
			defer wg.Done()
			// Lower-numbered chunks sleep longer and so finish later:
			// completion order is the reverse of emission order.
			time.Sleep(time.Duration(n-num) * time.Millisecond)
			body := []byte(bodyFor(num))
			require.NoError(t, disp.WaitTurn(num, body, IdentityCodec{}))
		}()
	}
	wg.Wait()

	got, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	want := ""
	for i := 1; i <= n; i++ {
		want += bodyFor(i)
	}
	require.Equal(t, want, string(got))
}

func bodyFor(num int) string {
	return "body " + string(rune('0'+num)) + "\n"
}

func newCondFor(d *Dispatcher) *sync.Cond { return sync.NewCond(&d.orderMu) }

func TestDispatcherAbortWakesWaiters(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "sink")
	require.NoError(t, err)
	defer f.Close()

	disp := &Dispatcher{sink: f, currNum: 1}
	disp.orderCV = newCondFor(disp)

	done := make(chan error, 1)
	go func() {
		done <- disp.WaitTurn(5, []byte("x"), IdentityCodec{})
	}()

	time.Sleep(10 * time.Millisecond)
	disp.Abort(errf(SubprocessFailed, nil, "boom"))

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitTurn did not wake up after Abort")
	}
}

// TestDispatcherNextChunkSkipsChunksOutsideRegions confirms -L/--regions
// actually prunes the chunk stream instead of merely being parsed and
// discarded: chunks that don't intersect the requested BEDUnion never
// reach a worker.
func TestDispatcherNextChunkSkipsChunksOutsideRegions(t *testing.T) {
	ref1, err := sam.NewReference("chr1", "", "", 100000, nil, nil)
	require.NoError(t, err)
	header, err := sam.NewHeader(nil, []*sam.Reference{ref1})
	require.NoError(t, err)

	recs := []*sam.Record{
		newRecord("a", ref1, 10),
		newRecord("b", ref1, 50000),
	}
	ch := NewChunker(&sliceIterator{recs: recs}, 1)

	regions, err := interval.NewBEDUnion(strings.NewReader("chr1\t49000\t60000\n"), interval.NewBEDOpts{SAMHeader: header})
	require.NoError(t, err)

	f, err := os.CreateTemp(t.TempDir(), "sink")
	require.NoError(t, err)
	defer f.Close()

	rctx := &RuntimeContext{TmpDir: t.TempDir(), Header: header, Regions: &regions}
	disp := NewDispatcher(rctx, ch, f)

	var jobs []*ChunkJob
	for {
		job, ok, err := disp.NextChunk()
		require.NoError(t, err)
		if !ok {
			break
		}
		jobs = append(jobs, job)
	}

	require.Len(t, jobs, 1)
	require.Equal(t, 50000, jobs[0].Chunk.Start)
}

func TestDispatcherTryEmitNonBlocking(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "sink")
	require.NoError(t, err)
	defer f.Close()

	disp := &Dispatcher{sink: f, currNum: 1}
	disp.orderCV = newCondFor(disp)

	ok, err := disp.TryEmit(2, []byte("later"), IdentityCodec{})
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = disp.TryEmit(1, []byte("first"), IdentityCodec{})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = disp.TryEmit(2, []byte("later"), IdentityCodec{})
	require.NoError(t, err)
	require.True(t, ok)
}
