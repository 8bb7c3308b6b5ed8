package pileup

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/sambamba/interval"
	"v.io/x/lib/vlog"
)

// Dispatcher hands out numbered ChunkJobs under a scheduling lock and
// gates ordered emission under a separate ordering lock, per spec §4.F.
// The two locks are deliberately distinct: next_chunk must return quickly
// so a worker can start its external process before the FIFO-writer races
// against it, while try_emit may block a caller for an arbitrary time
// waiting for its turn.
//
// Grounded on markduplicates/mark_duplicates.go's worker-pool shape
// (sync.WaitGroup over a fixed pool draining a shared work channel) and its
// errors.Once sticky-error pattern for the abort flag, the same pattern
// encoding/bam/adjacent_sharded_bam_reader.go uses to fail an entire shard
// group from any one worker's error.
type Dispatcher struct {
	ctx *RuntimeContext
	ch  *Chunker

	schedMu sync.Mutex
	nextNum int

	orderMu  sync.Mutex
	orderCV  *sync.Cond
	currNum  int
	sink     *os.File
	abortErr errors.Once
}

// NewDispatcher creates a Dispatcher over ch, writing normalized chunk
// pipelines described by ctx and emitting decompressed bytes to sink.
func NewDispatcher(ctx *RuntimeContext, ch *Chunker, sink *os.File) *Dispatcher {
	d := &Dispatcher{ctx: ctx, ch: ch, nextNum: 1, currNum: 1, sink: sink}
	d.orderCV = sync.NewCond(&d.orderMu)
	return d
}

// Abort records err as the sticky first failure and wakes every waiter on
// the ordering condition so blocked workers notice promptly.
func (d *Dispatcher) Abort(err error) {
	d.abortErr.Set(err)
	d.orderCV.Broadcast()
}

// Aborted reports whether Abort has been called, and with what error.
func (d *Dispatcher) Aborted() (bool, error) {
	err := d.abortErr.Err()
	return err != nil, err
}

// NextChunk advances the Chunker and returns the next ChunkJob, or
// (nil, false, nil) once the Chunker is exhausted, or (nil, false, err) on
// a read error or a prior abort. The scheduling lock is released before
// the caller's external process starts (NextChunk itself does no I/O other
// than writing the BED side-car, which must exist before that process
// runs).
func (d *Dispatcher) NextChunk() (*ChunkJob, bool, error) {
	d.schedMu.Lock()
	defer d.schedMu.Unlock()

	if aborted, err := d.Aborted(); aborted {
		return nil, false, err
	}

	var chunk *Chunk
	for {
		var ok bool
		var err error
		chunk, ok, err = d.ch.Next()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		if d.ctx.Regions == nil || chunk.RefID < 0 {
			break
		}
		if d.ctx.Regions.Intersects(chunk.RefID, interval.PosType(chunk.Start), chunk.RefID, interval.PosType(chunk.End)) {
			break
		}
		vlog.VI(2).Infof("dispatcher: skipping chunk outside -L/--regions (%s:%d-%d)", chunk.RefName(d.ctx.Header), chunk.Start, chunk.End)
	}

	num := d.nextNum
	d.nextNum++

	fifoPath := filepath.Join(d.ctx.TmpDir, fmt.Sprintf("%d", num))
	bedPath := fifoPath + ".bed"
	if err := writeBedSidecar(bedPath, chunk, d.ctx.Header); err != nil {
		return nil, false, err
	}

	vlog.VI(2).Infof("dispatcher: issuing chunk %d (%s:%d-%d)", num, chunk.RefName(d.ctx.Header), chunk.Start, chunk.End)
	return &ChunkJob{Chunk: chunk, Num: num, FifoPath: fifoPath, BedPath: bedPath}, true, nil
}

// writeBedSidecar writes the single-region BED file an external tool's
// region-restriction flag reads to filter overlap reads back out of a
// chunk's output. Per the design notes' resolution of the source's two
// inconsistent conventions (spec.md §9), this uses chunk.Start/chunk.End
// directly as the BED start/end: both are already 0-based half-open, so no
// further off-by-one adjustment is applied. See DESIGN.md.
func writeBedSidecar(path string, chunk *Chunk, header *sam.Header) error {
	f, err := os.Create(path)
	if err != nil {
		return errf(IoFailure, err, "creating BED side-car %s", path)
	}
	defer f.Close()
	refName := chunk.RefName(header)
	_, err = fmt.Fprintf(f, "%s\t%d\t%d\n", refName, chunk.Start, chunk.End)
	if err != nil {
		return errf(IoFailure, err, "writing BED side-car %s", path)
	}
	return nil
}

// tryEmitLocked is TryEmit's critical section, run with orderMu already
// held. If num is next in line it decompresses raw via codec straight into
// the final sink, advances curr_num, and wakes every waiter.
func (d *Dispatcher) tryEmitLocked(num int, raw []byte, codec Codec) (bool, error) {
	if err := d.abortErr.Err(); err != nil {
		return false, err
	}
	if num != d.currNum {
		return false, nil
	}
	if err := codec.Decompress(raw, d.sink); err != nil {
		return false, err
	}
	d.currNum++
	d.orderCV.Broadcast()
	return true, nil
}

// TryEmit implements the ordered-commit rendezvous (spec §4.F/H): a single,
// non-blocking attempt to emit chunk num. Exposed for tests; Worker uses
// WaitTurn.
func (d *Dispatcher) TryEmit(num int, raw []byte, codec Codec) (bool, error) {
	d.orderMu.Lock()
	defer d.orderMu.Unlock()
	return d.tryEmitLocked(num, raw, codec)
}

// WaitTurn blocks until num becomes the current emission slot and its bytes
// are committed to the sink, or until an abort is recorded — Worker step 6's
// "under the ordering lock: while try_emit(...) is false, wait" loop.
func (d *Dispatcher) WaitTurn(num int, raw []byte, codec Codec) error {
	d.orderMu.Lock()
	defer d.orderMu.Unlock()
	for {
		ok, err := d.tryEmitLocked(num, raw, codec)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if err := d.abortErr.Err(); err != nil {
			return err
		}
		d.orderCV.Wait()
	}
}
