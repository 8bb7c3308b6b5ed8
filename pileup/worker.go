package pileup

import (
	"os"
	"sync"

	"v.io/x/lib/vlog"
)

// Worker runs the end-to-end per-chunk pipeline (spec §4.G): fetch a job,
// materialize its FIFO, spawn the external tool, capture its output, and
// hand it to the Dispatcher's ordered-emit rendezvous.
type Worker struct {
	ID     int
	Ctx    *RuntimeContext
	Disp   *Dispatcher
	Runner Runner
}

// Run drives the worker loop until the Dispatcher's chunk source is
// exhausted or aborted.
func (w *Worker) Run() error {
	for {
		job, ok, err := w.Disp.NextChunk()
		if err != nil {
			w.Disp.Abort(err)
			return err
		}
		if !ok {
			return nil
		}
		if err := w.runJob(job); err != nil {
			w.Disp.Abort(err)
			return err
		}
	}
}

// runJob implements steps 2-6 of spec §4.G for one job.
func (w *Worker) runJob(job *ChunkJob) error {
	vlog.VI(1).Infof("worker %d: starting chunk %d (%s:%d-%d, %d reads)",
		w.ID, job.Num, job.Chunk.RefName(w.Ctx.Header), job.Chunk.Start, job.Chunk.End, len(job.Chunk.Reads))
	if err := CreateFifo(job.FifoPath); err != nil {
		return err
	}
	defer os.Remove(job.FifoPath)
	defer os.Remove(job.BedPath)

	cmdline, err := w.Ctx.Args.Build(w.Ctx.MpileupPath, w.Ctx.CallerPath, job.FifoPath, job.Num, w.Ctx.SelfPath)
	if err != nil {
		return err
	}

	// The FIFO writer and the external process run concurrently: Runner.Run
	// does not return until the subprocess exits, so both are started as
	// goroutines joined by a WaitGroup. The writer goroutine is not held
	// back until the process has been spawned; OpenFifoWriter's
	// nonblocking-open poll waits until the process opens its end.
	var (
		wg       sync.WaitGroup
		fifoErr  error
		captured []byte
		runErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		fifoErr = w.writeFifo(job)
	}()
	go func() {
		defer wg.Done()
		captured, runErr = w.Runner.Run(cmdline)
		if runErr != nil {
			// Stop the writer's poll if the process died before opening
			// its end of the FIFO.
			w.Disp.Abort(runErr)
		}
	}()
	wg.Wait()

	if runErr != nil {
		return runErr
	}
	if fifoErr != nil {
		return fifoErr
	}

	recipe, ok := RecipeFor(w.Ctx.Args.Format, w.Ctx.SelfPath)
	if !ok {
		return errf(ArgRejected, nil, "no recipe for output format %v", w.Ctx.Args.Format)
	}
	if err := w.Disp.WaitTurn(job.Num, captured, recipe.Codec); err != nil {
		return err
	}
	vlog.VI(1).Infof("worker %d: emitted chunk %d (%d captured bytes)", w.ID, job.Num, len(captured))
	return nil
}

// writeFifo performs the FIFO-writer thread's work (spec §4.D steps 2-4):
// open the writer end synchronized against the external reader, stream the
// chunk's reads as BAM, then close to signal EOF.
func (w *Worker) writeFifo(job *ChunkJob) error {
	aborted := func() bool {
		a, _ := w.Disp.Aborted()
		return a
	}
	f, err := OpenFifoWriter(job.FifoPath, aborted)
	if err != nil {
		return err
	}
	return WriteChunkBAM(f, w.Ctx.Header, job.Chunk)
}

// RunPool starts n workers against disp and blocks until they all finish,
// returning the first error any of them reported (spec §5: "N × Worker").
// n is clamped to at least 1 per spec §8's boundary behavior.
func RunPool(ctx *RuntimeContext, disp *Dispatcher, n int) error {
	if n < 1 {
		n = 1
	}
	var wg sync.WaitGroup
	errs := make([]error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			worker := &Worker{ID: i, Ctx: ctx, Disp: disp}
			errs[i] = worker.Run()
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
