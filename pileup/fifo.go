package pileup

import (
	"os"
	"time"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"golang.org/x/sys/unix"
)

// fifoPollInterval is how often the writer side retries a nonblocking open
// of a chunk's FIFO while waiting for the reader (the external mpileup
// process) to open its end. Grounded on the mkfifo pattern in
// kshedden-muscato's main.go and muscato.go, generalized here to the
// nonblocking-probe-then-blocking-reopen dance spec §4.D requires so the
// writer never wedges against a reader that never shows up because the
// external process failed to start.
const fifoPollInterval = 50 * time.Millisecond

// CreateFifo creates a named pipe at path with mode 0666, per spec §4.D. The
// caller is responsible for removing it once both ends are done.
func CreateFifo(path string) error {
	if err := unix.Mkfifo(path, 0666); err != nil {
		return errf(FifoSetup, err, "mkfifo %s", path)
	}
	return nil
}

// OpenFifoWriter opens the writer end of the FIFO at path. It first probes
// with a nonblocking open in a loop, so a writer that starts before any
// reader exists doesn't block indefinitely inside the kernel with no way to
// notice the external process died before ever opening its end; once the
// nonblocking probe succeeds (a reader is present), it reopens normally to
// get a writer usable with the standard blocking write path.
func OpenFifoWriter(path string, abort func() bool) (*os.File, error) {
	for {
		if abort != nil && abort() {
			return nil, errf(FifoSetup, nil, "aborted while waiting for reader on %s", path)
		}
		probe, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0)
		if err == nil {
			probe.Close()
			break
		}
		if !os.IsNotExist(err) && !isENXIO(err) {
			return nil, errf(FifoSetup, err, "probing fifo writer end %s", path)
		}
		time.Sleep(fifoPollInterval)
	}
	w, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, errf(FifoSetup, err, "opening fifo writer end %s", path)
	}
	return w, nil
}

func isENXIO(err error) bool {
	perr, ok := err.(*os.PathError)
	return ok && perr.Err == unix.ENXIO
}

// WriteChunkBAM serializes chunk's reads as a BAM stream into w, using
// header as the file-level header, then closes w to signal EOF to whatever
// process holds the FIFO's read end.
//
// Grounded on 10XGenomics-lariat's bamwriter.go CreateBAM/BAMWriter, which
// wraps bam.NewWriter(file, header, concurrency) the same way; concurrency
// is fixed at 1 here since each FIFO writer already runs on its own worker
// goroutine.
func WriteChunkBAM(w *os.File, header *sam.Header, chunk *Chunk) (err error) {
	bw, err := bam.NewWriter(w, header, 1)
	if err != nil {
		w.Close()
		return errf(FifoSetup, err, "creating BAM writer for fifo %s", w.Name())
	}
	defer func() {
		closeErr := bw.Close()
		if err == nil {
			err = closeErr
		}
		if werr := w.Close(); err == nil {
			err = werr
		}
	}()
	for _, rec := range chunk.Reads {
		if werr := bw.Write(rec); werr != nil {
			return errf(FifoSetup, werr, "writing record to fifo %s", w.Name())
		}
	}
	return nil
}
