package pileup

import "fmt"

// Kind classifies why a pipeline operation failed, per the error taxonomy
// the pipeline distinguishes when deciding how a failure should surface.
type Kind int

const (
	// ToolMissing means a required external binary was not found on PATH,
	// or was found but rejected by the version probe.
	ToolMissing Kind = iota
	// ArgRejected means the caller passed forbidden or contradictory
	// external-tool arguments.
	ArgRejected
	// FifoSetup means mkfifo or the writer-side open of a chunk's FIFO
	// failed.
	FifoSetup
	// SubprocessFailed means mpileup or the caller exited non-zero.
	SubprocessFailed
	// IoFailure means a read/write error occurred on the final output
	// sink.
	IoFailure
	// BamReadFailure means the alignment library raised while iterating
	// reads or serializing a chunk.
	BamReadFailure
)

func (k Kind) String() string {
	switch k {
	case ToolMissing:
		return "tool missing"
	case ArgRejected:
		return "argument rejected"
	case FifoSetup:
		return "fifo setup"
	case SubprocessFailed:
		return "subprocess failed"
	case IoFailure:
		return "io failure"
	case BamReadFailure:
		return "bam read failure"
	default:
		return "unknown"
	}
}

// Error is a structured pipeline error. It carries a Kind so that callers
// (chiefly cmd/sambamba-pileup's top-level handler) can decide how to react
// without string-matching messages, and an underlying cause when one is
// available.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// errf builds an *Error, following the errors.E(cause, message) shape the
// rest of this codebase's ambient stack (github.com/grailbio/base/errors)
// uses, but keeping the pipeline's own Kind taxonomy front and center.
func errf(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}
