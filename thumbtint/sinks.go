package thumbtint

import (
	"context"
	"io"

	"github.com/hazyhaar/thumbtint/thumbtint/internal/sink"
	"github.com/hazyhaar/thumbtint/thumbtint/report"
)

// Sink receives one report per pass.
type Sink = sink.Sink

// Store is the sqlite pass-report sink.
type Store = sink.Store

// NewStdoutSink creates a stdout JSON-lines sink. Empty passes are written
// only when verbose is set.
func NewStdoutSink(w io.Writer, verbose bool) Sink {
	s := sink.NewStdout(w)
	s.Verbose = verbose
	return s
}

// NewCallbackSink creates an in-process sink.
func NewCallbackSink(fn func(ctx context.Context, pass report.Pass) error) Sink {
	return sink.NewCallback(fn)
}

// OpenStore opens the pass-report database at path ("" or ":memory:" for
// an in-memory one).
func OpenStore(path string) (*Store, error) {
	return sink.OpenStore(path)
}
