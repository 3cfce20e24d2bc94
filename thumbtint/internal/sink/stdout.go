package sink

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/hazyhaar/thumbtint/thumbtint/report"
)

// Stdout writes one JSON line per pass to an io.Writer (default os.Stdout).
// Passes that replaced nothing are dropped unless Verbose is set.
type Stdout struct {
	Verbose bool

	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdout creates a Stdout sink. If w is nil, os.Stdout is used.
func NewStdout(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{enc: json.NewEncoder(w)}
}

func (s *Stdout) Send(_ context.Context, pass report.Pass) error {
	if pass.Processed == 0 && pass.Failed == 0 && !s.Verbose {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(envelope{Type: "pass", Data: pass})
}

func (s *Stdout) Close() error { return nil }

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
