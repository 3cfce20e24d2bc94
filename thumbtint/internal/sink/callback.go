package sink

import (
	"context"

	"github.com/hazyhaar/thumbtint/thumbtint/report"
)

// PassFunc is called for each pass, in-process.
type PassFunc func(ctx context.Context, pass report.Pass) error

// Callback delivers reports through a Go function call.
type Callback struct {
	fn PassFunc
}

// NewCallback creates a Callback sink. fn may be nil.
func NewCallback(fn PassFunc) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Send(ctx context.Context, pass report.Pass) error {
	if c.fn != nil {
		return c.fn(ctx, pass)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
