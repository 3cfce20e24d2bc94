// Package sink delivers pass reports to output backends.
package sink

import (
	"context"

	"github.com/hazyhaar/thumbtint/thumbtint/report"
)

// Sink receives one report per orchestrator pass. Implementations must be
// safe for concurrent use: every observed page sends from its own loop.
type Sink interface {
	Send(ctx context.Context, pass report.Pass) error
	Close() error
}
