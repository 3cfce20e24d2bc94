package sink

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/thumbtint/thumbtint/report"
)

// Router fans a report out to every sink. A failing sink does not stop the
// others; failures are logged and the first one is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router. Nil sinks are ignored.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{logger: logger}
	for _, s := range sinks {
		if s != nil {
			r.sinks = append(r.sinks, s)
		}
	}
	return r
}

// Len returns the number of sinks.
func (r *Router) Len() int { return len(r.sinks) }

func (r *Router) Send(ctx context.Context, pass report.Pass) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Send(ctx, pass); err != nil {
			r.logger.Warn("sink: send pass failed", "error", err, "pass", pass.ID)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
