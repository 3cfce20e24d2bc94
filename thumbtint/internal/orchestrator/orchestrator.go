// Package orchestrator runs the replacement pipeline over every unprocessed
// thumbnail of a document.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/thumbtint/thumbtint/internal/dom"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/extract"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/gradient"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/mutator"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/swatch"
	"github.com/hazyhaar/thumbtint/thumbtint/report"
)

// Config for creating an Orchestrator.
type Config struct {
	Selectors   extract.Selectors
	Sampler     swatch.Sampler
	Synthesizer *gradient.Synthesizer
	PageID      string
	Logger      *slog.Logger
}

// Orchestrator is stateless between runs; the mark on each thumbnail is the
// only memory of previous passes.
type Orchestrator struct {
	sel       extract.Selectors
	query     string
	extractor *extract.Extractor
	synth     *gradient.Synthesizer
	mutator   *mutator.Mutator
	pageID    string
	logger    *slog.Logger
}

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Synthesizer == nil {
		cfg.Synthesizer = gradient.New()
	}
	sel := cfg.Selectors.Merge(extract.DefaultSelectors())
	return &Orchestrator{
		sel:       sel,
		query:     fmt.Sprintf("%s:not([%s])", sel.Thumbnail, sel.Marker),
		extractor: extract.New(sel, cfg.Sampler, cfg.Logger),
		synth:     cfg.Synthesizer,
		mutator:   mutator.New(sel, cfg.Logger),
		pageID:    cfg.PageID,
		logger:    cfg.Logger,
	}
}

// Query is the candidate selector: thumbnails without the mark.
func (o *Orchestrator) Query() string { return o.query }

// Run processes every candidate in document order. It never fails: faults
// are counted in the returned report and logged.
func (o *Orchestrator) Run(ctx context.Context, doc dom.Document) (pass report.Pass) {
	pass = report.Begin(o.pageID, doc.URL())
	defer pass.Finish()
	defer func() {
		if r := recover(); r != nil {
			pass.Failed++
			o.logger.Error("orchestrator: pass panicked", "panic", r, "url", pass.PageURL)
		}
	}()

	thumbs, err := doc.QueryAll(ctx, o.query)
	if err != nil {
		o.logger.Error("orchestrator: query candidates", "error", err, "selector", o.query)
		return pass
	}
	pass.Candidates = len(thumbs)

	for _, thumb := range thumbs {
		if ctx.Err() != nil {
			o.logger.Debug("orchestrator: pass cancelled", "remaining", pass.Candidates-pass.Processed-pass.Skipped-pass.Failed)
			break
		}
		item, outcome := o.one(ctx, doc, thumb)
		switch outcome {
		case processed:
			pass.Processed++
			pass.Items = append(pass.Items, item)
		case skipped:
			pass.Skipped++
		case failed:
			pass.Failed++
		}
	}

	o.logger.Debug("orchestrator: pass done",
		"candidates", pass.Candidates, "processed", pass.Processed,
		"skipped", pass.Skipped, "failed", pass.Failed)
	return pass
}

type outcome int

const (
	processed outcome = iota
	skipped
	failed
)

func (o *Orchestrator) one(ctx context.Context, doc dom.Document, thumb dom.Element) (item report.Item, out outcome) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("orchestrator: candidate panicked", "panic", r)
			out = failed
		}
	}()

	// The query already excludes marked nodes; the live DOM may have changed
	// since, so check again.
	if _, marked, err := thumb.Attr(ctx, o.sel.Marker); err != nil {
		o.logger.Debug("orchestrator: read mark", "error", err)
		return item, failed
	} else if marked {
		return item, skipped
	}

	w, _, err := thumb.Size(ctx)
	if err != nil {
		o.logger.Debug("orchestrator: size", "error", err)
		return item, failed
	}
	if w == 0 {
		return item, skipped
	}

	container, rec, err := o.extractor.Extract(ctx, doc, thumb)
	if err != nil {
		o.logger.Warn("orchestrator: extract", "error", err)
		return item, failed
	}
	if rec == nil {
		return item, skipped
	}

	spec := o.synth.Synthesize(rec.Color)
	applied, err := o.mutator.Apply(ctx, doc, thumb, container, rec, spec)
	if err != nil {
		o.logger.Warn("orchestrator: apply", "error", err, "title", rec.Title)
		return item, failed
	}
	if !applied {
		return item, skipped
	}

	return report.Item{
		Title:    rec.Title,
		Channel:  rec.Metadata.Channel,
		Views:    rec.Metadata.Views,
		Time:     rec.Metadata.Time,
		Gradient: spec.CSS(),
		Fallback: spec.Fallback,
	}, processed
}
