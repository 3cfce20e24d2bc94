// Package mutator writes the gradient block and overlay into a video card.
package mutator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/thumbtint/thumbtint/internal/dom"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/extract"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/gradient"
)

// Class names of the generated nodes. The stylesheet depends on them.
const (
	ClassBlock   = "minimalist-gradient"
	ClassInfo    = "video-info-container"
	ClassTop     = "video-info-top"
	ClassBottom  = "video-info-bottom"
	ClassTitle   = "video-title"
	ClassChannel = "channel-name"
	ClassMeta    = "metadata-container"
	ClassViews   = "view-count"
	ClassTime    = "time-ago"
	GradientVar  = "--gradient"
	MarkValue    = "true"
)

// Mutator applies records to the document.
type Mutator struct {
	sel    extract.Selectors
	logger *slog.Logger
}

// New creates a Mutator. Marker, Progress and Hide are read from sel.
func New(sel extract.Selectors, logger *slog.Logger) *Mutator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mutator{sel: sel.Merge(extract.DefaultSelectors()), logger: logger}
}

// Marker is the attribute set on processed thumbnails.
func (m *Mutator) Marker() string { return m.sel.Marker }

// Apply hides thumb, inserts the gradient block before it and marks it.
// It reports false without writing anything when thumb has no parent.
// Errors are returned only while thumb is still unmarked, and then the
// block is removed and thumb's display restored: a failed card keeps its
// original look. After the mark, failures are logged and dropped.
func (m *Mutator) Apply(ctx context.Context, doc dom.Document, thumb, container dom.Element, rec *extract.Record, spec gradient.Spec) (bool, error) {
	parent, err := thumb.Parent(ctx)
	if err != nil {
		return false, fmt.Errorf("mutator: parent: %w", err)
	}
	if parent == nil {
		return false, nil
	}

	w, h, err := thumb.Size(ctx)
	if err != nil {
		return false, fmt.Errorf("mutator: size: %w", err)
	}

	block, err := m.block(ctx, doc, w, h, spec)
	if err != nil {
		return false, err
	}
	info, err := m.overlay(ctx, doc, rec)
	if err != nil {
		return false, err
	}
	if err := block.AppendChild(ctx, info); err != nil {
		return false, fmt.Errorf("mutator: append overlay: %w", err)
	}

	display, err := thumb.Style(ctx, "display")
	if err != nil {
		return false, fmt.Errorf("mutator: read display: %w", err)
	}
	if err := thumb.SetStyle(ctx, "display", "none"); err != nil {
		return false, fmt.Errorf("mutator: hide thumbnail: %w", err)
	}
	if err := parent.InsertBefore(ctx, block, thumb); err != nil {
		m.rollback(ctx, nil, thumb, display)
		return false, fmt.Errorf("mutator: insert: %w", err)
	}
	if err := thumb.SetAttr(ctx, m.sel.Marker, MarkValue); err != nil {
		m.rollback(ctx, block, thumb, display)
		return false, fmt.Errorf("mutator: mark: %w", err)
	}

	if container != nil {
		m.retint(ctx, block, container)
		m.hide(ctx, container)
	}
	return true, nil
}

// rollback undoes a partial Apply. block may be nil when it was never inserted.
func (m *Mutator) rollback(ctx context.Context, block, thumb dom.Element, display string) {
	if block != nil {
		if err := block.Remove(ctx); err != nil {
			m.logger.Warn("mutator: rollback remove block", "error", err)
		}
	}
	if err := thumb.SetStyle(ctx, "display", display); err != nil {
		m.logger.Warn("mutator: rollback restore display", "error", err)
	}
}

func (m *Mutator) block(ctx context.Context, doc dom.Document, w, h int, spec gradient.Spec) (dom.Element, error) {
	block, err := m.div(ctx, doc, ClassBlock, "")
	if err != nil {
		return nil, err
	}
	for _, kv := range [][2]string{
		{"width", fmt.Sprintf("%dpx", w)},
		{"height", fmt.Sprintf("%dpx", h)},
		{GradientVar, spec.CSS()},
	} {
		if err := block.SetStyle(ctx, kv[0], kv[1]); err != nil {
			return nil, fmt.Errorf("mutator: style %s: %w", kv[0], err)
		}
	}
	return block, nil
}

// overlay builds:
//
//	div.video-info-container
//	  div.video-info-top     > div.video-title
//	  div.video-info-bottom  > div.channel-name, div.metadata-container > div.view-count, div.time-ago
func (m *Mutator) overlay(ctx context.Context, doc dom.Document, rec *extract.Record) (dom.Element, error) {
	info, err := m.div(ctx, doc, ClassInfo, "")
	if err != nil {
		return nil, err
	}
	top, err := m.div(ctx, doc, ClassTop, "")
	if err != nil {
		return nil, err
	}
	bottom, err := m.div(ctx, doc, ClassBottom, "")
	if err != nil {
		return nil, err
	}

	var b builder
	b.child(ctx, m, doc, top, ClassTitle, rec.Title)
	b.child(ctx, m, doc, bottom, ClassChannel, rec.Metadata.Channel)
	if rec.Metadata.Views != "" || rec.Metadata.Time != "" {
		meta, err := m.div(ctx, doc, ClassMeta, "")
		if err != nil {
			return nil, err
		}
		b.child(ctx, m, doc, meta, ClassViews, rec.Metadata.Views)
		b.child(ctx, m, doc, meta, ClassTime, rec.Metadata.Time)
		b.append(ctx, bottom, meta)
	}
	b.append(ctx, info, top)
	b.append(ctx, info, bottom)
	if b.err != nil {
		return nil, b.err
	}
	return info, nil
}

// builder keeps the first error of a sequence of appends.
type builder struct{ err error }

func (b *builder) child(ctx context.Context, m *Mutator, doc dom.Document, parent dom.Element, class, text string) {
	if b.err != nil || text == "" {
		return
	}
	el, err := m.div(ctx, doc, class, text)
	if err != nil {
		b.err = err
		return
	}
	b.append(ctx, parent, el)
}

func (b *builder) append(ctx context.Context, parent, child dom.Element) {
	if b.err != nil {
		return
	}
	if err := parent.AppendChild(ctx, child); err != nil {
		b.err = fmt.Errorf("mutator: append: %w", err)
	}
}

func (m *Mutator) div(ctx context.Context, doc dom.Document, class, text string) (dom.Element, error) {
	el, err := doc.CreateElement(ctx, "div")
	if err != nil {
		return nil, fmt.Errorf("mutator: create: %w", err)
	}
	if err := el.SetAttr(ctx, "class", class); err != nil {
		return nil, fmt.Errorf("mutator: class: %w", err)
	}
	if text != "" {
		if err := el.SetText(ctx, text); err != nil {
			return nil, fmt.Errorf("mutator: text: %w", err)
		}
	}
	return el, nil
}

// retint paints the progress bar with the gradient read back from block.
func (m *Mutator) retint(ctx context.Context, block, container dom.Element) {
	bar, err := container.Query(ctx, m.sel.Progress)
	if err != nil || bar == nil {
		if err != nil {
			m.logger.Debug("mutator: progress lookup", "error", err)
		}
		return
	}
	value, err := block.Style(ctx, GradientVar)
	if err != nil || value == "" {
		return
	}
	if err := bar.SetStyle(ctx, "background", value); err != nil {
		m.logger.Debug("mutator: progress retint", "error", err)
	}
}

var hidden = [][2]string{
	{"display", "none"},
	{"visibility", "hidden"},
	{"height", "0"},
	{"overflow", "hidden"},
}

func (m *Mutator) hide(ctx context.Context, container dom.Element) {
	for _, sel := range m.sel.Hide {
		el, err := container.Query(ctx, sel)
		if err != nil {
			m.logger.Debug("mutator: hide lookup", "selector", sel, "error", err)
			continue
		}
		if el == nil {
			continue
		}
		for _, kv := range hidden {
			if err := el.SetStyle(ctx, kv[0], kv[1]); err != nil {
				m.logger.Debug("mutator: hide", "selector", sel, "error", err)
				break
			}
		}
	}
}
