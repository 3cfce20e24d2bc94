// Package extract reads the video card around a thumbnail into a Record.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/hazyhaar/thumbtint/thumbtint/internal/dom"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/swatch"
)

// Selectors locate the parts of a video card. Container is matched against
// the thumbnail's ancestors, the others inside the container.
type Selectors struct {
	Container string   `yaml:"container" json:"container"`
	Thumbnail string   `yaml:"thumbnail" json:"thumbnail"`
	Avatar    string   `yaml:"avatar" json:"avatar"`
	Title     string   `yaml:"title" json:"title"`
	Channel   string   `yaml:"channel" json:"channel"`
	Views     string   `yaml:"views" json:"views"`
	Time      string   `yaml:"time" json:"time"`
	Progress  string   `yaml:"progress" json:"progress"`
	Hide      []string `yaml:"hide" json:"hide"`
	Marker    string   `yaml:"marker" json:"marker"`
}

// DefaultSelectors matches the home feed markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Container: "ytd-rich-grid-media",
		Thumbnail: "ytd-rich-grid-media img.yt-core-image",
		Avatar:    ".yt-spec-avatar-shape__image.yt-core-image--loaded",
		Title:     "#video-title",
		Channel:   "ytd-channel-name #text a",
		Views:     "#metadata-line span:first-child",
		Time:      "#metadata-line span:last-child",
		Progress:  "ytd-thumbnail-overlay-resume-playback-renderer #progress",
		Hide: []string{
			"#meta", "ytd-video-meta-block", "#avatar-container", "#metadata",
			"#byline-container", "#metadata-line", "#details",
		},
		Marker: "data-gradient-applied",
	}
}

// Merge fills the empty fields of s from def.
func (s Selectors) Merge(def Selectors) Selectors {
	fill := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	fill(&s.Container, def.Container)
	fill(&s.Thumbnail, def.Thumbnail)
	fill(&s.Avatar, def.Avatar)
	fill(&s.Title, def.Title)
	fill(&s.Channel, def.Channel)
	fill(&s.Views, def.Views)
	fill(&s.Time, def.Time)
	fill(&s.Progress, def.Progress)
	fill(&s.Marker, def.Marker)
	if len(s.Hide) == 0 {
		s.Hide = append([]string(nil), def.Hide...)
	}
	return s
}

// Metadata is the byline text of a card.
type Metadata struct {
	Channel string `json:"channel"`
	Views   string `json:"views"`
	Time    string `json:"time"`
}

// Record is what a card says about its video. Text fields are "" when the
// source node is missing. Color is nil when the avatar yielded nothing.
type Record struct {
	Color    *swatch.RGB `json:"color,omitempty"`
	Title    string      `json:"title"`
	Metadata Metadata    `json:"metadata"`
}

// Extractor builds Records.
type Extractor struct {
	sel     Selectors
	sampler swatch.Sampler
	logger  *slog.Logger
}

// New creates an Extractor. A nil sampler leaves every Color nil.
func New(sel Selectors, sampler swatch.Sampler, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{sel: sel.Merge(DefaultSelectors()), sampler: sampler, logger: logger}
}

// Extract finds the container of thumb and reads its fields. When thumb has
// no container it returns (nil, nil, nil) and the caller must skip it.
func (x *Extractor) Extract(ctx context.Context, doc dom.Document, thumb dom.Element) (dom.Element, *Record, error) {
	container, err := thumb.Closest(ctx, x.sel.Container)
	if err != nil {
		return nil, nil, fmt.Errorf("extract: container: %w", err)
	}
	if container == nil {
		x.logger.Debug("extract: no container", "selector", x.sel.Container)
		return nil, nil, nil
	}

	rec := &Record{
		Title: x.text(ctx, container, x.sel.Title),
		Metadata: Metadata{
			Channel: x.text(ctx, container, x.sel.Channel),
			Views:   x.text(ctx, container, x.sel.Views),
			Time:    x.text(ctx, container, x.sel.Time),
		},
	}

	if src := x.avatarURL(ctx, doc, container); src != "" && x.sampler != nil {
		if c, ok := x.sampler.Sample(ctx, src); ok {
			rec.Color = &c
		}
	}

	x.logger.Debug("extract: record",
		"title", rec.Title, "channel", rec.Metadata.Channel,
		"views", rec.Metadata.Views, "time", rec.Metadata.Time,
		"color", rec.Color != nil)
	return container, rec, nil
}

func (x *Extractor) text(ctx context.Context, container dom.Element, selector string) string {
	el, err := container.Query(ctx, selector)
	if err != nil {
		x.logger.Debug("extract: query", "selector", selector, "error", err)
		return ""
	}
	if el == nil {
		return ""
	}
	s, err := el.Text(ctx)
	if err != nil {
		x.logger.Debug("extract: text", "selector", selector, "error", err)
		return ""
	}
	return strings.TrimSpace(s)
}

func (x *Extractor) avatarURL(ctx context.Context, doc dom.Document, container dom.Element) string {
	img, err := container.Query(ctx, x.sel.Avatar)
	if err != nil || img == nil {
		if err != nil {
			x.logger.Debug("extract: avatar", "error", err)
		}
		return ""
	}
	src, ok, err := img.Attr(ctx, "src")
	if err != nil || !ok {
		return ""
	}
	return Resolve(doc.URL(), strings.TrimSpace(src))
}

// Resolve makes src absolute against base. Unparseable input is returned
// unchanged; an empty src stays empty.
func Resolve(base, src string) string {
	if src == "" {
		return ""
	}
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	b, err := url.Parse(base)
	if err != nil || base == "" {
		return src
	}
	return b.ResolveReference(ref).String()
}
