package thumbtint

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hazyhaar/thumbtint/thumbtint/internal/dom/htmldoc"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/gradient"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/orchestrator"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/style"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/swatch"
	"github.com/hazyhaar/thumbtint/thumbtint/report"
)

// RGB is an 8-bit per channel color.
type RGB = swatch.RGB

// Sampler computes the average opaque color of an image.
type Sampler = swatch.Sampler

// SamplerFunc adapts a function to Sampler.
type SamplerFunc = swatch.SamplerFunc

// RenderOptions configures an offline render.
type RenderOptions struct {
	// URL the document was saved from; relative avatar URLs resolve against it.
	URL       string
	Selectors Selectors
	// Sampler defaults to an anonymous HTTP sampler that only connects to
	// public addresses: the document may come from an untrusted caller.
	Sampler Sampler
	// Intn replaces the palette index source of fallback gradients.
	Intn   func(n int) int
	Logger *slog.Logger
}

// Render re-skins a saved feed page and returns the rewritten HTML with the
// stylesheet injected into <head>, along with the pass report.
func Render(ctx context.Context, r io.Reader, opts RenderOptions) (string, report.Pass, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Sampler == nil {
		opts.Sampler = swatch.NewHTTPSampler(swatch.HTTPConfig{PublicOnly: true, Logger: opts.Logger})
	}
	var gopts []gradient.Option
	if opts.Intn != nil {
		gopts = append(gopts, gradient.WithIntn(opts.Intn))
	}

	doc, err := htmldoc.Parse(r, opts.URL)
	if err != nil {
		return "", report.Pass{}, fmt.Errorf("thumbtint: render: %w", err)
	}
	if _, err := doc.InjectStyle(style.ID, style.CSS); err != nil {
		return "", report.Pass{}, fmt.Errorf("thumbtint: render: inject style: %w", err)
	}

	orch := orchestrator.New(orchestrator.Config{
		Selectors:   opts.Selectors,
		Sampler:     opts.Sampler,
		Synthesizer: gradient.New(gopts...),
		Logger:      opts.Logger,
	})
	pass := orch.Run(ctx, doc)
	return doc.String(), pass, nil
}

// RenderString is Render over a string.
func RenderString(ctx context.Context, s string, opts RenderOptions) (string, report.Pass, error) {
	return Render(ctx, strings.NewReader(s), opts)
}

// Gradient is the gradient painted for one avatar color.
type Gradient struct {
	CSS      string `json:"css"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Angle    int    `json:"angle"`
	Fallback bool   `json:"fallback"`
}

// GradientFor derives the gradient for an "rgb(r, g, b)" color. Input that
// does not parse yields a fallback palette pair, like an avatar whose color
// could not be sampled.
func GradientFor(color string) Gradient {
	spec := gradient.New().FromCSS(color)
	return Gradient{
		CSS:      spec.CSS(),
		Start:    spec.Start.CSS(),
		End:      spec.End.CSS(),
		Angle:    spec.Angle,
		Fallback: spec.Fallback,
	}
}
