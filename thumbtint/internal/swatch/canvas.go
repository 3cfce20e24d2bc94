package swatch

import (
	"context"
	_ "embed"
	"encoding/base64"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
)

//go:embed canvas.js
var canvasJS string

// CanvasSampler loads the image inside the observed page, draws it on an
// off-screen canvas and reads the pixels back. The image is requested with
// crossOrigin "anonymous"; a tainted canvas counts as unavailable.
type CanvasSampler struct {
	page      *rod.Page
	timeout   time.Duration
	threshold uint8
	logger    *slog.Logger
}

// NewCanvasSampler creates a sampler bound to page.
func NewCanvasSampler(page *rod.Page, timeout time.Duration, threshold uint8, logger *slog.Logger) *CanvasSampler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CanvasSampler{page: page, timeout: timeout, threshold: threshold, logger: logger}
}

// Sample implements Sampler.
func (s *CanvasSampler) Sample(ctx context.Context, url string) (RGB, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.page.Context(ctx).Eval(canvasJS, url)
	if err != nil {
		s.logger.Debug("swatch: canvas eval failed", "url", url, "error", err)
		return RGB{}, false
	}
	if res.Value.Nil() {
		s.logger.Debug("swatch: canvas readback unavailable", "url", url)
		return RGB{}, false
	}

	pix, err := base64.StdEncoding.DecodeString(res.Value.Str())
	if err != nil {
		s.logger.Debug("swatch: canvas payload", "url", url, "error", err)
		return RGB{}, false
	}
	return Sum(pix, s.threshold)
}
