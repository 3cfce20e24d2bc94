package thumbtint

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hazyhaar/thumbtint/thumbtint/internal/kit"
	"github.com/hazyhaar/thumbtint/thumbtint/report"
)

// StatsSource answers aggregate queries over passes. *Tinter and *Store
// implement it.
type StatsSource interface {
	Stats(ctx context.Context, pageID string) (report.Stats, error)
}

type recentSource interface {
	Recent(ctx context.Context, pageID string, limit int) ([]report.Pass, error)
}

// ServiceConfig wires the operational surfaces. Every field is optional:
// without a Tinter only render and gradient work.
type ServiceConfig struct {
	Tinter *Tinter
	// Stats defaults to the Tinter's in-memory totals.
	Stats StatsSource
	// Render is the template for render requests; URL is taken per request.
	Render RenderOptions
	Logger *slog.Logger
}

// Service exposes a Tinter and offline rendering over MCP and HTTP. Both
// transports call the same endpoints.
type Service struct {
	tinter *Tinter
	stats  StatsSource
	render RenderOptions
	logger *slog.Logger

	renderEP     kit.Endpoint
	safeRenderEP kit.Endpoint
	gradientEP   kit.Endpoint
	pagesEP      kit.Endpoint
	runEP        kit.Endpoint
	statsEP      kit.Endpoint
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Render.Logger == nil {
		cfg.Render.Logger = cfg.Logger
	}
	s := &Service{
		tinter: cfg.Tinter,
		stats:  cfg.Stats,
		render: cfg.Render,
		logger: cfg.Logger,
	}
	if s.stats == nil && s.tinter != nil {
		s.stats = s.tinter
	}

	wrap := func(name string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.Logging(cfg.Logger, name))(ep)
	}
	s.renderEP = wrap("render", s.doRender)
	s.safeRenderEP = wrap("render", s.doSafeRender)
	s.gradientEP = wrap("gradient", s.doGradient)
	s.pagesEP = wrap("pages", s.doPages)
	s.runEP = wrap("run", s.doRun)
	s.statsEP = wrap("stats", s.doStats)
	return s
}

type renderRequest struct {
	HTML string `json:"html"`
	URL  string `json:"url,omitempty"`
}

type renderResponse struct {
	HTML string      `json:"html"`
	Pass report.Pass `json:"pass"`
}

type gradientRequest struct {
	Color string `json:"color"`
}

type pagesResponse struct {
	Pages []PageInfo `json:"pages"`
}

type pageRequest struct {
	PageID string `json:"page_id"`
}

type runResponse struct {
	PageID    string `json:"page_id"`
	Scheduled bool   `json:"scheduled"`
}

type statsResponse struct {
	Stats  report.Stats  `json:"stats"`
	Recent []report.Pass `json:"recent,omitempty"`
}

func (s *Service) doRender(ctx context.Context, req any) (any, error) {
	r := req.(*renderRequest)
	if r.HTML == "" {
		return nil, errors.New("html is required")
	}
	opts := s.render
	opts.URL = r.URL
	out, pass, err := RenderString(ctx, r.HTML, opts)
	if err != nil {
		return nil, err
	}
	return &renderResponse{HTML: out, Pass: pass}, nil
}

// doSafeRender is doRender with scripts stripped from the output.
func (s *Service) doSafeRender(ctx context.Context, req any) (any, error) {
	resp, err := s.doRender(ctx, req)
	if err != nil {
		return nil, err
	}
	rr := resp.(*renderResponse)
	rr.HTML = sanitizeRendered(rr.HTML)
	return rr, nil
}

func (s *Service) doGradient(_ context.Context, req any) (any, error) {
	return GradientFor(req.(*gradientRequest).Color), nil
}

func (s *Service) doPages(context.Context, any) (any, error) {
	resp := &pagesResponse{Pages: []PageInfo{}}
	if s.tinter != nil {
		resp.Pages = s.tinter.Pages()
	}
	return resp, nil
}

func (s *Service) doRun(_ context.Context, req any) (any, error) {
	r := req.(*pageRequest)
	if s.tinter == nil {
		return nil, ErrUnknownPage
	}
	if err := s.tinter.Trigger(r.PageID); err != nil {
		return nil, err
	}
	return &runResponse{PageID: r.PageID, Scheduled: true}, nil
}

func (s *Service) doStats(ctx context.Context, req any) (any, error) {
	r := req.(*pageRequest)
	if s.stats == nil {
		return &statsResponse{}, nil
	}
	st, err := s.stats.Stats(ctx, r.PageID)
	if err != nil {
		return nil, err
	}
	resp := &statsResponse{Stats: st}
	if rs, ok := s.stats.(recentSource); ok {
		if resp.Recent, err = rs.Recent(ctx, r.PageID, 10); err != nil {
			return nil, err
		}
	}
	return resp, nil
}
