// Package thumbtint re-skins a video feed: every thumbnail is replaced by a
// gradient block derived from the channel avatar's color, with the title and
// metadata laid over it.
//
// A Tinter drives Chrome as a disposable component, one tab per configured
// page. Each tab carries a MutationObserver whose batches feed a debounced
// watcher; every pass is summarised in a report and fanned out to sinks.
// Render applies the same pipeline to a saved HTML document.
package thumbtint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/thumbtint/thumbtint/internal/browser"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/config"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/dom/roddoc"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/gradient"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/observer"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/orchestrator"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/sink"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/style"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/swatch"
	"github.com/hazyhaar/thumbtint/thumbtint/report"
)

// ErrUnknownPage is returned for a page ID with no active session.
var ErrUnknownPage = errors.New("thumbtint: unknown page")

// PageInfo describes one observed page.
type PageInfo struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	State   string `json:"state"`
	Running bool   `json:"running"`
	Runs    uint64 `json:"runs"`
}

type session struct {
	cfg     config.PageConfig
	tab     *browser.Tab
	watcher *observer.Watcher
	cancel  context.CancelFunc
}

func (s *session) stop() {
	s.cancel()
	s.watcher.Stop()
	s.tab.Close()
}

// Tinter is the top-level orchestrator. It manages the browser, one session
// per page, and the sinks.
type Tinter struct {
	cfg      *config.Config
	mgr      *browser.Manager
	sinkR    *sink.Router
	sampler  *swatch.HTTPSampler
	sessions map[string]*session
	mu       sync.Mutex
	logger   *slog.Logger

	statsMu sync.Mutex
	stats   map[string]report.Stats
}

// New creates a Tinter from configuration. A nil cfg means DefaultConfig.
func New(cfg *Config, logger *slog.Logger, sinks ...Sink) *Tinter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.Default()
	}

	mgr := browser.NewManager(browser.Config{
		RemoteURL:       cfg.Browser.Remote,
		MemoryLimit:     cfg.Browser.MemoryLimit,
		RecycleInterval: cfg.Browser.RecycleInterval,
		Block:           cfg.Browser.ResourceBlocking,
		Headful:         cfg.Browser.Stealth == "headful",
		XvfbDisplay:     cfg.Browser.XvfbDisplay,
		Logger:          logger,
	})

	return &Tinter{
		cfg:      cfg,
		mgr:      mgr,
		sinkR:    sink.NewRouter(logger, sinks...),
		sampler:  swatch.NewHTTPSampler(httpSamplerConfig(cfg.Sampler, logger)),
		sessions: make(map[string]*session),
		logger:   logger,
		stats:    make(map[string]report.Stats),
	}
}

func httpSamplerConfig(sc config.SamplerConfig, logger *slog.Logger) swatch.HTTPConfig {
	return swatch.HTTPConfig{
		Timeout:        sc.Timeout,
		MaxBytes:       sc.MaxBytes,
		AlphaThreshold: sc.AlphaThreshold,
		UserAgent:      sc.UserAgent,
		Logger:         logger,
	}
}

// Start launches the browser and begins re-skinning all configured pages.
func (t *Tinter) Start(ctx context.Context) error {
	if _, err := t.mgr.Start(ctx); err != nil {
		return fmt.Errorf("thumbtint: start browser: %w", err)
	}

	// Tabs die with the old browser: reopen every session on the new one.
	t.mgr.OnRecycle(func(*rod.Browser) { t.reconnect(ctx) })

	for _, page := range t.cfg.Pages {
		if err := t.ObservePage(ctx, page); err != nil {
			t.logger.Error("thumbtint: failed to observe page",
				"url", page.URL, "id", page.ID, "error", err)
		}
	}
	return nil
}

// ObservePage opens a tab on pageCfg.URL and keeps it re-skinned until Stop.
func (t *Tinter) ObservePage(ctx context.Context, pageCfg PageConfig) error {
	if pageCfg.URL == "" {
		return errors.New("thumbtint: page url is required")
	}
	if pageCfg.ID == "" {
		pageCfg.ID = pageCfg.URL
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.sessions[pageCfg.ID]; ok {
		return fmt.Errorf("thumbtint: page %q is already observed", pageCfg.ID)
	}
	return t.observePageLocked(ctx, pageCfg)
}

func (t *Tinter) observePageLocked(ctx context.Context, pageCfg config.PageConfig) error {
	tab, err := browser.OpenTab(ctx, t.mgr, pageCfg.ID, pageCfg.URL)
	if err != nil {
		return fmt.Errorf("thumbtint: open tab: %w", err)
	}
	doc := roddoc.New(tab.Page)
	logger := t.logger.With("page", pageCfg.ID)

	orch := orchestrator.New(orchestrator.Config{
		Selectors:   t.cfg.Selectors,
		Sampler:     t.samplerFor(tab.Page, logger),
		Synthesizer: gradient.New(),
		PageID:      pageCfg.ID,
		Logger:      logger,
	})

	w := observer.New(observer.Config{
		Window:   t.cfg.Debounce.Window,
		MaxDelay: t.cfg.Debounce.MaxDelay,
		Run: func(ctx context.Context) {
			pass := orch.Run(ctx, doc)
			t.record(pass)
			t.sinkR.Send(ctx, pass)
		},
		Logger: logger,
	})

	sctx, cancel := context.WithCancel(ctx)
	if err := observer.Attach(sctx, tab.Page, w.Notify, logger); err != nil {
		cancel()
		tab.Close()
		return fmt.Errorf("thumbtint: attach observer: %w", err)
	}

	w.Start(sctx, func(ctx context.Context) error {
		if err := doc.WaitReady(ctx); err != nil {
			return err
		}
		return doc.InjectStyle(style.CSS)
	})

	t.sessions[pageCfg.ID] = &session{cfg: pageCfg, tab: tab, watcher: w, cancel: cancel}
	logger.Info("thumbtint: observing page", "url", pageCfg.URL, "sampler", t.cfg.Sampler.Mode)
	return nil
}

func (t *Tinter) samplerFor(page *rod.Page, logger *slog.Logger) swatch.Sampler {
	sc := t.cfg.Sampler
	if sc.Mode == config.SamplerCanvas {
		threshold := swatch.DefaultAlphaThreshold
		if sc.AlphaThreshold != nil {
			threshold = *sc.AlphaThreshold
		}
		return swatch.NewCanvasSampler(page, sc.Timeout, threshold, logger)
	}
	return t.sampler
}

// Trigger schedules a pass on the page. It goes through the debouncer like
// any mutation batch.
func (t *Tinter) Trigger(pageID string) error {
	t.mu.Lock()
	s, ok := t.sessions[pageID]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPage, pageID)
	}
	s.watcher.Notify()
	return nil
}

// Pages lists the observed pages ordered by ID.
func (t *Tinter) Pages() []PageInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]PageInfo, 0, len(t.sessions))
	for id, s := range t.sessions {
		out = append(out, PageInfo{
			ID:      id,
			URL:     s.cfg.URL,
			State:   s.watcher.State().String(),
			Running: s.watcher.Running(),
			Runs:    s.watcher.Runs(),
		})
	}
	slices.SortFunc(out, func(a, b PageInfo) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Stats returns the totals of the passes run since New. An empty pageID
// covers every page.
func (t *Tinter) Stats(_ context.Context, pageID string) (report.Stats, error) {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	if pageID != "" {
		return t.stats[pageID], nil
	}
	var all report.Stats
	for _, st := range t.stats {
		all.Passes += st.Passes
		all.Candidates += st.Candidates
		all.Processed += st.Processed
		all.Skipped += st.Skipped
		all.Failed += st.Failed
		all.Fallbacks += st.Fallbacks
	}
	return all, nil
}

// record counts passes the way the store does: passes that replaced
// nothing and failed nothing are ignored.
func (t *Tinter) record(pass report.Pass) {
	if pass.Processed == 0 && pass.Failed == 0 {
		return
	}
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	st := t.stats[pass.PageID]
	st.Passes++
	st.Candidates += int64(pass.Candidates)
	st.Processed += int64(pass.Processed)
	st.Skipped += int64(pass.Skipped)
	st.Failed += int64(pass.Failed)
	for _, it := range pass.Items {
		if it.Fallback {
			st.Fallbacks++
		}
	}
	t.stats[pass.PageID] = st
}

// Stop shuts down all sessions, the sinks and the browser.
func (t *Tinter) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, s := range t.sessions {
		s.stop()
		t.logger.Info("thumbtint: stopped page", "id", id)
	}
	t.sessions = make(map[string]*session)

	t.sinkR.Close()
	t.mgr.Close()
}

func (t *Tinter) reconnect(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	old := t.sessions
	t.sessions = make(map[string]*session)
	for _, s := range old {
		s.stop()
	}
	for _, s := range old {
		if err := t.observePageLocked(ctx, s.cfg); err != nil {
			t.logger.Error("thumbtint: reconnect page failed",
				"url", s.cfg.URL, "id", s.cfg.ID, "error", err)
		}
	}
}
