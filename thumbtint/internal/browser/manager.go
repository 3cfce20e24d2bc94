// Package browser runs the Chrome instance that hosts re-skinned feed pages:
// launch or connect, watch heap usage, recycle on a limit or interval.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// ErrClosed is returned once Close has been called.
var ErrClosed = errors.New("browser: manager is closed")

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the DevTools WebSocket of an external Chrome.
	// Empty launches a local one.
	RemoteURL string
	// MemoryLimit in bytes of JS heap before a recycle. Default: 1GB.
	MemoryLimit int64
	// RecycleInterval is the maximum lifetime of a Chrome process. Default: 4h.
	RecycleInterval time.Duration
	// Block lists resource types to refuse (fonts, media, stylesheets).
	// Images are never blocked: avatars must load to be sampled.
	Block []string
	// Headful runs Chrome with a window on an Xvfb display.
	Headful     bool
	XvfbDisplay string
	// MonitorInterval is the period of the recycle checks. Default: 30s.
	MonitorInterval time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MemoryLimit <= 0 {
		c.MemoryLimit = 1 << 30
	}
	if c.RecycleInterval <= 0 {
		c.RecycleInterval = 4 * time.Hour
	}
	if c.XvfbDisplay == "" {
		c.XvfbDisplay = ":99"
	}
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns one Chrome process at a time.
type Manager struct {
	cfg        Config
	mu         sync.RWMutex
	browser    *rod.Browser
	lnch       *launcher.Launcher
	xvfb       *exec.Cmd
	xvfbExited chan error
	startAt    time.Time
	closed     bool
	onRecycle  []func(*rod.Browser)
}

// NewManager creates a Manager. Call Start to launch Chrome.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// OnRecycle registers fn to run with the new browser after each recycle.
func (m *Manager) OnRecycle(fn func(*rod.Browser)) {
	m.mu.Lock()
	m.onRecycle = append(m.onRecycle, fn)
	m.mu.Unlock()
}

// Start launches or connects to Chrome and starts the monitor goroutine.
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	b, err := m.launch()
	if err != nil {
		return nil, err
	}
	m.browser = b
	m.startAt = time.Now()
	go m.monitorLoop(ctx)
	return b, nil
}

// Browser returns the current browser handle.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// Uptime is the age of the current Chrome process.
func (m *Manager) Uptime() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.browser == nil {
		return 0
	}
	return time.Since(m.startAt)
}

// Recycle restarts Chrome and hands the new browser to OnRecycle hooks.
func (m *Manager) Recycle(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.cfg.Logger.Info("browser: recycling", "uptime", time.Since(m.startAt))
	m.cleanup()
	b, err := m.launch()
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("browser: relaunch: %w", err)
	}
	m.browser = b
	m.startAt = time.Now()
	hooks := append([]func(*rod.Browser){}, m.onRecycle...)
	m.mu.Unlock()

	// Hooks reopen tabs through Browser(); they run without the lock.
	for _, fn := range hooks {
		fn(b)
	}
	m.cfg.Logger.Info("browser: recycled")
	return nil
}

// Close shuts down Chrome and Xvfb.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cleanup()
	return nil
}

func (m *Manager) launch() (*rod.Browser, error) {
	log := m.cfg.Logger

	wsURL := m.cfg.RemoteURL
	if wsURL != "" {
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New()
		if m.cfg.Headful {
			if err := m.startXvfb(); err != nil {
				return nil, fmt.Errorf("browser: xvfb: %w", err)
			}
			l = l.Headless(false).Env("DISPLAY=" + m.cfg.XvfbDisplay)
		} else {
			l = l.Headless(true)
		}
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "headful", m.cfg.Headful)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	return b, nil
}

func (m *Manager) cleanup() {
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	m.stopXvfb()
}

func (m *Manager) monitorLoop(ctx context.Context) {
	log := m.cfg.Logger
	ticker := time.NewTicker(m.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.RLock()
			closed, b, startAt := m.closed, m.browser, m.startAt
			m.mu.RUnlock()
			if closed {
				return
			}
			if b == nil {
				continue
			}

			reason := ""
			if time.Since(startAt) > m.cfg.RecycleInterval {
				reason = "interval"
			} else if used, err := heapUsage(b); err != nil {
				log.Debug("browser: heap check failed", "error", err)
			} else if used > m.cfg.MemoryLimit {
				reason = "memory"
				log.Info("browser: memory limit exceeded", "used", used, "limit", m.cfg.MemoryLimit)
			}
			if reason == "" {
				continue
			}
			if err := m.Recycle(ctx); err != nil {
				log.Error("browser: recycle failed", "reason", reason, "error", err)
			}
		}
	}
}

// heapUsage sums the used JS heap over open pages.
func heapUsage(b *rod.Browser) (int64, error) {
	pages, err := b.Pages()
	if err != nil {
		return 0, fmt.Errorf("browser: list pages: %w", err)
	}
	var total int64
	for _, p := range pages {
		res, err := p.Eval(`() => performance.memory ? performance.memory.usedJSHeapSize : 0`)
		if err != nil {
			continue
		}
		total += int64(res.Value.Int())
	}
	return total, nil
}
