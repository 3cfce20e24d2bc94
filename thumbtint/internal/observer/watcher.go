// Package observer turns a stream of DOM mutation notifications into
// debounced, non-overlapping pipeline runs.
package observer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// State is the scheduling state of a Watcher.
type State int32

const (
	// Idle: no run is pending.
	Idle State = iota
	// Scheduled: the debounce timer is armed.
	Scheduled
)

func (s State) String() string {
	if s == Scheduled {
		return "scheduled"
	}
	return "idle"
}

// Config for creating a Watcher.
type Config struct {
	Window   time.Duration
	MaxDelay time.Duration
	// Run is invoked from the watcher goroutine only, so runs never overlap.
	Run    func(ctx context.Context)
	Logger *slog.Logger
}

// Watcher owns the Idle/Scheduled state machine of one page.
type Watcher struct {
	run    func(ctx context.Context)
	logger *slog.Logger
	deb    *debouncer

	notifyCh chan struct{}
	state    atomic.Int32
	running  atomic.Bool
	runs     atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Watcher. Call Start to begin.
func New(cfg Config) *Watcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Run == nil {
		cfg.Run = func(context.Context) {}
	}
	return &Watcher{
		run:      cfg.Run,
		logger:   cfg.Logger,
		deb:      newDebouncer(debounceConfig{Window: cfg.Window, MaxDelay: cfg.MaxDelay}),
		notifyCh: make(chan struct{}, 1),
	}
}

// Notify signals one mutation batch. It never blocks; notifications that
// arrive while one is already queued are coalesced.
func (w *Watcher) Notify() {
	select {
	case w.notifyCh <- struct{}{}:
	default:
	}
}

// State returns the current scheduling state.
func (w *Watcher) State() State { return State(w.state.Load()) }

// Running reports whether a run is in flight.
func (w *Watcher) Running() bool { return w.running.Load() }

// Runs returns how many runs have completed.
func (w *Watcher) Runs() uint64 { return w.runs.Load() }

// Start launches the watcher goroutine. It waits for ready (nil means the
// document is already parsed), runs once, then follows notifications until
// ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context, ready func(context.Context) error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.loop(ctx, ready)
}

// Stop cancels the loop and waits for the in-flight run to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed when the loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

func (w *Watcher) loop(ctx context.Context, ready func(context.Context) error) {
	defer close(w.done)
	defer w.deb.stop()

	if ready != nil {
		if err := ready(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Warn("observer: wait ready", "error", err)
		}
	}
	w.invoke(ctx)

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.notifyCh:
			if w.deb.add() {
				w.state.Store(int32(Scheduled))
			}

		case <-w.deb.timerC():
			w.deb.fired()
			// Back to Idle before the run so writes made by the run schedule
			// the next pass.
			w.state.Store(int32(Idle))
			w.invoke(ctx)
		}
	}
}

func (w *Watcher) invoke(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	w.running.Store(true)
	defer func() {
		w.running.Store(false)
		w.runs.Add(1)
		if r := recover(); r != nil {
			w.logger.Error("observer: run panicked", "panic", r)
		}
	}()
	w.run(ctx)
}
