package observer

import "time"

// debounceConfig controls the coalescing of mutation batches.
type debounceConfig struct {
	// Window is the quiet period before a run. Default: 100ms.
	Window time.Duration
	// MaxDelay bounds how long resets can postpone a run. Default: 1s.
	MaxDelay time.Duration
}

func (dc *debounceConfig) defaults() {
	if dc.Window <= 0 {
		dc.Window = 100 * time.Millisecond
	}
	if dc.MaxDelay <= 0 {
		dc.MaxDelay = time.Second
	}
	if dc.MaxDelay < dc.Window {
		dc.MaxDelay = dc.Window
	}
}

// debouncer arms a single timer. It is owned by the watcher loop and is
// not safe for concurrent use.
type debouncer struct {
	cfg     debounceConfig
	first   time.Time // first notify of the current burst; zero when idle
	timer   *time.Timer
	timerCh <-chan time.Time
	now     func() time.Time
}

func newDebouncer(cfg debounceConfig) *debouncer {
	cfg.defaults()
	return &debouncer{cfg: cfg, now: time.Now}
}

// add records a notify and (re)arms the timer. It reports whether this
// notify opened a new burst.
func (d *debouncer) add() bool {
	now := d.now()
	opened := d.first.IsZero()
	if opened {
		d.first = now
	}
	d.arm(wait(d.cfg, now.Sub(d.first)))
	return opened
}

func (d *debouncer) arm(after time.Duration) {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.NewTimer(after)
	d.timerCh = d.timer.C
}

// timerC returns the channel that fires when the burst is over.
func (d *debouncer) timerC() <-chan time.Time {
	return d.timerCh
}

// fired resets the debouncer after the timer expired.
func (d *debouncer) fired() {
	d.first = time.Time{}
	d.timer = nil
	d.timerCh = nil
}

func (d *debouncer) stop() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.fired()
}

// wait is the delay to arm for a notify arriving elapsed after the first
// one of its burst.
func wait(cfg debounceConfig, elapsed time.Duration) time.Duration {
	left := cfg.MaxDelay - elapsed
	if left < 0 {
		return 0
	}
	return min(cfg.Window, left)
}
