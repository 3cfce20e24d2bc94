package browser

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// xvfbReadyTimeout bounds the wait for the X server socket.
const xvfbReadyTimeout = 5 * time.Second

// displaySocket maps ":99" or ":99.0" to the X server's unix socket.
func displaySocket(display string) (string, error) {
	n, _, _ := strings.Cut(strings.TrimPrefix(display, ":"), ".")
	if n == "" || strings.TrimLeft(n, "0123456789") != "" || !strings.HasPrefix(display, ":") {
		return "", fmt.Errorf("browser: unsupported display %q", display)
	}
	return filepath.Join("/tmp/.X11-unix", "X"+n), nil
}

// startXvfb runs the virtual display Chrome draws on in headful mode and
// returns once the server accepts connections.
func (m *Manager) startXvfb() error {
	if m.xvfb != nil {
		return nil
	}
	display := m.cfg.XvfbDisplay
	socket, err := displaySocket(display)
	if err != nil {
		return err
	}

	cmd := exec.Command("Xvfb", display, "-screen", "0", "1920x1080x24", "-nolisten", "tcp")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("browser: start xvfb: %w", err)
	}
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	if err := waitSocket(socket, exited, xvfbReadyTimeout); err != nil {
		cmd.Process.Kill()
		return fmt.Errorf("browser: xvfb on %s: %w", display, err)
	}
	m.xvfb = cmd
	m.xvfbExited = exited
	m.cfg.Logger.Info("browser: xvfb ready", "display", display, "pid", cmd.Process.Pid)
	return nil
}

func waitSocket(path string, exited <-chan error, timeout time.Duration) error {
	deadline := time.After(timeout)
	tick := time.NewTicker(25 * time.Millisecond)
	defer tick.Stop()
	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		select {
		case err := <-exited:
			if err == nil {
				err = errors.New("exited")
			}
			return fmt.Errorf("xvfb died before ready: %w", err)
		case <-deadline:
			return fmt.Errorf("no socket at %s after %s", path, timeout)
		case <-tick.C:
		}
	}
}

func (m *Manager) stopXvfb() {
	if m.xvfb == nil {
		return
	}
	m.xvfb.Process.Kill()
	<-m.xvfbExited
	m.cfg.Logger.Info("browser: xvfb stopped", "display", m.cfg.XvfbDisplay)
	m.xvfb, m.xvfbExited = nil, nil
}
