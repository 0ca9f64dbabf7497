package browser

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// displayReadyTimeout bounds the wait for the Xvfb socket.
const displayReadyTimeout = 3 * time.Second

// startXvfb provides the virtual display for headful mode and waits for its
// X socket to appear. Caller holds m.mu.
func (m *Manager) startXvfb() error {
	if m.xvfb != nil {
		return nil
	}

	display := m.cfg.XvfbDisplay
	cmd := exec.Command("Xvfb", display, "-screen", "0", "1366x900x24", "-nolisten", "tcp")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start xvfb %s: %w", display, err)
	}

	sock := socketPath(display)
	deadline := time.Now().Add(displayReadyTimeout)
	for {
		if _, err := os.Stat(sock); err == nil {
			break
		}
		if time.Now().After(deadline) {
			cmd.Process.Kill()
			cmd.Wait()
			return fmt.Errorf("xvfb %s: socket %s not ready after %s", display, sock, displayReadyTimeout)
		}
		time.Sleep(50 * time.Millisecond)
	}

	m.xvfb = cmd
	m.cfg.Logger.Info("browser: display ready", "display", display, "pid", cmd.Process.Pid)
	return nil
}

func (m *Manager) stopXvfb() {
	if m.xvfb == nil {
		return
	}
	if p := m.xvfb.Process; p != nil {
		p.Kill()
		m.xvfb.Wait()
	}
	m.xvfb = nil
	m.cfg.Logger.Info("browser: display stopped", "display", m.cfg.XvfbDisplay)
}

// socketPath maps ":99" (or ":99.0") to /tmp/.X11-unix/X99.
func socketPath(display string) string {
	n := strings.TrimPrefix(display, ":")
	if i := strings.IndexByte(n, '.'); i >= 0 {
		n = n[:i]
	}
	return "/tmp/.X11-unix/X" + n
}
