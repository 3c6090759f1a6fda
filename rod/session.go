package rod

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Session owns one headless browser process for the lifetime of a run.
// Close is safe to call multiple times.
type Session struct {
	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// NewSession launches a headless Chrome with stability flags and the
// configured window size and user agent.
func NewSession(opts Options) (*Session, error) {
	l := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Set("disable-gpu").
		Set("window-size", strconv.Itoa(opts.ViewportWidth)+","+strconv.Itoa(opts.ViewportHeight)).
		Leakless(true).
		Headless(true)
	if opts.UserAgent != "" {
		l = l.Set("user-agent", opts.UserAgent)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	return &Session{browser: browser, launcher: l}, nil
}

// Browser returns the connected browser, or nil after Close.
func (s *Session) Browser() *rod.Browser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browser
}

// Close shuts down the browser and kills the launcher process.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher = nil
	}
	return err
}

// LauncherPID returns the process ID of the browser launcher, or 0 once closed.
func (s *Session) LauncherPID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.launcher == nil {
		return 0
	}
	return s.launcher.PID()
}
