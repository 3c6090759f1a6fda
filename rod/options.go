package rod

import "time"

// Options configures the browser session and the page stabilization protocol.
type Options struct {
	// UserAgent overrides the browser's user agent when non-empty.
	UserAgent string

	// ViewportWidth and ViewportHeight set the emulated window size.
	ViewportWidth  int
	ViewportHeight int

	// NavigationTimeout bounds navigation plus the load event.
	NavigationTimeout time.Duration

	// ScrollInterval is the pause between scrolling to the bottom and
	// measuring the document height.
	ScrollInterval time.Duration
	// ScrollStableSamples is the number of consecutive unchanged heights
	// that ends scrolling.
	ScrollStableSamples int
	// ScrollMaxIterations caps scrolling on infinitely growing pages.
	ScrollMaxIterations int

	// PollInterval paces network idle sampling.
	PollInterval time.Duration
	// IdleQuiet and IdleMax bound the first network idle wait.
	IdleQuiet time.Duration
	IdleMax   time.Duration
	// SecondIdleQuiet and SecondIdleMax bound the wait after hydration.
	SecondIdleQuiet time.Duration
	SecondIdleMax   time.Duration

	// SettleDelay is the fixed wait before the final hydration.
	SettleDelay time.Duration
}

// DefaultOptions returns the stabilization defaults.
func DefaultOptions() Options {
	return Options{
		UserAgent:           "fetcher/4.4",
		ViewportWidth:       1920,
		ViewportHeight:      1080,
		NavigationTimeout:   120 * time.Second,
		ScrollInterval:      350 * time.Millisecond,
		ScrollStableSamples: 6,
		ScrollMaxIterations: 80,
		PollInterval:        250 * time.Millisecond,
		IdleQuiet:           1500 * time.Millisecond,
		IdleMax:             60 * time.Second,
		SecondIdleQuiet:     800 * time.Millisecond,
		SecondIdleMax:       20 * time.Second,
		SettleDelay:         10 * time.Second,
	}
}
