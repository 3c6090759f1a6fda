package rod

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fwojciec/mirror"
	"golang.org/x/time/rate"
)

// JavaScript entry points into the instrumentation.
const (
	jsScroll    = `() => window.__mirror.scroll()`
	jsHeight    = `() => window.__mirror.height()`
	jsSample    = `() => window.__mirror.sample()`
	jsHydrate   = `() => window.__mirror.hydrate()`
	jsResources = `() => window.__mirror.resources()`
	jsDOMRefs   = `() => window.__mirror.domRefs()`
)

// ensureJS reinstalls the instrumentation when the document was created
// before it could be injected.
func ensureJS() string {
	return "() => {\n" + instrumentJS + "\n}"
}

// stage is a step of the stabilization protocol. Stages run strictly in
// declaration order.
type stage int

const (
	stageNavigating stage = iota
	stageLoaded
	stageScrolling
	stageNetworkIdle
	stageHydrating
	stageNetworkIdleAfterHydration
	stageSettling
	stageExtracting
	stageDone
)

func (s stage) String() string {
	switch s {
	case stageNavigating:
		return "navigating"
	case stageLoaded:
		return "loaded"
	case stageScrolling:
		return "scrolling"
	case stageNetworkIdle:
		return "network-idle"
	case stageHydrating:
		return "hydrating"
	case stageNetworkIdleAfterHydration:
		return "network-idle-2"
	case stageSettling:
		return "settling"
	case stageExtracting:
		return "extracting"
	case stageDone:
		return "done"
	default:
		return "unknown"
	}
}

// activity is one network idle sample.
type activity struct {
	Active    int `json:"active"`
	Images    int `json:"images"`
	Resources int `json:"resources"`
}

// stabilizer drives one page through the stabilization protocol. Every
// wait is bounded by a sample count or a wall-clock ceiling, so run always
// returns once navigation has succeeded.
type stabilizer struct {
	page   page
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	url   string
	stage stage
}

func (s *stabilizer) enter(next stage) {
	s.stage = next
	s.logger.Debug("render stage", "url", s.url, "stage", next)
}

func (s *stabilizer) run(ctx context.Context, url string) (*mirror.RenderResult, error) {
	s.url = url

	s.enter(stageNavigating)
	if err := s.page.Navigate(ctx, url, s.opts.NavigationTimeout); err != nil {
		if ctx.Err() != nil || !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("navigate %s: %w", url, err)
		}
		s.logger.Warn("page load ceiling reached", "url", url, "timeout", s.opts.NavigationTimeout)
	}

	s.enter(stageLoaded)
	if err := s.page.Eval(ctx, ensureJS(), nil); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("instrumentation failed", "url", url, "err", err)
	}

	s.enter(stageScrolling)
	if err := s.scroll(ctx); err != nil {
		return nil, err
	}

	s.enter(stageNetworkIdle)
	if err := s.waitIdle(ctx, s.opts.IdleQuiet, s.opts.IdleMax); err != nil {
		return nil, err
	}

	s.enter(stageHydrating)
	s.hydrate(ctx)

	s.enter(stageNetworkIdleAfterHydration)
	if err := s.waitIdle(ctx, s.opts.SecondIdleQuiet, s.opts.SecondIdleMax); err != nil {
		return nil, err
	}

	s.enter(stageSettling)
	if err := sleep(ctx, s.opts.SettleDelay); err != nil {
		return nil, err
	}
	s.hydrate(ctx)

	s.enter(stageExtracting)
	html, err := s.page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", url, err)
	}
	result := &mirror.RenderResult{
		HTML:      html,
		Resources: s.strings(ctx, jsResources),
		DOMRefs:   s.strings(ctx, jsDOMRefs),
	}

	s.enter(stageDone)
	return result, nil
}

// scroll scrolls to the bottom until the document height is unchanged for
// ScrollStableSamples consecutive samples or ScrollMaxIterations is reached.
func (s *stabilizer) scroll(ctx context.Context) error {
	pace := newPacer(s.opts.ScrollInterval)
	last, stable := 0, 0
	for i := 0; i < s.opts.ScrollMaxIterations; i++ {
		if err := s.page.Eval(ctx, jsScroll, nil); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Debug("scroll failed", "url", s.url, "err", err)
			return nil
		}
		if err := pace.wait(ctx); err != nil {
			return err
		}
		var h int
		if err := s.page.Eval(ctx, jsHeight, &h); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Debug("height check failed", "url", s.url, "err", err)
			return nil
		}
		if h == last {
			stable++
		} else {
			stable = 0
			last = h
		}
		if stable >= s.opts.ScrollStableSamples {
			s.logger.Debug("scroll stable", "url", s.url, "iterations", i+1, "height", h)
			return nil
		}
	}
	s.logger.Debug("scroll ceiling reached", "url", s.url, "iterations", s.opts.ScrollMaxIterations)
	return nil
}

// waitIdle returns once no XHR or fetch is in flight and the sample has
// not changed for quiet, or once max has elapsed.
func (s *stabilizer) waitIdle(ctx context.Context, quiet, ceiling time.Duration) error {
	pace := newPacer(s.opts.PollInterval)
	start := s.now()
	lastChange := start
	last := activity{Active: -1, Images: -1, Resources: -1}
	for {
		var cur activity
		if err := s.page.Eval(ctx, jsSample, &cur); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Debug("idle check failed", "url", s.url, "err", err)
			cur = activity{}
		}
		now := s.now()
		if cur != last {
			last = cur
			lastChange = now
		}
		if cur.Active == 0 && now.Sub(lastChange) >= quiet {
			return nil
		}
		if now.Sub(start) >= ceiling {
			s.logger.Debug("network idle ceiling reached", "url", s.url, "stage", s.stage, "active", cur.Active)
			return nil
		}
		if err := pace.wait(ctx); err != nil {
			return err
		}
	}
}

func (s *stabilizer) hydrate(ctx context.Context) {
	if err := s.page.Eval(ctx, jsHydrate, nil); err != nil {
		s.logger.Debug("hydrate failed", "url", s.url, "err", err)
	}
}

// strings evaluates a helper returning a string list. Failures yield nil.
func (s *stabilizer) strings(ctx context.Context, js string) []string {
	var out []string
	if err := s.page.Eval(ctx, js, &out); err != nil {
		s.logger.Debug("collect failed", "url", s.url, "js", js, "err", err)
		return nil
	}
	return out
}

// pacer spaces loop iterations at a fixed interval. The first wait blocks
// for a full interval.
type pacer struct {
	limiter *rate.Limiter
}

func newPacer(every time.Duration) *pacer {
	l := rate.NewLimiter(rate.Every(every), 1)
	l.Allow()
	return &pacer{limiter: l}
}

func (p *pacer) wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
