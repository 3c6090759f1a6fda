// Package rod implements mirror.Renderer with a headless Chrome driven by
// go-rod. Each page is run through a bounded stabilization protocol:
// scroll until the height settles, wait for network idle, materialize lazy
// images, wait again, settle, hydrate once more and serialize.
package rod

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fwojciec/mirror"
	"github.com/go-rod/rod/lib/proto"
)

// Ensure Renderer implements mirror.Renderer at compile time.
var _ mirror.Renderer = (*Renderer)(nil)

// Renderer renders pages one at a time in a shared browser session.
type Renderer struct {
	session *Session
	opts    Options
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewRenderer launches a browser session configured by opts.
// Close must be called when the Renderer is no longer needed.
func NewRenderer(opts Options, logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	session, err := NewSession(opts)
	if err != nil {
		return nil, err
	}
	return &Renderer{session: session, opts: opts, logger: logger}, nil
}

// Render opens a new tab, stabilizes the page at url and returns its
// serialized DOM with the resource and DOM references observed.
func (r *Renderer) Render(ctx context.Context, url string) (*mirror.RenderResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, mirror.Errorf(mirror.EINVALID, "renderer closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tab, err := r.session.Browser().Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}
	defer tab.Close()

	p, err := newRodPage(tab, r.opts)
	if err != nil {
		return nil, err
	}

	s := &stabilizer{page: p, opts: r.opts, logger: r.logger, now: time.Now}
	return s.run(ctx, url)
}

// Close releases the browser session. Later Render calls fail with EINVALID.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.session.Close()
}
