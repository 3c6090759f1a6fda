package mock

import (
	"context"

	"github.com/fwojciec/mirror"
)

var _ mirror.Renderer = (*Renderer)(nil)

// Renderer is a mock implementation of mirror.Renderer.
type Renderer struct {
	RenderFn func(ctx context.Context, url string) (*mirror.RenderResult, error)
	CloseFn  func() error
}

func (r *Renderer) Render(ctx context.Context, url string) (*mirror.RenderResult, error) {
	return r.RenderFn(ctx, url)
}

func (r *Renderer) Close() error {
	return r.CloseFn()
}
