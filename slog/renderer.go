package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/mirror"
)

// Ensure LoggingRenderer implements mirror.Renderer.
var _ mirror.Renderer = (*LoggingRenderer)(nil)

// LoggingRenderer wraps a Renderer with logging of page navigations.
type LoggingRenderer struct {
	next   mirror.Renderer
	logger *slog.Logger
}

// NewLoggingRenderer creates a new LoggingRenderer.
func NewLoggingRenderer(next mirror.Renderer, logger *slog.Logger) *LoggingRenderer {
	return &LoggingRenderer{next: next, logger: logger}
}

// Render logs the navigation and delegates to the wrapped renderer.
func (r *LoggingRenderer) Render(ctx context.Context, url string) (res *mirror.RenderResult, err error) {
	defer func(begin time.Time) {
		var size, resources, refs int
		if res != nil {
			size, resources, refs = len(res.HTML), len(res.Resources), len(res.DOMRefs)
		}
		r.logger.Info("navigate",
			"url", url,
			"bytes", size,
			"resources", resources,
			"dom_refs", refs,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return r.next.Render(ctx, url)
}

// Close delegates to the wrapped renderer.
func (r *LoggingRenderer) Close() error {
	return r.next.Close()
}
