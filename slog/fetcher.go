// Package slog provides logging decorators for the mirror's I/O
// components. Each decorator logs one line per operation.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/mirror"
)

// Ensure LoggingFetcher implements mirror.Fetcher.
var _ mirror.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher with logging of HTTP status and size.
type LoggingFetcher struct {
	next   mirror.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next mirror.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch logs the URL being fetched and delegates to the wrapped fetcher.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string) (res *mirror.Resource, err error) {
	defer func(begin time.Time) {
		var status, size int
		var contentType string
		if res != nil {
			status, size, contentType = res.StatusCode, len(res.Body), res.ContentType
		}
		f.logger.Info("fetch",
			"url", url,
			"status", status,
			"content_type", contentType,
			"bytes", size,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.Fetch(ctx, url)
}
