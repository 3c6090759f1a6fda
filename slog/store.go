package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/mirror"
)

// Ensure LoggingStore implements mirror.Store.
var _ mirror.Store = (*LoggingStore)(nil)

// LoggingStore wraps a Store with logging of file writes.
type LoggingStore struct {
	next   mirror.Store
	logger *slog.Logger
}

// NewLoggingStore creates a new LoggingStore.
func NewLoggingStore(next mirror.Store, logger *slog.Logger) *LoggingStore {
	return &LoggingStore{next: next, logger: logger}
}

// Write logs the path written and delegates to the wrapped store.
func (s *LoggingStore) Write(ctx context.Context, path string, data []byte) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("write",
			"path", path,
			"bytes", len(data),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Write(ctx, path, data)
}

// Exists delegates to the wrapped store.
func (s *LoggingStore) Exists(path string) bool {
	return s.next.Exists(path)
}

// WriteReport logs the report size and delegates to the wrapped store.
func (s *LoggingStore) WriteReport(ctx context.Context, report *mirror.Report) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("write report",
			"records", report.Len(),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.WriteReport(ctx, report)
}
