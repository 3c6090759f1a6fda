package mock

import (
	"context"

	"github.com/fwojciec/mirror"
)

var _ mirror.Store = (*Store)(nil)

// Store is a mock implementation of mirror.Store.
type Store struct {
	WriteFn       func(ctx context.Context, path string, data []byte) error
	ExistsFn      func(path string) bool
	WriteReportFn func(ctx context.Context, report *mirror.Report) error
}

func (s *Store) Write(ctx context.Context, path string, data []byte) error {
	return s.WriteFn(ctx, path, data)
}

func (s *Store) Exists(path string) bool {
	return s.ExistsFn(path)
}

func (s *Store) WriteReport(ctx context.Context, report *mirror.Report) error {
	return s.WriteReportFn(ctx, report)
}
