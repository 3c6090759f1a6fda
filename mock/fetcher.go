package mock

import (
	"context"

	"github.com/fwojciec/mirror"
)

var _ mirror.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of mirror.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (*mirror.Resource, error)
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*mirror.Resource, error) {
	return f.FetchFn(ctx, url)
}
