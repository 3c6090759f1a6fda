package mirror

import "context"

// Resource is the raw result of a plain HTTP GET.
type Resource struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher retrieves non-HTML resources over plain HTTP.
type Fetcher interface {
	// Fetch issues a GET for url and returns the response.
	// Non-2xx responses return an error with code ENOTFOUND (404, 410) or
	// EUNAVAILABLE; network failures return an EINTERNAL error.
	Fetch(ctx context.Context, url string) (*Resource, error)
}
