package mock

import "github.com/fwojciec/mirror"

var _ mirror.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of mirror.Extractor.
type Extractor struct {
	ExtractFn func(text string, baseURL string) []string
}

func (e *Extractor) Extract(text string, baseURL string) []string {
	return e.ExtractFn(text, baseURL)
}

var _ mirror.Rewriter = (*Rewriter)(nil)

// Rewriter is a mock implementation of mirror.Rewriter.
type Rewriter struct {
	RewriteFn func(text string, file string) (string, []mirror.RewriteRecord)
}

func (r *Rewriter) Rewrite(text string, file string) (string, []mirror.RewriteRecord) {
	return r.RewriteFn(text, file)
}
