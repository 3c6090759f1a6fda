package regex

import (
	"log/slog"

	"github.com/fwojciec/mirror"
)

// Compile-time interface verification.
var _ mirror.Extractor = (*Extractor)(nil)

// Extractor discovers references in text with a fixed set of patterns and
// keeps those accepted by the in-scope filter of its kind.
type Extractor struct {
	scope    *mirror.Scope
	kind     mirror.Kind
	patterns []pattern
	logger   *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger logs quoted-string matches that were rejected by the scope or
// extension filters at debug level, separately from structured matches.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

func newExtractor(scope *mirror.Scope, kind mirror.Kind, patterns []pattern, opts []Option) *Extractor {
	e := &Extractor{
		scope:    scope,
		kind:     kind,
		patterns: patterns,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewCSSExtractor returns an Extractor for @import and url() references.
func NewCSSExtractor(scope *mirror.Scope, opts ...Option) *Extractor {
	return newExtractor(scope, mirror.KindCSS, cssPatterns, opts)
}

// NewJSExtractor returns an Extractor for module, worker and service
// worker references plus quoted root-relative strings.
func NewJSExtractor(scope *mirror.Scope, opts ...Option) *Extractor {
	patterns := append(append([]pattern{}, jsPatterns...), genericPattern)
	return newExtractor(scope, mirror.KindJS, patterns, opts)
}

// NewJSONExtractor returns an Extractor for quoted root-relative strings in
// manifests, source maps and other data files.
func NewJSONExtractor(scope *mirror.Scope, opts ...Option) *Extractor {
	return newExtractor(scope, mirror.KindJSONLike, []pattern{genericPattern}, opts)
}

// Extract returns canonical in-scope URLs in pattern order, without duplicates.
func (e *Extractor) Extract(text string, baseURL string) []string {
	var urls []string
	seen := make(map[string]bool)
	for _, p := range e.patterns {
		p.each(text, func(ref string) {
			if !plausible(ref) {
				return
			}
			abs, ok := e.scope.ResolveIn(e.kind, ref, baseURL)
			if !ok {
				if p.generic {
					e.logger.Debug("unresolved string match", "kind", e.kind, "ref", ref, "base", baseURL)
				}
				return
			}
			if seen[abs] {
				return
			}
			seen[abs] = true
			urls = append(urls, abs)
		})
	}
	return urls
}
