package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/fwojciec/mirror"
)

// DefaultModuleVariants returns the suffixes tried, in order, when an
// extensionless module specifier does not resolve as-is.
func DefaultModuleVariants() []string {
	return []string{".js", ".mjs", "/index.js", "/index.mjs"}
}

// module is a resolved module specifier.
type module struct {
	url string
	res *mirror.Resource
}

// resolver resolves extensionless module specifiers found in JS.
// Results, failures included, are cached so each specifier costs at most
// one pass over the variant chain per run.
type resolver struct {
	fetcher  mirror.Fetcher
	mapper   *mirror.Mapper
	logger   *slog.Logger
	variants []string

	cache map[string]*module
	fails map[string]error
}

func newResolver(fetcher mirror.Fetcher, mapper *mirror.Mapper, logger *slog.Logger, variants []string) *resolver {
	if variants == nil {
		variants = DefaultModuleVariants()
	}
	return &resolver{
		fetcher:  fetcher,
		mapper:   mapper,
		logger:   logger,
		variants: variants,
		cache:    make(map[string]*module),
		fails:    make(map[string]error),
	}
}

// resolve fetches specifier, falling back to its suffix variants when the
// literal URL is missing. A variant that answers becomes an alias of the
// specifier in the mapper.
func (r *resolver) resolve(ctx context.Context, specifier string) (*module, error) {
	if m, ok := r.cache[specifier]; ok {
		return m, nil
	}
	if err, ok := r.fails[specifier]; ok {
		return nil, err
	}

	m, err := r.lookup(ctx, specifier)
	if err != nil {
		if ctx.Err() == nil {
			r.fails[specifier] = err
		}
		return nil, err
	}
	r.cache[specifier] = m
	return m, nil
}

func (r *resolver) lookup(ctx context.Context, specifier string) (*module, error) {
	res, err := r.fetcher.Fetch(ctx, specifier)
	if !missing(res, err) {
		if err != nil {
			return nil, err
		}
		return &module{url: specifier, res: res}, nil
	}

	for _, suffix := range r.variants {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candidate, err := withSuffix(specifier, suffix)
		if err != nil {
			return nil, err
		}
		res, err := r.fetcher.Fetch(ctx, candidate)
		if missing(res, err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		r.mapper.Alias(specifier, candidate)
		r.logger.Info("module fallback", "from", specifier, "to", candidate)
		return &module{url: candidate, res: res}, nil
	}

	r.logger.Warn("module fallback failed", "url", specifier, "tried", len(r.variants))
	return nil, mirror.Errorf(mirror.ENOTFOUND, "module %s not found", specifier)
}

// missing reports whether a fetch outcome means the module is not there.
// An HTML answer is a single-page-app catch-all, not a module.
func missing(res *mirror.Resource, err error) bool {
	if err != nil {
		return mirror.ErrorCode(err) == mirror.ENOTFOUND
	}
	return mirror.KindFromContentType(res.ContentType) == mirror.KindHTML
}

func withSuffix(rawURL, suffix string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", rawURL, err)
	}
	u.Path += suffix
	u.RawPath = ""
	return u.String(), nil
}
