package crawl_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/fwojciec/mirror"
	"github.com/fwojciec/mirror/crawl"
	"github.com/fwojciec/mirror/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const origin = "https://example.com"

// site is an in-memory origin plus an in-memory store.
type site struct {
	mu      sync.Mutex
	pages   map[string]*mirror.RenderResult
	assets  map[string]*mirror.Resource
	files   map[string][]byte
	fetches map[string]int
	renders map[string]int
	reports []*mirror.Report
	logs    bytes.Buffer
}

func newSite() *site {
	return &site{
		pages:   make(map[string]*mirror.RenderResult),
		assets:  make(map[string]*mirror.Resource),
		files:   make(map[string][]byte),
		fetches: make(map[string]int),
		renders: make(map[string]int),
	}
}

func (s *site) asset(u, contentType, body string) {
	s.assets[u] = &mirror.Resource{URL: u, StatusCode: 200, ContentType: contentType, Body: []byte(body)}
}

func (s *site) crawler(t *testing.T) *crawl.Crawler {
	t.Helper()

	scope, err := mirror.NewScope(origin + "/")
	require.NoError(t, err)

	identity := &mock.Rewriter{
		RewriteFn: func(text string, _ string) (string, []mirror.RewriteRecord) {
			return text, nil
		},
	}
	none := &mock.Extractor{
		ExtractFn: func(string, string) []string { return nil },
	}

	return &crawl.Crawler{
		Scope:    scope,
		Mapper:   mirror.NewMapper(scope),
		Frontier: crawl.NewFrontier(100, 0.01),
		Renderer: &mock.Renderer{
			RenderFn: func(_ context.Context, u string) (*mirror.RenderResult, error) {
				s.mu.Lock()
				defer s.mu.Unlock()
				s.renders[u]++
				res, ok := s.pages[u]
				if !ok {
					return nil, errors.New("navigation failed")
				}
				return res, nil
			},
		},
		Fetcher: &mock.Fetcher{
			FetchFn: func(_ context.Context, u string) (*mirror.Resource, error) {
				s.mu.Lock()
				defer s.mu.Unlock()
				s.fetches[u]++
				res, ok := s.assets[u]
				if !ok {
					return nil, mirror.Errorf(mirror.ENOTFOUND, "HTTP 404 for %s", u)
				}
				return res, nil
			},
		},
		Store: &mock.Store{
			WriteFn: func(_ context.Context, path string, data []byte) error {
				s.mu.Lock()
				defer s.mu.Unlock()
				s.files[path] = data
				return nil
			},
			ExistsFn: func(path string) bool {
				s.mu.Lock()
				defer s.mu.Unlock()
				_, ok := s.files[path]
				return ok
			},
			WriteReportFn: func(ctx context.Context, report *mirror.Report) error {
				require.NoError(t, ctx.Err())
				s.mu.Lock()
				defer s.mu.Unlock()
				s.reports = append(s.reports, report)
				return nil
			},
		},
		Extractors: map[mirror.Kind]mirror.Extractor{
			mirror.KindHTML:     none,
			mirror.KindCSS:      none,
			mirror.KindJS:       none,
			mirror.KindJSONLike: none,
		},
		Rewriters: map[mirror.Kind]mirror.Rewriter{
			mirror.KindHTML: identity,
			mirror.KindJS:   identity,
		},
		Logger: slog.New(slog.NewTextHandler(&s.logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
}

// extractByBase returns an extractor answering from a fixed table.
func extractByBase(table map[string][]string) *mock.Extractor {
	return &mock.Extractor{
		ExtractFn: func(_ string, baseURL string) []string {
			return table[baseURL]
		},
	}
}

func TestCrawler_Run(t *testing.T) {
	t.Parallel()

	t.Run("mirrors pages and assets from every discovery source", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.pages[origin+"/"] = &mirror.RenderResult{
			HTML:      "<html>home</html>",
			Resources: []string{origin + "/app.js", "https://cdn.other.example/x.js"},
			DOMRefs:   []string{"/img/a.png"},
		}
		s.pages[origin+"/about"] = &mirror.RenderResult{HTML: "<html>about</html>"}
		s.asset(origin+"/about", "text/html; charset=utf-8", "<html>about</html>")
		s.asset(origin+"/app.js", "application/javascript", `import "/mod/util";`)
		s.asset(origin+"/img/a.png", "image/png", "\x89PNG\r\n\x1a\n\xff\xfe")
		s.asset(origin+"/mod/util.js", "text/javascript", "export const x = 1;")

		c := s.crawler(t)
		c.Extractors[mirror.KindHTML] = extractByBase(map[string][]string{
			origin + "/":      {origin + "/about"},
			origin + "/about": {origin + "/", origin + "/about"},
		})
		c.Extractors[mirror.KindJS] = extractByBase(map[string][]string{
			origin + "/app.js": {origin + "/mod/util"},
		})
		c.Rewriters[mirror.KindJS] = &mock.Rewriter{
			RewriteFn: func(text string, file string) (string, []mirror.RewriteRecord) {
				if file != "app.js" {
					return text, nil
				}
				to := mirror.RelativeRef(file, c.Mapper.Path(origin+"/mod/util"), "")
				rec := mirror.RewriteRecord{File: file, From: "/mod/util", To: to, Kind: mirror.KindJS}
				return strings.ReplaceAll(text, "/mod/util", to), []mirror.RewriteRecord{rec}
			},
		}

		result, err := c.Run(context.Background(), origin)
		require.NoError(t, err)

		assert.Equal(t, 2, result.Pages)
		assert.Equal(t, 3, result.Assets)
		assert.Equal(t, 0, result.Failed)
		assert.Equal(t, 1, result.Rewrites)
		assert.Equal(t, 0, result.Missing)

		assert.Equal(t, "<html>home</html>", string(s.files["index.html"]))
		assert.Equal(t, "<html>about</html>", string(s.files["about.html"]))
		assert.Equal(t, `import "./mod/util.js";`, string(s.files["app.js"]))
		assert.Equal(t, "export const x = 1;", string(s.files["mod/util.js"]))
		assert.Equal(t, "\x89PNG\r\n\x1a\n\xff\xfe", string(s.files["img/a.png"]))
		assert.Len(t, s.files, 5)

		assert.Equal(t, 1, s.renders[origin+"/"])
		assert.Equal(t, 1, s.renders[origin+"/about"])
		assert.Equal(t, 1, s.fetches[origin+"/about"])
		assert.Equal(t, 1, s.fetches[origin+"/mod/util"])
		assert.Equal(t, 1, s.fetches[origin+"/mod/util.js"])
		assert.Zero(t, s.fetches["https://cdn.other.example/x.js"])

		require.Len(t, s.reports, 1)
		assert.Equal(t, 1, s.reports[0].Len())
		assert.Contains(t, s.logs.String(), "module fallback")
	})

	t.Run("writes the report even when every page fails", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		c := s.crawler(t)

		result, err := c.Run(context.Background(), origin+"/")
		require.NoError(t, err)

		assert.Equal(t, 1, result.Failed)
		assert.Empty(t, s.files)
		require.Len(t, s.reports, 1)
		assert.Equal(t, 0, s.reports[0].Len())
		assert.Contains(t, s.logs.String(), "navigation failed")
	})

	t.Run("stops between URLs when the context is cancelled", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.pages[origin+"/"] = &mirror.RenderResult{HTML: "<html></html>"}
		c := s.crawler(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Run(ctx, origin+"/")
		require.ErrorIs(t, err, context.Canceled)

		assert.Zero(t, s.renders[origin+"/"])
		require.Len(t, s.reports, 1)
	})

	t.Run("pushes the canonical seed as a page", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		c := s.crawler(t)

		var pushed []mirror.Link
		c.Frontier = &mock.URLFrontier{
			PushFn: func(link mirror.Link) bool {
				pushed = append(pushed, link)
				return true
			},
			PopFn: func() (mirror.Link, bool) { return mirror.Link{}, false },
			LenFn: func() int { return 0 },
		}

		result, err := c.Run(context.Background(), "http://EXAMPLE.com#top")
		require.NoError(t, err)

		assert.Equal(t, []mirror.Link{{URL: origin + "/", From: mirror.KindHTML}}, pushed)
		assert.Equal(t, 0, result.Pages)
		require.Len(t, s.reports, 1)
	})

	t.Run("rejects a seed outside the scope", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		c := s.crawler(t)

		_, err := c.Run(context.Background(), "https://other.example/")
		require.Error(t, err)
		assert.Equal(t, mirror.EINVALID, mirror.ErrorCode(err))
		assert.Empty(t, s.reports)
	})

	t.Run("treats an HTML answer to a module specifier as a miss", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.pages[origin+"/"] = &mirror.RenderResult{Resources: []string{origin + "/main.js"}}
		s.asset(origin+"/main.js", "text/javascript", "")
		s.asset(origin+"/lib/dep", "text/html; charset=utf-8", "<!doctype html><div id=app></div>")
		s.asset(origin+"/lib/dep.js", "text/html", "<!doctype html>")
		s.asset(origin+"/lib/dep.mjs", "text/javascript", "export default 1;")

		c := s.crawler(t)
		c.Extractors[mirror.KindJS] = extractByBase(map[string][]string{
			origin + "/main.js": {origin + "/lib/dep"},
		})

		result, err := c.Run(context.Background(), origin+"/")
		require.NoError(t, err)

		assert.Equal(t, 0, result.Failed)
		assert.Equal(t, "export default 1;", string(s.files["lib/dep.mjs"]))
		assert.NotContains(t, s.files, "lib/dep.html")
		assert.Equal(t, "lib/dep.mjs", c.Mapper.Path(origin+"/lib/dep"))
		assert.Zero(t, s.renders[origin+"/lib/dep"])
	})

	t.Run("abandons a module when every variant is missing", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.pages[origin+"/"] = &mirror.RenderResult{Resources: []string{origin + "/main.js"}}
		s.asset(origin+"/main.js", "text/javascript", `import "/gone";`)

		c := s.crawler(t)
		c.Extractors[mirror.KindJS] = extractByBase(map[string][]string{
			origin + "/main.js": {origin + "/gone"},
		})

		result, err := c.Run(context.Background(), origin+"/")
		require.NoError(t, err)

		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, `import "/gone";`, string(s.files["main.js"]))
		assert.Equal(t, 1, s.fetches[origin+"/gone"])
		for _, suffix := range crawl.DefaultModuleVariants() {
			assert.Equal(t, 1, s.fetches[origin+"/gone"+suffix], suffix)
		}
		assert.Contains(t, s.logs.String(), "module fallback failed")
	})

	t.Run("reports rewritten references whose target was never saved", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.pages[origin+"/blog/"] = &mirror.RenderResult{HTML: "<html></html>"}

		c := s.crawler(t)
		c.Rewriters[mirror.KindHTML] = &mock.Rewriter{
			RewriteFn: func(text string, file string) (string, []mirror.RewriteRecord) {
				return text, []mirror.RewriteRecord{
					{File: file, From: "/css/gone.css", To: "../css/gone.css", Kind: mirror.KindHTML},
					{File: file, From: "/blog/", To: "index.html", Kind: mirror.KindHTML},
				}
			},
		}

		result, err := c.Run(context.Background(), origin+"/blog/")
		require.NoError(t, err)

		assert.Equal(t, 1, result.Missing)
		assert.Equal(t, 2, result.Rewrites)
		assert.Contains(t, s.logs.String(), "rewrite target missing")
		assert.Contains(t, s.logs.String(), "../css/gone.css")
	})

	t.Run("strips the origin from SVG without rewriting it as HTML", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.pages[origin+"/"] = &mirror.RenderResult{HTML: "<html></html>", DOMRefs: []string{"/logo.svg"}}
		s.asset(origin+"/logo.svg", "image/svg+xml", `<svg><image href="https://example.com/img/b.png"/></svg>`)
		s.asset(origin+"/img/b.png", "image/png", "\x89PNG\xff")

		c := s.crawler(t)
		c.Extractors[mirror.KindHTML] = extractByBase(map[string][]string{
			origin + "/logo.svg": {origin + "/img/b.png"},
		})
		c.Rewriters[mirror.KindHTML] = &mock.Rewriter{
			RewriteFn: func(text string, file string) (string, []mirror.RewriteRecord) {
				assert.NotEqual(t, "logo.svg", file)
				return text, nil
			},
		}

		result, err := c.Run(context.Background(), origin+"/")
		require.NoError(t, err)

		assert.Equal(t, 0, result.Failed)
		assert.Equal(t, `<svg><image href="/img/b.png"/></svg>`, string(s.files["logo.svg"]))
		assert.Contains(t, s.files, "img/b.png")
	})

	t.Run("stores Latin-1 text as UTF-8", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.pages[origin+"/"] = &mirror.RenderResult{Resources: []string{origin + "/style.css"}}
		s.asset(origin+"/style.css", "text/css", ".caf\xe9{}")

		c := s.crawler(t)

		_, err := c.Run(context.Background(), origin+"/")
		require.NoError(t, err)

		assert.Equal(t, ".café{}", string(s.files["style.css"]))
	})

	t.Run("recovers from a panic while processing one URL", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.pages[origin+"/"] = &mirror.RenderResult{
			HTML:      "<html></html>",
			Resources: []string{origin + "/boom.js", origin + "/ok.css"},
		}
		s.asset(origin+"/ok.css", "text/css", "body{}")

		c := s.crawler(t)
		fetch := c.Fetcher
		c.Fetcher = &mock.Fetcher{
			FetchFn: func(ctx context.Context, u string) (*mirror.Resource, error) {
				if strings.HasSuffix(u, "/boom.js") {
					panic("boom")
				}
				return fetch.Fetch(ctx, u)
			},
		}

		result, err := c.Run(context.Background(), origin+"/")
		require.NoError(t, err)

		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, "body{}", string(s.files["ok.css"]))
		assert.Contains(t, s.logs.String(), "process panicked")
	})

	t.Run("keeps a non-HTML answer to an extensionless URL without rendering it", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.pages[origin+"/"] = &mirror.RenderResult{
			HTML:      "<html></html>",
			Resources: []string{origin + "/api/items"},
		}
		s.asset(origin+"/api/items", "application/json", `{"items":[]}`)

		c := s.crawler(t)

		result, err := c.Run(context.Background(), origin+"/")
		require.NoError(t, err)

		assert.Equal(t, 0, result.Failed)
		assert.Equal(t, 1, result.Pages)
		assert.Equal(t, 1, result.Assets)
		assert.Zero(t, s.renders[origin+"/api/items"])
		assert.Equal(t, 1, s.fetches[origin+"/api/items"])
		assert.Equal(t, `{"items":[]}`, string(s.files["api/items.html"]))
	})

	t.Run("renders an extensionless URL served as HTML without a content type", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.pages[origin+"/"] = &mirror.RenderResult{HTML: "<html></html>"}
		s.pages[origin+"/contact"] = &mirror.RenderResult{HTML: "<html>contact</html>"}
		s.asset(origin+"/contact", "", "<!DOCTYPE html><html><body>contact</body></html>")

		c := s.crawler(t)
		c.Extractors[mirror.KindHTML] = extractByBase(map[string][]string{
			origin + "/": {origin + "/contact"},
		})

		result, err := c.Run(context.Background(), origin+"/")
		require.NoError(t, err)

		assert.Equal(t, 2, result.Pages)
		assert.Equal(t, 1, s.renders[origin+"/contact"])
		assert.Equal(t, "<html>contact</html>", string(s.files["contact.html"]))
	})

	t.Run("resolves import map modules before the page is rewritten", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.pages[origin+"/"] = &mirror.RenderResult{HTML: `<script type="importmap">{"imports":{"util":"/mod/util"}}</script>`}
		s.asset(origin+"/mod/util.js", "text/javascript", "export const x = 1;")

		c := s.crawler(t)
		c.ImportMaps = extractByBase(map[string][]string{
			origin + "/": {origin + "/mod/util"},
		})
		var mapped string
		c.Rewriters[mirror.KindHTML] = &mock.Rewriter{
			RewriteFn: func(text string, file string) (string, []mirror.RewriteRecord) {
				if file == "index.html" {
					mapped = c.Mapper.Path(origin + "/mod/util")
				}
				return text, nil
			},
		}

		result, err := c.Run(context.Background(), origin+"/")
		require.NoError(t, err)

		assert.Equal(t, 0, result.Failed)
		assert.Equal(t, "mod/util.js", mapped)
		assert.Equal(t, "export const x = 1;", string(s.files["mod/util.js"]))
		assert.NotContains(t, s.files, "mod/util.html")
		assert.Zero(t, s.renders[origin+"/mod/util"])
		assert.Equal(t, 1, s.fetches[origin+"/mod/util"])
		assert.Equal(t, 1, s.fetches[origin+"/mod/util.js"])
	})

	t.Run("writes a root entry point for a nested seed", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.pages[origin+"/blog/post.html"] = &mirror.RenderResult{HTML: "<html>post</html>"}

		c := s.crawler(t)

		result, err := c.Run(context.Background(), origin+"/blog/post.html")
		require.NoError(t, err)

		assert.Equal(t, 1, result.Pages)
		assert.Equal(t, "<html>post</html>", string(s.files["blog/post.html"]))
		require.Contains(t, s.files, "index.html")
		assert.Contains(t, string(s.files["index.html"]), `content="0; url=./blog/post.html"`)
		assert.Contains(t, string(s.files["index.html"]), `<a href="./blog/post.html">`)
	})

	t.Run("replaces the entry point when the site root is mirrored", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.pages[origin+"/blog/"] = &mirror.RenderResult{HTML: "<html>blog</html>"}
		s.pages[origin+"/"] = &mirror.RenderResult{HTML: "<html>home</html>"}

		c := s.crawler(t)
		c.Extractors[mirror.KindHTML] = extractByBase(map[string][]string{
			origin + "/blog/": {origin + "/"},
		})

		result, err := c.Run(context.Background(), origin+"/blog/")
		require.NoError(t, err)

		assert.Equal(t, 2, result.Pages)
		assert.Equal(t, "<html>home</html>", string(s.files["index.html"]))
		assert.Equal(t, "<html>blog</html>", string(s.files["blog/index.html"]))
	})
}
