// Package crawl drives a single-site mirror. It pops URLs from the
// frontier one at a time, renders pages or fetches assets, extracts and
// rewrites references by content kind, persists the result and flushes the
// rewrite report when the run ends.
package crawl

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/fwojciec/mirror"
)

// Frontier sizing for a single site.
const (
	// FrontierExpectedURLs is the expected number of URLs for Bloom filter sizing.
	FrontierExpectedURLs = 10000
	// FrontierFalsePositiveRate is the acceptable false positive rate of the prefilter.
	FrontierFalsePositiveRate = 0.01
)

// Crawler mirrors one site. Extractors and Rewriters are keyed by content
// kind; a kind without an entry is saved without discovery or rewriting.
type Crawler struct {
	Scope      *mirror.Scope
	Mapper     *mirror.Mapper
	Frontier   mirror.URLFrontier
	Renderer   mirror.Renderer
	Fetcher    mirror.Fetcher
	Store      mirror.Store
	Extractors map[mirror.Kind]mirror.Extractor
	Rewriters  map[mirror.Kind]mirror.Rewriter
	Logger     *slog.Logger

	// ImportMaps reports the module URLs mapped by a page's import maps.
	// They are queued as JS and resolved before the page is rewritten.
	ImportMaps mirror.Extractor

	// ModuleVariants overrides DefaultModuleVariants.
	ModuleVariants []string
}

// Result holds the outcome of a crawl.
type Result struct {
	Pages    int
	Assets   int
	Failed   int
	Rewrites int
	Missing  int
}

// Run mirrors the site starting at seed and returns when nothing is left
// to process or ctx is done. A failing URL never stops the run. The rewrite
// report is written exactly once, on every exit path.
func (c *Crawler) Run(ctx context.Context, seed string) (result *Result, err error) {
	start, ok := c.Scope.Canonical(seed)
	if !ok {
		return nil, mirror.Errorf(mirror.EINVALID, "seed %q is not on %s", seed, c.Scope.Origin())
	}

	s := c.newSession(start)
	result = &s.result
	defer func() {
		s.verify()
		s.result.Rewrites = s.report.Len()
		if werr := c.Store.WriteReport(context.WithoutCancel(ctx), s.report); werr != nil {
			s.logger.Error("report write failed", "err", werr)
			if err == nil {
				err = fmt.Errorf("write report: %w", werr)
			}
		}
		s.logger.Info("crawl done",
			"pages", s.result.Pages,
			"assets", s.result.Assets,
			"failed", s.result.Failed,
			"rewrites", s.result.Rewrites,
			"missing", s.result.Missing,
		)
	}()

	c.Frontier.Push(mirror.Link{URL: start, From: mirror.KindHTML})
	for {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("crawl interrupted", "pending", c.Frontier.Len())
			return result, err
		}
		link, ok := c.Frontier.Pop()
		if !ok {
			return result, nil
		}
		s.process(ctx, link)
	}
}

// session is the state owned by one run.
type session struct {
	*Crawler
	seed    string
	logger  *slog.Logger
	report  *mirror.Report
	modules *resolver
	saved   map[string]bool
	records []mirror.RewriteRecord
	result  Result
}

func (c *Crawler) newSession(seed string) *session {
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &session{
		Crawler: c,
		seed:    seed,
		logger:  logger,
		report:  mirror.NewReport(),
		modules: newResolver(c.Fetcher, c.Mapper, logger, c.ModuleVariants),
		saved:   make(map[string]bool),
	}
}

func (s *session) process(ctx context.Context, link mirror.Link) {
	defer func() {
		if r := recover(); r != nil {
			s.result.Failed++
			s.logger.Error("process panicked", "url", link.URL, "panic", r)
		}
	}()

	var err error
	switch {
	case mirror.KindFromURL(link.URL) == mirror.KindHTML:
		err = s.page(ctx, link.URL)
	case link.From != mirror.KindJS && mirror.IsExtensionless(link.URL):
		err = s.document(ctx, link)
	default:
		err = s.asset(ctx, link)
	}
	if err != nil {
		s.result.Failed++
		s.logger.Error("process failed", "url", link.URL, "err", err)
	}
}

func (s *session) page(ctx context.Context, pageURL string) error {
	res, err := s.Renderer.Render(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	file := s.Mapper.Path(pageURL)

	if s.ImportMaps != nil {
		modules := s.ImportMaps.Extract(res.HTML, pageURL)
		s.resolveModules(ctx, modules)
		s.enqueue(modules, mirror.KindJS)
	}

	links := s.extract(mirror.KindHTML, res.HTML, pageURL)
	for _, refs := range [][]string{res.Resources, res.DOMRefs} {
		for _, ref := range refs {
			if u, ok := s.Scope.ResolveIn(mirror.KindHTML, ref, pageURL); ok {
				links = append(links, u)
			}
		}
	}
	s.enqueue(links, mirror.KindHTML)

	text, records := s.rewrite(mirror.KindHTML, res.HTML, file)
	if err := s.save(ctx, file, []byte(text), records); err != nil {
		return err
	}
	s.result.Pages++

	if pageURL == s.seed && file != "index.html" {
		s.entryPoint(ctx, file)
	}
	return nil
}

// document handles an extensionless URL found in markup, in a stylesheet
// or by the browser. It is fetched over HTTP first and only handed to the
// browser when the server answers with an HTML document; anything else,
// such as a JSON API response, is kept as an asset.
func (s *session) document(ctx context.Context, link mirror.Link) error {
	res, err := s.Fetcher.Fetch(ctx, link.URL)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if isDocument(res) {
		return s.page(ctx, link.URL)
	}
	return s.keep(ctx, s.Mapper.Path(link.URL), res)
}

// entryPoint writes a root index.html that forwards to the seed page when
// the seed is not the site root. A later crawl of the root overwrites it.
func (s *session) entryPoint(ctx context.Context, seedFile string) {
	if s.saved["index.html"] {
		return
	}
	ref := html.EscapeString(mirror.RelativeRef("index.html", seedFile, ""))
	doc := fmt.Sprintf(entryPointHTML, ref, ref, ref)
	if err := s.Store.Write(ctx, "index.html", []byte(doc)); err != nil {
		s.logger.Warn("entry point write failed", "err", err)
		return
	}
	s.saved["index.html"] = true
	s.logger.Info("entry point written", "to", seedFile)
}

const entryPointHTML = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><meta http-equiv="refresh" content="0; url=%s"><title>Mirror</title></head>
<body><a href="%s">%s</a></body></html>
`

func (s *session) asset(ctx context.Context, link mirror.Link) error {
	file := s.Mapper.Path(link.URL)
	if s.saved[file] {
		return nil
	}

	var res *mirror.Resource
	if link.From == mirror.KindJS && mirror.IsExtensionless(link.URL) {
		m, err := s.modules.resolve(ctx, link.URL)
		if err != nil {
			return err
		}
		if file = s.Mapper.Path(link.URL); s.saved[file] {
			return nil
		}
		res = m.res
	} else {
		r, err := s.Fetcher.Fetch(ctx, link.URL)
		if err != nil {
			return fmt.Errorf("fetch: %w", err)
		}
		res = r
	}
	return s.keep(ctx, file, res)
}

// keep saves a fetched resource at file. Text is decoded, scanned and
// rewritten by its kind; binary content is saved as-is.
func (s *session) keep(ctx context.Context, file string, res *mirror.Resource) error {
	if !isText(res.ContentType, res.Body) {
		if err := s.save(ctx, file, res.Body, nil); err != nil {
			return err
		}
		s.result.Assets++
		return nil
	}

	text, err := decodeText(res.Body)
	if err != nil {
		s.logger.Warn("text decode failed", "url", res.URL, "err", err)
		if err := s.save(ctx, file, res.Body, nil); err != nil {
			return err
		}
		s.result.Assets++
		return nil
	}

	kind := mirror.Classify(res.ContentType, res.URL)
	links := s.extract(kind, text, res.URL)
	if kind == mirror.KindJS {
		s.resolveModules(ctx, links)
	}
	s.enqueue(links, kind)

	var records []mirror.RewriteRecord
	if isSVG(kind, res.ContentType) {
		text = s.Scope.StripOrigin(text)
	} else {
		text, records = s.rewrite(kind, text, file)
	}
	if err := s.save(ctx, file, []byte(text), records); err != nil {
		return err
	}
	s.result.Assets++
	return nil
}

// resolveModules runs the module fallback for extensionless specifiers
// before the file that references them is rewritten, so rewritten
// references already point at the resolved variant.
func (s *session) resolveModules(ctx context.Context, links []string) {
	for _, u := range links {
		if !mirror.IsExtensionless(u) || s.Frontier.Seen(u) {
			continue
		}
		// Failures are logged by the resolver and surface again when the
		// specifier is popped.
		_, _ = s.modules.resolve(ctx, u)
	}
}

func (s *session) extract(kind mirror.Kind, text, baseURL string) []string {
	ext, ok := s.Extractors[kind]
	if !ok {
		return nil
	}
	return ext.Extract(text, baseURL)
}

func (s *session) rewrite(kind mirror.Kind, text, file string) (string, []mirror.RewriteRecord) {
	rw, ok := s.Rewriters[kind]
	if !ok {
		return text, nil
	}
	return rw.Rewrite(text, file)
}

func (s *session) enqueue(links []string, from mirror.Kind) {
	var n int
	for _, u := range links {
		if s.Frontier.Push(mirror.Link{URL: u, From: from}) {
			n++
		}
	}
	if n > 0 {
		s.logger.Debug("enqueued", "from", from.String(), "new", n, "pending", s.Frontier.Len())
	}
}

func (s *session) save(ctx context.Context, file string, data []byte, records []mirror.RewriteRecord) error {
	if err := s.Store.Write(ctx, file, data); err != nil {
		return fmt.Errorf("write %s: %w", file, err)
	}
	s.saved[file] = true
	s.report.Append(records...)
	s.records = append(s.records, records...)
	return nil
}

// verify warns about rewritten references whose target was never saved.
func (s *session) verify() {
	for _, rec := range s.records {
		target := targetPath(rec)
		if target == "" || s.Store.Exists(target) {
			continue
		}
		s.result.Missing++
		s.logger.Warn("rewrite target missing",
			"kind", rec.Kind.String(),
			"file", rec.File,
			"from", rec.From,
			"to", rec.To,
		)
	}
}

// targetPath returns the mirror path a rewritten reference points at.
func targetPath(rec mirror.RewriteRecord) string {
	u, err := url.Parse(rec.To)
	if err != nil || u.Path == "" {
		return ""
	}
	return path.Join(path.Dir(rec.File), u.Path)
}

// isDocument reports whether a fetched resource is an HTML document. A
// missing content type is sniffed from the body.
func isDocument(res *mirror.Resource) bool {
	ct := res.ContentType
	if strings.TrimSpace(ct) == "" {
		ct = http.DetectContentType(res.Body)
	}
	kind := mirror.KindFromContentType(ct)
	return kind == mirror.KindHTML && !isSVG(kind, ct)
}

// isSVG reports whether a resource is SVG markup. SVG is discovered with
// the HTML extractor but never re-serialized as an HTML document.
func isSVG(kind mirror.Kind, contentType string) bool {
	return kind == mirror.KindHTML && strings.Contains(strings.ToLower(contentType), "svg")
}
