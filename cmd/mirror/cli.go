package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fwojciec/mirror"
	"github.com/fwojciec/mirror/crawl"
	"github.com/fwojciec/mirror/fs"
	"github.com/fwojciec/mirror/goquery"
	mhttp "github.com/fwojciec/mirror/http"
	"github.com/fwojciec/mirror/regex"
	"github.com/fwojciec/mirror/rod"
	mslog "github.com/fwojciec/mirror/slog"
)

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	URL        string        `arg:"" required:"" help:"Seed page; its host is the site that gets mirrored"`
	Out        string        `short:"o" default:"mirror" env:"MIRROR_OUT" help:"Output directory"`
	Report     string        `default:"rewrite-report.json" env:"MIRROR_REPORT" help:"Path of the rewrite report"`
	Log        string        `default:"crawl.log" env:"MIRROR_LOG" help:"Log file, in addition to stderr (empty disables)"`
	UserAgent  string        `default:"fetcher/4.4" env:"MIRROR_USER_AGENT" help:"User agent for the browser and HTTP fetches"`
	Timeout    time.Duration `short:"t" default:"30s" help:"HTTP fetch timeout"`
	NavTimeout time.Duration `default:"120s" help:"Page load ceiling"`
	Settle     time.Duration `default:"10s" help:"Fixed wait after hydrating a page"`
	Verbose    bool          `short:"v" help:"Log render stages and rewrites"`
}

// Run wires the crawler and mirrors the site.
func (c *CLI) Run(ctx context.Context, stderr io.Writer) error {
	scope, err := mirror.NewScope(c.URL)
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(stderr, c.Log, c.Verbose)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("crawl start", "target", scope.Origin(), "out", c.Out, "user_agent", c.UserAgent)

	opts := rod.DefaultOptions()
	opts.UserAgent = c.UserAgent
	opts.NavigationTimeout = c.NavTimeout
	opts.SettleDelay = c.Settle

	renderer, err := rod.NewRenderer(opts, logger)
	if err != nil {
		fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed")
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if cerr := renderer.Close(); cerr != nil {
			logger.Warn("browser close failed", "err", cerr)
		}
	}()

	mapper := mirror.NewMapper(scope)
	crawler := &crawl.Crawler{
		Scope:    scope,
		Mapper:   mapper,
		Frontier: crawl.NewFrontier(crawl.FrontierExpectedURLs, crawl.FrontierFalsePositiveRate),
		Renderer: mslog.NewLoggingRenderer(renderer, logger),
		Fetcher: mslog.NewLoggingFetcher(
			mhttp.NewFetcher(mhttp.WithTimeout(c.Timeout), mhttp.WithUserAgent(c.UserAgent)),
			logger,
		),
		Store: mslog.NewLoggingStore(fs.NewStore(c.Out, c.Report), logger),
		Extractors: map[mirror.Kind]mirror.Extractor{
			mirror.KindHTML:     goquery.NewExtractor(scope),
			mirror.KindCSS:      regex.NewCSSExtractor(scope, regex.WithLogger(logger)),
			mirror.KindJS:       regex.NewJSExtractor(scope, regex.WithLogger(logger)),
			mirror.KindJSONLike: regex.NewJSONExtractor(scope, regex.WithLogger(logger)),
		},
		Rewriters: map[mirror.Kind]mirror.Rewriter{
			mirror.KindHTML:     goquery.NewRewriter(mapper, logger),
			mirror.KindCSS:      regex.NewCSSRewriter(mapper),
			mirror.KindJS:       regex.NewJSRewriter(mapper),
			mirror.KindJSONLike: regex.NewJSONRewriter(mapper),
		},
		ImportMaps: goquery.NewImportMapExtractor(scope),
		Logger:     logger,
	}

	result, err := crawler.Run(ctx, c.URL)
	if errors.Is(err, context.Canceled) {
		logger.Warn("crawl stopped by signal", "pages", result.Pages, "assets", result.Assets)
		return nil
	}
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		logger.Warn("some URLs failed", "failed", result.Failed)
	}
	return nil
}
