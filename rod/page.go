package rod

import (
	"context"
	_ "embed"
	"encoding/json"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// instrumentJS installs network counters, image source tracking and the
// window.__mirror helpers. It is idempotent.
//
//go:embed instrument.js
var instrumentJS string

// page is the subset of a browser tab the stabilizer drives.
type page interface {
	// Navigate loads url and waits for the load event, giving up after timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// Eval runs a JavaScript function expression and decodes its result
	// into out. A nil out discards the result.
	Eval(ctx context.Context, js string, out any) error
	// HTML returns the serialized document.
	HTML(ctx context.Context) (string, error)
}

// rodPage adapts a go-rod page.
type rodPage struct {
	page *rod.Page
}

// newRodPage prepares a fresh tab: viewport, user agent and the
// instrumentation script for every new document.
func newRodPage(p *rod.Page, opts Options) (*rodPage, error) {
	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.ViewportWidth,
		Height:            opts.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, err
	}
	if opts.UserAgent != "" {
		if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
			return nil, err
		}
	}
	if _, err := p.EvalOnNewDocument(instrumentJS); err != nil {
		return nil, err
	}
	return &rodPage{page: p}, nil
}

func (p *rodPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	pg := p.page.Context(ctx).Timeout(timeout)
	defer pg.CancelTimeout()
	if err := pg.Navigate(url); err != nil {
		return err
	}
	return pg.WaitLoad()
}

func (p *rodPage) Eval(ctx context.Context, js string, out any) error {
	res, err := p.page.Context(ctx).Eval(js)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	data, err := res.Value.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}
