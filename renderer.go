package mirror

import "context"

// RenderResult is a fully stabilized page.
type RenderResult struct {
	// HTML is the serialized DOM after stabilization and image hydration.
	HTML string

	// Resources lists the names of all resource-timing entries observed
	// while the page loaded.
	Resources []string

	// DOMRefs lists element references read from the live DOM, including
	// ones set purely by script and computed background images.
	DOMRefs []string
}

// Renderer loads pages in a real browser engine.
type Renderer interface {
	// Render navigates to url, runs the stabilization protocol and returns
	// the realized markup with the references observed on the live page.
	// Every wait inside Render is bounded; a page that never settles is
	// captured as-is once its ceilings are reached.
	Render(ctx context.Context, url string) (*RenderResult, error)

	// Close releases the browser session.
	Close() error
}
