package mirror

// Link is a URL waiting in the frontier with the kind of content it was
// discovered in.
type Link struct {
	URL  string
	From Kind
}

// URLFrontier tracks discovered URLs for the crawl loop.
type URLFrontier interface {
	// Push adds a link to the pending set.
	// Returns false if the URL is already pending or has been processed.
	Push(link Link) bool

	// Pop removes the next pending link and marks it processed.
	// The bool result is false if nothing is pending.
	Pop() (Link, bool)

	// Len returns the number of pending URLs.
	Len() int

	// Seen returns true if the URL has been processed or is pending.
	Seen(url string) bool
}
