package crawl

import (
	"strings"
	"sync"

	"github.com/fwojciec/mirror"
	"github.com/fwojciec/mirror/bloom"
)

// Compile-time interface verification.
var _ mirror.URLFrontier = (*Frontier)(nil)

// Frontier is an in-memory FIFO URL frontier. A URL enters the seen set
// the moment it is pushed and never leaves it, so each distinct URL is
// handed out by Pop at most once.
//
// Membership is answered by a Bloom filter first; only filter hits are
// confirmed against the exact set, so false positives never drop a URL.
// It is safe for concurrent use by multiple goroutines.
type Frontier struct {
	mu      sync.Mutex
	filter  *bloom.Filter
	seen    map[string]struct{}
	pending []mirror.Link
}

// NewFrontier creates a new Frontier sized for n expected URLs
// with the given false positive rate for the prefilter.
func NewFrontier(n uint, fpRate float64) *Frontier {
	return &Frontier{
		filter: bloom.NewFilter(n, fpRate),
		seen:   make(map[string]struct{}),
	}
}

// Push adds a link to the pending queue.
// Returns false if the URL has already been seen.
// URL fragments are stripped first; URLs differing only by fragment
// are duplicates.
func (f *Frontier) Push(link mirror.Link) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	url := stripFragment(link.URL)
	if url == "" {
		return false
	}
	if f.filter.TestAndAdd(url) {
		if _, ok := f.seen[url]; ok {
			return false
		}
	}
	f.seen[url] = struct{}{}

	link.URL = url
	f.pending = append(f.pending, link)
	return true
}

// Pop returns the oldest pending link.
// The bool result is false if the frontier is empty.
func (f *Frontier) Pop() (mirror.Link, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) == 0 {
		return mirror.Link{}, false
	}
	link := f.pending[0]
	f.pending[0] = mirror.Link{}
	f.pending = f.pending[1:]
	return link, true
}

// Len returns the number of pending URLs.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Seen returns true if the URL has been queued or processed.
func (f *Frontier) Seen(rawURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contains(stripFragment(rawURL))
}

func (f *Frontier) contains(url string) bool {
	if !f.filter.Test(url) {
		return false
	}
	_, ok := f.seen[url]
	return ok
}

func stripFragment(url string) string {
	if idx := strings.Index(url, "#"); idx != -1 {
		return url[:idx]
	}
	return url
}
