// Package bloom provides a probabilistic membership prefilter for crawled URLs.
package bloom

import "github.com/bits-and-blooms/bloom/v3"

// Filter is a Bloom filter keyed by canonical URL strings.
// It is not safe for concurrent use; callers hold their own lock.
type Filter struct {
	f *bloom.BloomFilter
}

// NewFilter creates a filter sized for n expected URLs
// with the given false positive rate.
func NewFilter(n uint, fpRate float64) *Filter {
	return &Filter{
		f: bloom.NewWithEstimates(n, fpRate),
	}
}

// Add records a URL.
func (f *Filter) Add(url string) {
	f.f.AddString(url)
}

// Test returns true if the URL might have been added.
// False positives are possible; false negatives are not.
func (f *Filter) Test(url string) bool {
	return f.f.TestString(url)
}

// TestAndAdd records the URL and reports whether it might have been
// present before the call.
func (f *Filter) TestAndAdd(url string) bool {
	return f.f.TestAndAddString(url)
}
