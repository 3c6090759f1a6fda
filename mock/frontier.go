package mock

import "github.com/fwojciec/mirror"

var _ mirror.URLFrontier = (*URLFrontier)(nil)

// URLFrontier is a mock implementation of mirror.URLFrontier.
type URLFrontier struct {
	PushFn func(link mirror.Link) bool
	PopFn  func() (mirror.Link, bool)
	LenFn  func() int
	SeenFn func(url string) bool
}

func (f *URLFrontier) Push(link mirror.Link) bool {
	return f.PushFn(link)
}

func (f *URLFrontier) Pop() (mirror.Link, bool) {
	return f.PopFn()
}

func (f *URLFrontier) Len() int {
	return f.LenFn()
}

func (f *URLFrontier) Seen(url string) bool {
	return f.SeenFn(url)
}
