package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/mirror"
	"golang.org/x/net/html"
)

// Compile-time interface verification.
var _ mirror.Extractor = (*Extractor)(nil)

// Extractor discovers references in HTML markup: element attributes from a
// fixed selector list and srcset candidates. Import map entries are module
// specifiers and are reported by ImportMapExtractor instead.
type Extractor struct {
	scope *mirror.Scope
}

// NewExtractor creates an Extractor that keeps references inside scope.
func NewExtractor(scope *mirror.Scope) *Extractor {
	return &Extractor{scope: scope}
}

// Extract returns the canonical in-scope URLs referenced by the document,
// in document order per selector, without duplicates. Unparseable markup
// yields no URLs.
func (e *Extractor) Extract(text string, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil
	}

	base := baseURL
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if abs, ok := e.scope.Resolve(href, baseURL); ok {
			base = abs
		}
	}

	var urls []string
	seen := make(map[string]bool)
	add := func(k mirror.Kind, ref string) {
		abs, ok := e.scope.ResolveIn(k, ref, base)
		if !ok || seen[abs] {
			return
		}
		seen[abs] = true
		urls = append(urls, abs)
	}

	eachRef(doc, func(a *html.Attribute) {
		if isSrcset(a) {
			for _, u := range srcsetURLs(a.Val) {
				add(mirror.KindHTML, u)
			}
			return
		}
		add(mirror.KindHTML, a.Val)
	})

	return urls
}
