// Package goquery implements HTML reference extraction and rewriting on
// top of a parsed DOM.
package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// refSelector names the attributes that carry references on the elements
// matched by Selector.
type refSelector struct {
	Selector string
	Attrs    []string
}

// refSelectors is applied in order. Inside inline SVG the parser stores
// xlink:href as namespace "xlink" with key "href", so both spellings are
// listed for image and use.
var refSelectors = []refSelector{
	{Selector: "link[href]", Attrs: []string{"href"}},
	{Selector: "script[src]", Attrs: []string{"src"}},
	{Selector: "img", Attrs: []string{"src", "srcset", "data-src", "data-srcset"}},
	{Selector: "source", Attrs: []string{"src", "srcset"}},
	{Selector: "video[poster]", Attrs: []string{"poster"}},
	{Selector: "a[href]", Attrs: []string{"href"}},
	{Selector: "[data-href]", Attrs: []string{"data-href"}},
	{Selector: "image, use", Attrs: []string{"href", "xlink:href"}},
}

// eachRef calls fn for every reference-bearing attribute in doc, visiting
// each attribute at most once.
func eachRef(doc *goquery.Document, fn func(attr *html.Attribute)) {
	visited := make(map[*html.Attribute]bool)
	for _, rs := range refSelectors {
		doc.Find(rs.Selector).Each(func(_ int, sel *goquery.Selection) {
			for _, n := range sel.Nodes {
				for i := range n.Attr {
					a := &n.Attr[i]
					if visited[a] || !matchesAttr(a, rs.Attrs) {
						continue
					}
					visited[a] = true
					fn(a)
				}
			}
		})
	}
}

func matchesAttr(a *html.Attribute, names []string) bool {
	for _, name := range names {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return true
		}
		if a.Namespace != "" && strings.EqualFold(a.Namespace+":"+a.Key, name) {
			return true
		}
	}
	return false
}

func isSrcset(a *html.Attribute) bool {
	return strings.HasSuffix(strings.ToLower(a.Key), "srcset")
}

// srcsetURLs returns the URL token of every candidate in a srcset value.
func srcsetURLs(value string) []string {
	if strings.HasPrefix(strings.TrimSpace(strings.ToLower(value)), "data:") {
		return nil
	}
	var urls []string
	for _, candidate := range strings.Split(value, ",") {
		fields := strings.Fields(candidate)
		if len(fields) == 0 {
			continue
		}
		urls = append(urls, fields[0])
	}
	return urls
}
