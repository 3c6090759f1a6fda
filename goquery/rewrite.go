package goquery

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/mirror"
	"golang.org/x/net/html"
)

// Compile-time interface verification.
var _ mirror.Rewriter = (*Rewriter)(nil)

// ArchiveMarker is injected into every rewritten document's head.
const ArchiveMarker = `<script>window.__LOCAL_ARCHIVE__=true;</script>`

const archiveFlag = "__LOCAL_ARCHIVE__"

// Rewriter localizes references in HTML documents. It drops <base>,
// rewrites reference attributes and import maps to relative paths, strips
// the site origin from the remaining markup and marks the document as
// archived.
type Rewriter struct {
	mapper *mirror.Mapper
	logger *slog.Logger
}

// NewRewriter creates a Rewriter. A nil logger discards diagnostics.
func NewRewriter(mapper *mirror.Mapper, logger *slog.Logger) *Rewriter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Rewriter{mapper: mapper, logger: logger}
}

// Rewrite returns the rewritten document that will be saved at file.
// Attribute rewrites are recorded as html; import map entries as js. Each
// record carries the reference as it was written in the document.
func (r *Rewriter) Rewrite(text string, file string) (string, []mirror.RewriteRecord) {
	scope := r.mapper.Scope()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		r.logger.Warn("html parse failed", "file", file, "err", err)
		return scope.StripOrigin(text), nil
	}

	doc.Find("base").Remove()

	var records []mirror.RewriteRecord
	localize := func(k mirror.Kind, ref string) string {
		to, ok := r.mapper.Localize(k, ref, file)
		if !ok {
			return ref
		}
		records = append(records, mirror.RewriteRecord{
			File: file,
			From: strings.TrimSpace(ref),
			To:   to,
			Kind: k,
		})
		return to
	}

	eachRef(doc, func(a *html.Attribute) {
		if isSrcset(a) {
			a.Val = rewriteSrcset(a.Val, func(u string) string { return localize(mirror.KindHTML, u) })
			return
		}
		a.Val = localize(mirror.KindHTML, a.Val)
	})

	doc.Find(`script[type="importmap"]`).Each(func(_ int, sel *goquery.Selection) {
		rewritten, err := rewriteImportMap(sel.Text(), func(u string) string { return localize(mirror.KindJS, u) })
		if err != nil {
			r.logger.Warn("importmap parse failed", "file", file, "err", err)
			return
		}
		for _, n := range sel.Nodes {
			setRawText(n, rewritten)
		}
	})

	if !hasMarker(doc) {
		doc.Find("head").First().AppendHtml(ArchiveMarker)
	}

	out, err := doc.Html()
	if err != nil {
		r.logger.Warn("html render failed", "file", file, "err", err)
		return scope.StripOrigin(text), nil
	}
	if !strings.Contains(out, archiveFlag) {
		out = ArchiveMarker + out
	}
	return scope.StripOrigin(out), records
}

// rewriteSrcset rewrites the URL token of each candidate and keeps its
// descriptor. Candidates are re-joined with ", ".
func rewriteSrcset(value string, rewrite func(string) string) string {
	if strings.HasPrefix(strings.TrimSpace(strings.ToLower(value)), "data:") {
		return value
	}
	var parts []string
	for _, candidate := range strings.Split(value, ",") {
		fields := strings.Fields(candidate)
		if len(fields) == 0 {
			continue
		}
		fields[0] = rewrite(fields[0])
		parts = append(parts, strings.Join(fields, " "))
	}
	return strings.Join(parts, ", ")
}

// setRawText replaces the children of a raw text element such as <script>.
// The renderer writes text children of script elements unescaped.
func setRawText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

func hasMarker(doc *goquery.Document) bool {
	found := false
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		found = strings.Contains(sel.Text(), archiveFlag)
		return !found
	})
	return found
}
