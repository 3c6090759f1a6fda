package regex

import (
	"cmp"
	"slices"
	"strings"

	"github.com/fwojciec/mirror"
)

// Compile-time interface verification.
var _ mirror.Rewriter = (*Rewriter)(nil)

// Rewriter strips the site origin from text and localizes root-relative
// references captured by its patterns. With no patterns it only strips
// the origin.
type Rewriter struct {
	mapper   *mirror.Mapper
	kind     mirror.Kind
	patterns []pattern
}

// NewCSSRewriter returns a Rewriter for @import and url() references.
func NewCSSRewriter(mapper *mirror.Mapper) *Rewriter {
	return &Rewriter{mapper: mapper, kind: mirror.KindCSS, patterns: cssPatterns}
}

// NewJSRewriter returns a Rewriter for the structured JavaScript reference
// forms. Bare string literals are discovered but never rewritten.
func NewJSRewriter(mapper *mirror.Mapper) *Rewriter {
	return &Rewriter{mapper: mapper, kind: mirror.KindJS, patterns: jsPatterns}
}

// NewJSONRewriter returns a Rewriter that only strips the site origin.
func NewJSONRewriter(mapper *mirror.Mapper) *Rewriter {
	return &Rewriter{mapper: mapper, kind: mirror.KindJSONLike}
}

// Rewrite returns the rewritten text and one record per localized
// reference, in source order. References are localized as written; the site
// origin is stripped from the remaining text afterwards.
func (r *Rewriter) Rewrite(text string, file string) (string, []mirror.RewriteRecord) {
	var spans []span
	for _, p := range r.patterns {
		spans = append(spans, p.spans(text)...)
	}
	slices.SortStableFunc(spans, func(a, b span) int {
		return cmp.Compare(a.start, b.start)
	})

	var (
		b       strings.Builder
		records []mirror.RewriteRecord
		last    int
	)
	b.Grow(len(text))
	for _, sp := range spans {
		if sp.start < last {
			continue
		}
		ref := text[sp.start:sp.end]
		if !plausible(ref) {
			continue
		}
		to, ok := r.mapper.Localize(r.kind, ref, file)
		if !ok {
			continue
		}
		records = append(records, mirror.RewriteRecord{
			File: file,
			From: strings.TrimSpace(ref),
			To:   to,
			Kind: r.kind,
		})
		b.WriteString(text[last:sp.start])
		b.WriteString(to)
		last = sp.end
	}
	b.WriteString(text[last:])
	return r.mapper.Scope().StripOrigin(b.String()), records
}
