// Package regex implements pattern-based reference extraction and
// rewriting for CSS, JavaScript and JSON-like text.
package regex

import (
	"regexp"
	"strings"
)

// pattern is a compiled expression whose listed capture groups hold a
// reference. Only one group of an alternation participates in a match.
type pattern struct {
	re      *regexp.Regexp
	groups  []int
	generic bool
}

func newPattern(expr string, groups ...int) pattern {
	return pattern{re: regexp.MustCompile(expr), groups: groups}
}

// cssPatterns matches @import strings and url() values.
var cssPatterns = []pattern{
	newPattern(`(?i)@import\s+["']([^"']+)["']|url\(\s*["']?([^\s<>"')]+)["']?\s*\)`, 1, 2),
}

// jsPatterns are the structured module and worker reference forms.
var jsPatterns = []pattern{
	newPattern(`(?i)\bimport\s*\(\s*["']([^"']+)["']\s*\)`, 1),
	newPattern(`(?i)\bexport\s+[^;]*?\bfrom\s+["']([^"']+)["']`, 1),
	newPattern(`(?i)\bimport\s+[^"']*?\bfrom\s+["']([^"']+)["']`, 1),
	newPattern(`(?i)\brequire\s*\(\s*["']([^"']+)["']\s*\)`, 1),
	newPattern(`(?i)\bnew\s+Worker\s*\(\s*["']([^"']+)["']`, 1),
	newPattern(`(?i)\bnavigator\.serviceWorker\.register\s*\(\s*["']([^"']+)["']`, 1),
	newPattern(`(?i)\bimportScripts\s*\(\s*["']([^"']+)["']`, 1),
	newPattern(`(?i)\bnew\s+URL\s*\(\s*["']([^"']+)["']\s*,\s*import\.meta\.url\s*\)`, 1),
	newPattern(`\bimport\s*["']([^"']+)["']`, 1),
}

// genericPattern matches quoted root-relative strings that are not part of
// an identifier, tag or hyphenated word. The preceding character is
// consumed instead of asserted.
var genericPattern = pattern{
	re:      regexp.MustCompile(`(?:^|[^<\w-])["'](/[A-Za-z0-9._~/%+?=&:@;,!$*()#-]+)["']`),
	groups:  []int{1},
	generic: true,
}

// span is the byte range of one captured reference.
type span struct {
	start, end int
}

// spans returns the ranges of every non-empty reference captured by p in
// text, in source order.
func (p pattern) spans(text string) []span {
	var out []span
	for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
		for _, g := range p.groups {
			start, end := m[2*g], m[2*g+1]
			if start < 0 || start == end {
				continue
			}
			out = append(out, span{start: start, end: end})
		}
	}
	return out
}

// each calls fn with every non-empty reference captured by p in text.
func (p pattern) each(text string, fn func(ref string)) {
	for _, sp := range p.spans(text) {
		fn(text[sp.start:sp.end])
	}
}

// plausible rejects captured values that span markup or lines.
func plausible(ref string) bool {
	return !strings.ContainsAny(ref, "<>\r\n")
}
