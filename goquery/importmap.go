package goquery

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/mirror"
)

// Compile-time interface verification.
var _ mirror.Extractor = (*ImportMapExtractor)(nil)

// importMap is the subset of an import map document that carries references.
type importMap struct {
	Imports map[string]string `json:"imports"`
}

// ImportMapExtractor discovers the module URLs mapped by the document's
// <script type="importmap"> elements. Only root-relative and same-origin
// absolute entries are reported; bare and page-relative values are not
// fetchable specifiers on their own.
type ImportMapExtractor struct {
	scope *mirror.Scope
}

// NewImportMapExtractor creates an ImportMapExtractor for scope.
func NewImportMapExtractor(scope *mirror.Scope) *ImportMapExtractor {
	return &ImportMapExtractor{scope: scope}
}

// Extract returns the canonical module URLs of every import map in the
// document, sorted by specifier within each map, without duplicates.
// Malformed maps are skipped.
func (e *ImportMapExtractor) Extract(text string, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil
	}

	var urls []string
	seen := make(map[string]bool)
	doc.Find(`script[type="importmap"]`).Each(func(_ int, sel *goquery.Selection) {
		var m importMap
		if err := json.Unmarshal([]byte(sel.Text()), &m); err != nil {
			return
		}
		for _, key := range sortedKeys(m.Imports) {
			v := strings.TrimSpace(m.Imports[key])
			if !e.rootRelativeOrSameOrigin(v) {
				continue
			}
			abs, ok := e.scope.ResolveIn(mirror.KindJS, v, baseURL)
			if !ok || seen[abs] {
				continue
			}
			seen[abs] = true
			urls = append(urls, abs)
		}
	})
	return urls
}

func (e *ImportMapExtractor) rootRelativeOrSameOrigin(v string) bool {
	if strings.HasPrefix(v, "/") && !strings.HasPrefix(v, "//") {
		return true
	}
	_, ok := e.scope.Canonical(v)
	return ok
}

// rewriteImportMap rewrites every string value of the imports object and
// re-serializes the map. Other top-level keys are preserved.
func rewriteImportMap(raw string, rewrite func(string) string) (string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return "", err
	}
	var m importMap
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return "", err
	}
	if m.Imports == nil {
		return raw, nil
	}
	for _, key := range sortedKeys(m.Imports) {
		m.Imports[key] = rewrite(m.Imports[key])
	}
	imports, err := json.Marshal(m.Imports)
	if err != nil {
		return "", err
	}
	doc["imports"] = imports
	out, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
