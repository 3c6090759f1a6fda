package mirror

import (
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// unsafeQueryChars matches runs of characters not allowed in a query suffix.
var unsafeQueryChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// LocalPath maps an absolute URL to a relative, slash-separated filesystem
// path inside the mirror. It is a pure function of the URL:
//
//	https://host/            → index.html
//	https://host/blog/       → blog/index.html
//	https://host/about       → about.html
//	https://host/app.js?v=2  → app__q_v_2.js
//
// The fragment is ignored. A directory URL and its explicit index.html
// map to the same path; that collision is accepted.
func LocalPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "index.html"
	}
	p := u.Path
	if p == "" {
		p = "/"
	}
	if strings.HasSuffix(p, "/") {
		p += "index.html"
	}
	if path.Ext(p) == "" {
		p += ".html"
	}
	if u.RawQuery != "" {
		ext := path.Ext(p)
		base := strings.TrimSuffix(p, ext)
		p = base + "__q_" + unsafeQueryChars.ReplaceAllString(u.RawQuery, "_") + ext
	}
	// Cleaning under "/" keeps ".." segments from escaping the mirror root.
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// RelativeRef returns the reference that points from the file at fromFile
// to the file at target, both relative to the mirror root. The result always
// starts with "./" or "../" so module loaders never read it as a bare
// specifier. A non-empty fragment is re-appended.
func RelativeRef(fromFile, target, fragment string) string {
	dir := path.Dir(fromFile)
	rel, err := filepath.Rel(filepath.FromSlash(dir), filepath.FromSlash(target))
	if err != nil {
		rel = target
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	ref := (&url.URL{Path: rel}).String()
	if fragment != "" {
		ref += "#" + fragment
	}
	return ref
}

// Mapper turns references found in saved content into relative paths of
// mirrored files. It applies LocalPath, honouring aliases recorded when a
// module specifier resolved to a different URL.
//
// Mapper is safe for concurrent use.
type Mapper struct {
	scope *Scope

	mu      sync.RWMutex
	aliases map[string]string
}

// NewMapper returns a Mapper for the given scope.
func NewMapper(scope *Scope) *Mapper {
	return &Mapper{scope: scope, aliases: make(map[string]string)}
}

// Scope returns the scope the mapper resolves references in.
func (m *Mapper) Scope() *Scope {
	return m.scope
}

// Alias records that references to from are served by to.
// Both must be canonical URLs.
func (m *Mapper) Alias(from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aliases[from] = to
}

// Resolved returns the URL that serves u, following a recorded alias.
func (m *Mapper) Resolved(u string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if to, ok := m.aliases[u]; ok {
		return to
	}
	return u
}

// Path returns the local path of the file that serves u.
func (m *Mapper) Path(u string) string {
	return LocalPath(m.Resolved(u))
}

// Localize rewrites a reference found in file (a mirror-relative path) into
// a relative reference to the mapped local file. Root-relative, absolute and
// protocol-relative references on the target host are localized; page-relative
// references, other hosts and anything outside the in-scope filter of kind k
// are reported as unchanged.
func (m *Mapper) Localize(k Kind, ref, file string) (string, bool) {
	v := strings.TrimSpace(ref)
	if !localizable(v) {
		return ref, false
	}
	abs, ok := m.scope.ResolveIn(k, v, m.scope.Origin()+"/")
	if !ok {
		return ref, false
	}
	var fragment string
	if u, err := url.Parse(v); err == nil {
		fragment = u.Fragment
	}
	return RelativeRef(file, m.Path(abs), fragment), true
}

func localizable(ref string) bool {
	if strings.HasPrefix(ref, "/") {
		return true
	}
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
