package mirror

import (
	"net/url"
	"regexp"
	"strings"
)

// Scope decides same-origin membership and produces canonical absolute URLs
// for the single site being mirrored.
type Scope struct {
	origin *url.URL
	strip  *regexp.Regexp
}

// NewScope creates a Scope for the site that serves target.
// Only http and https targets with a host are accepted.
func NewScope(target string) (*Scope, error) {
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return nil, Errorf(EINVALID, "invalid target URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, Errorf(EINVALID, "target URL must be http or https: %q", target)
	}
	if u.Host == "" {
		return nil, Errorf(EINVALID, "target URL has no host: %q", target)
	}
	host := strings.ToLower(u.Host)
	return &Scope{
		origin: &url.URL{Scheme: u.Scheme, Host: host},
		strip:  regexp.MustCompile(`(?i)(?:https?:)?//` + regexp.QuoteMeta(host) + `(?:[/'")\s]|$)`),
	}, nil
}

// Origin returns the scheme and host of the site, e.g. "https://example.com".
func (s *Scope) Origin() string {
	return s.origin.String()
}

// Host returns the target host.
func (s *Scope) Host() string {
	return s.origin.Host
}

// Canonical returns the canonical form of an absolute same-origin URL, or
// false if rawURL is not an http(s) URL on the target host.
func (s *Scope) Canonical(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	return s.canonical(u)
}

// Resolve resolves an href/src-like reference against baseURL and returns
// the canonical same-origin URL with its fragment stripped. Empty values,
// data: and blob: URLs, fragment-only references and anything that does not
// land on the target host are rejected.
func (s *Scope) Resolve(ref, baseURL string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "blob:") {
		return "", false
	}
	if strings.HasPrefix(ref, "//") {
		ref = "https:" + ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if !r.IsAbs() {
		base, err := url.Parse(baseURL)
		if err != nil {
			return "", false
		}
		r = base.ResolveReference(r)
	}
	return s.canonical(r)
}

// ResolveIn is Resolve followed by the in-scope filter of kind k.
func (s *Scope) ResolveIn(k Kind, ref, baseURL string) (string, bool) {
	abs, ok := s.Resolve(ref, baseURL)
	if !ok {
		return "", false
	}
	u, err := url.Parse(abs)
	if err != nil || !k.Accepts(u) {
		return "", false
	}
	return abs, true
}

// StripOrigin replaces every occurrence of the site origin in text with
// "/", turning absolute same-origin references into root-relative ones:
// "https://host/a.js" becomes "/a.js" and "https://host" becomes "/".
// A host that merely starts with the target host is left alone.
func (s *Scope) StripOrigin(text string) string {
	return s.strip.ReplaceAllStringFunc(text, func(m string) string {
		switch last := m[len(m)-1]; last {
		case '/':
			return "/"
		case '\'', '"', ')', ' ', '\t', '\n', '\r', '\f':
			return "/" + string(last)
		default:
			return "/"
		}
	})
}

func (s *Scope) canonical(u *url.URL) (string, bool) {
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if !strings.EqualFold(u.Host, s.origin.Host) {
		return "", false
	}
	c := *u
	c.Scheme = s.origin.Scheme
	c.Host = s.origin.Host
	c.Fragment = ""
	c.RawFragment = ""
	c.User = nil
	if c.Path == "" {
		c.Path = "/"
		c.RawPath = ""
	}
	return c.String(), true
}
