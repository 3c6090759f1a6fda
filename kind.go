package mirror

import (
	"net/url"
	"path"
	"strings"
)

// Kind identifies how a resource is processed: which extractor discovers
// further links in it and which rewriter localizes its references.
type Kind int

// Resource kinds.
const (
	KindOther Kind = iota
	KindHTML
	KindCSS
	KindJS
	KindJSONLike
	KindBinary
)

// String returns the lower-case kind name used in logs and the report.
func (k Kind) String() string {
	switch k {
	case KindHTML:
		return "html"
	case KindCSS:
		return "css"
	case KindJS:
		return "js"
	case KindJSONLike:
		return "jsonlike"
	case KindBinary:
		return "binary"
	default:
		return "other"
	}
}

// acceptedExtensions is the closed allow-list of crawlable file extensions.
var acceptedExtensions = map[string]bool{
	".html": true, ".htm": true, ".css": true, ".js": true, ".mjs": true,
	".json": true, ".map": true, ".xml": true, ".svg": true, ".txt": true,
	".csv": true, ".webmanifest": true,
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true,
	".avif": true, ".ico": true,
	".mp4": true, ".webm": true, ".ogg": true, ".mp3": true, ".wav": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
	".wasm": true,
}

// dataExtensions is the narrower set accepted inside manifests and source maps.
var dataExtensions = map[string]bool{
	".json": true, ".webmanifest": true, ".xml": true, ".map": true,
	".svg": true, ".txt": true, ".csv": true,
}

// contentTypeKinds is matched in order; the first substring found wins.
var contentTypeKinds = []struct {
	substr string
	kind   Kind
}{
	{"text/html", KindHTML},
	{"text/css", KindCSS},
	{"javascript", KindJS},
	{"ecmascript", KindJS},
	{"module", KindJS},
	{"image/svg+xml", KindHTML},
	{"json", KindJSONLike},
	{"xml", KindJSONLike},
	{"svg", KindJSONLike},
	{"csv", KindJSONLike},
	{"webmanifest", KindJSONLike},
	{"/map", KindJSONLike},
}

// KindFromContentType classifies a declared content type.
// Unknown or empty content types yield KindOther.
func KindFromContentType(contentType string) Kind {
	ct := strings.ToLower(contentType)
	if ct == "" {
		return KindOther
	}
	for _, m := range contentTypeKinds {
		if strings.Contains(ct, m.substr) {
			return m.kind
		}
	}
	return KindOther
}

// KindFromURL classifies a URL by its path suffix.
// Directory-like and .html/.htm paths are HTML; unknown suffixes are KindOther.
func KindFromURL(rawURL string) Kind {
	u, err := url.Parse(rawURL)
	if err != nil {
		return KindOther
	}
	if isDirLike(u) {
		return KindHTML
	}
	switch ext := strings.ToLower(path.Ext(u.Path)); ext {
	case ".html", ".htm":
		return KindHTML
	case ".css":
		return KindCSS
	case ".js", ".mjs":
		return KindJS
	case ".json", ".webmanifest", ".xml", ".svg", ".txt", ".csv", ".map":
		return KindJSONLike
	case "":
		return KindOther
	default:
		if acceptedExtensions[ext] {
			return KindBinary
		}
		return KindOther
	}
}

// Classify returns the kind of a resource. A declared content type takes
// priority over the URL suffix when it maps to a known kind.
func Classify(contentType, rawURL string) Kind {
	if k := KindFromContentType(contentType); k != KindOther {
		return k
	}
	return KindFromURL(rawURL)
}

// Accepts reports whether u is in scope for links discovered inside
// content of kind k. HTML accepts directory-like, extensionless and
// allow-listed paths; CSS accepts allow-listed files only; JS additionally
// accepts extensionless module specifiers; JSON-like accepts data formats.
func (k Kind) Accepts(u *url.URL) bool {
	dir := isDirLike(u)
	ext := strings.ToLower(path.Ext(u.Path))
	switch k {
	case KindHTML:
		return dir || ext == "" || acceptedExtensions[ext]
	case KindCSS:
		return !dir && acceptedExtensions[ext]
	case KindJS:
		return !dir && (ext == "" || acceptedExtensions[ext])
	case KindJSONLike:
		return !dir && dataExtensions[ext]
	default:
		return false
	}
}

// IsExtensionless reports whether the URL's last path segment has no
// extension and the path is not directory-like.
func IsExtensionless(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return !isDirLike(u) && path.Ext(u.Path) == ""
}

func isDirLike(u *url.URL) bool {
	return u.Path == "" || strings.HasSuffix(u.Path, "/")
}
