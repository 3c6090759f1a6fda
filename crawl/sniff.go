package crawl

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// sniffLen is how much of a body is inspected when the content type
// does not settle the text/binary question.
const sniffLen = 4096

var (
	textHints   = []string{"text/", "javascript", "json", "xml", "svg", "webmanifest", "csv", "module"}
	binaryHints = []string{"image/", "font/", "audio/", "video/", "application/wasm"}
)

// isText reports whether a body should be treated as text.
// Text hints in the content type win over binary hints, so image/svg+xml
// is text.
func isText(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	if ct != "" {
		for _, h := range textHints {
			if strings.Contains(ct, h) {
				return true
			}
		}
		for _, h := range binaryHints {
			if strings.Contains(ct, h) {
				return false
			}
		}
	}
	head := body
	if len(head) > sniffLen {
		head = head[:sniffLen]
		// A rune cut at the boundary is not evidence of binary content.
		for i := 1; i < utf8.UTFMax; i++ {
			if utf8.RuneStart(head[len(head)-i]) {
				if !utf8.FullRune(head[len(head)-i:]) {
					head = head[:len(head)-i]
				}
				break
			}
		}
	}
	return utf8.Valid(head)
}

// decodeText returns body as a UTF-8 string. Bodies that are not valid
// UTF-8 are decoded as Latin-1.
func decodeText(body []byte) (string, error) {
	if utf8.Valid(body) {
		return string(body), nil
	}
	return charmap.ISO8859_1.NewDecoder().String(string(body))
}
