package mirror

import (
	"bytes"
	"encoding/json"
	"sync"
)

// RewriteRecord describes one reference changed by a rewriter.
type RewriteRecord struct {
	File string `json:"file"`
	From string `json:"from"`
	To   string `json:"to"`
	Kind Kind   `json:"-"`
}

// Report aggregates rewrite records by content kind for the whole run.
// It is append-only and safe for concurrent use.
type Report struct {
	mu   sync.Mutex
	html []RewriteRecord
	css  []RewriteRecord
	js   []RewriteRecord
}

// NewReport returns an empty Report.
func NewReport() *Report {
	return &Report{
		html: []RewriteRecord{},
		css:  []RewriteRecord{},
		js:   []RewriteRecord{},
	}
}

// Append adds records to the list of their kind.
// Records of kinds other than HTML, CSS and JS are dropped.
func (r *Report) Append(records ...RewriteRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		switch rec.Kind {
		case KindHTML:
			r.html = append(r.html, rec)
		case KindCSS:
			r.css = append(r.css, rec)
		case KindJS:
			r.js = append(r.js, rec)
		}
	}
}

// Len returns the total number of records.
func (r *Report) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.html) + len(r.css) + len(r.js)
}

// MarshalJSON encodes the report as {"html": [...], "css": [...], "js": [...]}.
func (r *Report) MarshalJSON() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(struct {
		HTML []RewriteRecord `json:"html"`
		CSS  []RewriteRecord `json:"css"`
		JS   []RewriteRecord `json:"js"`
	}{
		HTML: nonNil(r.html),
		CSS:  nonNil(r.css),
		JS:   nonNil(r.js),
	})
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func nonNil(records []RewriteRecord) []RewriteRecord {
	if records == nil {
		return []RewriteRecord{}
	}
	return records
}
