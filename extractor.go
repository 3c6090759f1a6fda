package mirror

// Extractor discovers in-scope references inside text content.
type Extractor interface {
	// Extract scans text fetched from baseURL and returns the canonical
	// same-origin URLs it references, in first-seen order, without duplicates.
	Extract(text string, baseURL string) []string
}

// Rewriter localizes references inside text content that will be saved at
// file, a path relative to the mirror root.
type Rewriter interface {
	// Rewrite returns the rewritten text and one record per changed reference.
	Rewrite(text string, file string) (string, []RewriteRecord)
}
