package mirror

import "context"

// Store persists the mirror tree. Paths are slash-separated and relative
// to the output root.
type Store interface {
	// Write persists data at path, creating parent directories.
	Write(ctx context.Context, path string, data []byte) error

	// Exists reports whether a file exists at path.
	Exists(path string) bool

	// WriteReport persists the rewrite report.
	WriteReport(ctx context.Context, report *Report) error
}
