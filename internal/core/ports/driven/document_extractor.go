package driven

import "context"

// DocumentExtractor turns raw document bytes into plain text.
type DocumentExtractor interface {
	// Extract returns the document text with pages separated by a blank line.
	// Malformed input wraps domain.ErrDocumentParse.
	Extract(ctx context.Context, content []byte) (string, error)

	// SupportsFile reports whether the extractor handles the given file name.
	SupportsFile(filename string) bool
}
