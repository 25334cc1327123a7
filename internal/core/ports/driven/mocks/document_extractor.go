package mocks

import (
	"context"
	"strings"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
	"github.com/custodia-labs/kb-sync/internal/core/ports/driven"
)

var _ driven.DocumentExtractor = (*MockDocumentExtractor)(nil)

// MockDocumentExtractor treats the raw bytes as already-extracted text.
// Content starting with "%CORRUPT" fails with domain.ErrDocumentParse.
type MockDocumentExtractor struct {
	ExtractFn func(content []byte) (string, error)
}

// NewMockDocumentExtractor creates a new MockDocumentExtractor
func NewMockDocumentExtractor() *MockDocumentExtractor {
	return &MockDocumentExtractor{}
}

func (m *MockDocumentExtractor) Extract(ctx context.Context, content []byte) (string, error) {
	if m.ExtractFn != nil {
		return m.ExtractFn(content)
	}
	if strings.HasPrefix(string(content), "%CORRUPT") {
		return "", domain.ErrDocumentParse
	}
	return string(content), nil
}

func (m *MockDocumentExtractor) SupportsFile(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}
