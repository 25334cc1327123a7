package postprocessors

import (
	"strings"

	"github.com/custodia-labs/kb-sync/internal/core/ports/driven"
)

// BlankFilter drops chunks that are empty or whitespace-only and
// renumbers the remaining positions.
type BlankFilter struct{}

// Verify interface compliance
var _ driven.PostProcessor = (*BlankFilter)(nil)

// NewBlankFilter creates a new blank filter.
func NewBlankFilter() *BlankFilter {
	return &BlankFilter{}
}

// Process removes blank chunks.
func (f *BlankFilter) Process(chunks []driven.Chunk) []driven.Chunk {
	result := make([]driven.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Content) == "" {
			continue
		}
		chunk.Position = len(result)
		result = append(result, chunk)
	}
	return result
}

// Name returns the processor name.
func (f *BlankFilter) Name() string {
	return "blank-filter"
}

// Order returns 10 - runs after the splitter.
func (f *BlankFilter) Order() int {
	return 10
}
