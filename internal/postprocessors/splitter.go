package postprocessors

import (
	"unicode"

	"github.com/custodia-labs/kb-sync/internal/core/ports/driven"
)

// SplitterConfig configures the recursive splitter.
type SplitterConfig struct {
	// ChunkSize is the maximum characters per chunk
	ChunkSize int

	// Overlap is the minimum number of characters consecutive chunks share
	Overlap int

	// Separators are the preferred break points, strongest first
	Separators []string
}

// DefaultSplitterConfig returns the document defaults: 500 characters,
// 100 characters of overlap, breaking at paragraphs, then lines, then words.
func DefaultSplitterConfig() SplitterConfig {
	return SplitterConfig{
		ChunkSize:  500,
		Overlap:    100,
		Separators: []string{"\n\n", "\n", " "},
	}
}

func (c SplitterConfig) normalized() SplitterConfig {
	def := DefaultSplitterConfig()
	if c.ChunkSize <= 0 {
		c.ChunkSize = def.ChunkSize
	}
	if c.Overlap < 0 || c.Overlap >= c.ChunkSize {
		c.Overlap = 0
	}
	if len(c.Separators) == 0 {
		c.Separators = def.Separators
	}
	return c
}

// RecursiveSplitter splits text into overlapping chunks of at most ChunkSize
// characters. Each chunk ends at the strongest separator available in its
// window and falls back to a hard cut when none is found. The next chunk starts
// on a word boundary at least Overlap characters before the previous chunk's end.
// Chunks are trimmed of surrounding whitespace, and a chunk never ends at or
// before the previous chunk's end.
type RecursiveSplitter struct {
	config SplitterConfig
}

// Verify interface compliance
var _ driven.PostProcessor = (*RecursiveSplitter)(nil)

// NewRecursiveSplitter creates a new splitter with the given config.
func NewRecursiveSplitter(config SplitterConfig) *RecursiveSplitter {
	return &RecursiveSplitter{config: config.normalized()}
}

// Process splits every incoming chunk.
func (s *RecursiveSplitter) Process(chunks []driven.Chunk) []driven.Chunk {
	var result []driven.Chunk
	for _, chunk := range chunks {
		text := []rune(chunk.Content)
		for _, sp := range s.spans(text) {
			result = append(result, driven.Chunk{
				Content:     string(text[sp.start:sp.end]),
				Position:    len(result),
				StartOffset: chunk.StartOffset + sp.start,
				EndOffset:   chunk.StartOffset + sp.end,
			})
		}
	}
	return result
}

// Name returns the processor name.
func (s *RecursiveSplitter) Name() string {
	return "recursive-splitter"
}

// Order returns 0 - the splitter runs first.
func (s *RecursiveSplitter) Order() int {
	return 0
}

type span struct {
	start, end int
}

// spans returns trimmed [start, end) rune ranges. Every range ends after the
// previous one and starts at least Overlap characters before the previous end.
func (s *RecursiveSplitter) spans(text []rune) []span {
	size, overlap := s.config.ChunkSize, s.config.Overlap
	n := len(text)

	start := skipSpace(text, 0)
	if start >= n {
		// Blank input still yields one chunk so the filter can drop it.
		return []span{{0, n}}
	}

	var out []span
	prevEnd := -1
	for start < n {
		if n-start <= size {
			out = append(out, span{start, trimRight(text, start, n)})
			break
		}

		end := trimRight(text, start, s.breakPoint(text, start, start+size, prevEnd))
		if end <= prevEnd {
			// Only whitespace between the previous end and the window limit.
			start = skipSpace(text, prevEnd)
			continue
		}
		out = append(out, span{start, end})
		prevEnd = end
		if skipSpace(text, end) >= n {
			break
		}

		start = nextStart(text, start+1, end-overlap)
	}
	return out
}

// breakPoint returns the end of the next chunk within (start, limit].
// A break is only accepted when the trimmed chunk reaches past prevEnd and
// leaves a non-space position at least Overlap characters before its end, so
// the following chunk can start after this one and still share Overlap
// characters. Without a separator it cuts at the last non-space position.
func (s *RecursiveSplitter) breakPoint(text []rune, start, limit, prevEnd int) int {
	minEnd := max(skipSpace(text, start+1)+s.config.Overlap-1, prevEnd)
	for _, sep := range s.config.Separators {
		sepRunes := []rune(sep)
		for p := limit; p > minEnd; p-- {
			if hasSuffixAt(text, p, sepRunes) && trimRight(text, start, p) > minEnd {
				return p
			}
		}
	}
	for p := limit; p > minEnd; p-- {
		if !unicode.IsSpace(text[p-1]) {
			return p
		}
	}
	return limit
}

// nextStart returns the largest p in [lo, hi] starting a word, else the
// largest non-space p in range. The result is never a space, so the overlap
// bound hi holds as is. When the range holds no text it returns the first
// non-space position after lo.
func nextStart(text []rune, lo, hi int) int {
	fallback := -1
	for p := min(hi, len(text)-1); p >= lo; p-- {
		if unicode.IsSpace(text[p]) {
			continue
		}
		if unicode.IsSpace(text[p-1]) {
			return p
		}
		if fallback < 0 {
			fallback = p
		}
	}
	if fallback >= 0 {
		return fallback
	}
	return skipSpace(text, lo)
}

func hasSuffixAt(text []rune, end int, suffix []rune) bool {
	if len(suffix) == 0 || end < len(suffix) {
		return false
	}
	off := end - len(suffix)
	for i, r := range suffix {
		if text[off+i] != r {
			return false
		}
	}
	return true
}

func skipSpace(text []rune, p int) int {
	for p < len(text) && unicode.IsSpace(text[p]) {
		p++
	}
	return p
}

func trimRight(text []rune, start, end int) int {
	for end > start && unicode.IsSpace(text[end-1]) {
		end--
	}
	return end
}
