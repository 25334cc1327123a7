package pdf

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
	"github.com/custodia-labs/kb-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentExtractor = (*Extractor)(nil)

const (
	DefaultTopMargin    = 50.0
	DefaultBottomMargin = 100.0
	pageSeparator       = "\n\n"
)

// Config configures the PDF extractor. Margins are in PDF user units.
type Config struct {
	TopMargin    float64
	BottomMargin float64
	Logger       *slog.Logger
}

// Extractor pulls page text out of PDFs, cropping running headers and footers.
type Extractor struct {
	top    float64
	bottom float64
	logger *slog.Logger
}

// NewExtractor creates a PDF extractor. Zero margins fall back to the defaults.
func NewExtractor(cfg Config) *Extractor {
	if cfg.TopMargin <= 0 {
		cfg.TopMargin = DefaultTopMargin
	}
	if cfg.BottomMargin <= 0 {
		cfg.BottomMargin = DefaultBottomMargin
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Extractor{
		top:    cfg.TopMargin,
		bottom: cfg.BottomMargin,
		logger: cfg.Logger.With("component", "pdf"),
	}
}

// SupportsFile reports whether the filename has a .pdf extension.
func (e *Extractor) SupportsFile(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// Extract returns the cropped text of every page joined by a blank line.
func (e *Extractor) Extract(ctx context.Context, content []byte) (text string, err error) {
	// The parser panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", domain.ErrDocumentParse, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDocumentParse, err)
	}

	n := reader.NumPage()
	if n == 0 {
		return "", fmt.Errorf("%w: document has no pages", domain.ErrDocumentParse)
	}

	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, e.pageText(page))
		e.logger.Debug("page processed", "page", i)
	}

	combined := strings.Join(pages, pageSeparator)
	e.logger.Info("extracted text from pdf", "pages", n, "chars", len(combined))
	return combined, nil
}

// pageText keeps glyphs whose baseline lies inside the cropped box and
// reassembles them into lines.
func (e *Extractor) pageText(page pdf.Page) string {
	lowerY, upperY := mediaBoxY(page)
	minY, maxY := lowerY+e.bottom, upperY-e.top

	var kept []pdf.Text
	for _, t := range page.Content().Text {
		if t.Y < minY || t.Y > maxY {
			continue
		}
		kept = append(kept, t)
	}
	return assemble(kept)
}

// mediaBoxY returns the lower and upper y of the MediaBox, inherited from
// ancestors when absent. Defaults to US Letter.
func mediaBoxY(page pdf.Page) (lower, upper float64) {
	for v := page.V; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.Len() == 4 {
			lower, upper = box.Index(1).Float64(), box.Index(3).Float64()
			if lower > upper {
				lower, upper = upper, lower
			}
			return lower, upper
		}
	}
	return 0, 792
}

// assemble groups glyphs into lines top to bottom and inserts spaces at
// visible horizontal gaps.
func assemble(texts []pdf.Text) string {
	if len(texts) == 0 {
		return ""
	}

	type line struct {
		y      float64
		glyphs []pdf.Text
	}
	var lines []*line
	for _, t := range texts {
		tol := math.Max(t.FontSize*0.5, 1)
		var target *line
		for _, l := range lines {
			if math.Abs(l.y-t.Y) <= tol {
				target = l
				break
			}
		}
		if target == nil {
			target = &line{y: t.Y}
			lines = append(lines, target)
		}
		target.glyphs = append(target.glyphs, t)
	}

	sort.SliceStable(lines, func(i, j int) bool { return lines[i].y > lines[j].y })

	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		sort.SliceStable(l.glyphs, func(i, j int) bool { return l.glyphs[i].X < l.glyphs[j].X })
		prevEnd := math.Inf(-1)
		for _, g := range l.glyphs {
			gap := g.X - prevEnd
			if prevEnd != math.Inf(-1) && gap > g.FontSize*0.2 && !strings.HasPrefix(g.S, " ") {
				b.WriteByte(' ')
			}
			b.WriteString(g.S)
			prevEnd = g.X + g.W
		}
	}
	return b.String()
}
