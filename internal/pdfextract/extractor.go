// Package pdfextract converts PDF pages into ordered text, replacing
// detected table regions with deterministic descriptive blocks so that the
// downstream chunker sees prose-like text in correct reading order.
package pdfextract

import (
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"policy-rag/internal/config"
)

type Extractor struct {
	cfg config.TableConfig
}

func New(cfg config.TableConfig) *Extractor {
	return &Extractor{cfg: cfg}
}

// PageText extracts one page as ordered text with tables rewritten as
// descriptive blocks. When structured extraction fails the page degrades to
// plain-text extraction; a page never aborts the document.
func (e *Extractor) PageText(page pdf.Page, pageNumber int) string {
	text, err := e.structuredText(page)
	if err == nil {
		return text
	}
	log.Warn().Err(err).Int("page", pageNumber).Msg("structured extraction failed, falling back to plain text")

	plain, perr := page.GetPlainText(nil)
	if perr != nil {
		log.Error().Err(perr).Int("page", pageNumber).Msg("plain text extraction failed")
		return ""
	}
	return plain
}

// structuredText runs table detection and positional layout for one page.
// The content stream parser can panic on malformed PDFs, so the whole pass
// is guarded.
func (e *Extractor) structuredText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("content extraction panicked: %v", r)
		}
	}()

	content := page.Content()
	return e.composePage(content.Text, content.Rect), nil
}

// composePage replaces table-region glyphs with descriptive blocks and
// lays everything out in reading order.
func (e *Extractor) composePage(glyphs []pdf.Text, rects []pdf.Rect) string {
	tables := detectTables(rects, e.cfg)

	var synthetic []pdf.Text
	for _, t := range tables {
		inside := glyphsWithin(glyphs, t.box)
		desc := describeGrid(t.cellGrid(inside))
		if desc == "" {
			continue
		}
		anchor := anchorGlyph(inside, t.box)
		anchor.S = desc
		synthetic = append(synthetic, anchor)
		glyphs = removeOverlapping(glyphs, t.box)
	}

	glyphs = append(glyphs, synthetic...)
	return layoutGlyphs(glyphs)
}

func glyphsWithin(glyphs []pdf.Text, box bbox) []pdf.Text {
	var out []pdf.Text
	for _, g := range glyphs {
		if box.overlaps(glyphBox(g)) {
			out = append(out, g)
		}
	}
	return out
}

func removeOverlapping(glyphs []pdf.Text, box bbox) []pdf.Text {
	out := glyphs[:0:0]
	for _, g := range glyphs {
		if !box.overlaps(glyphBox(g)) {
			out = append(out, g)
		}
	}
	return out
}

// anchorGlyph picks the position at which the descriptive table block is
// re-inserted: the first glyph of the table region in reading order, or a
// synthetic zero-width glyph at the region's top-left corner when the
// region holds no glyphs at all. The fallback keeps empty-looking tables
// from disappearing from the page text.
func anchorGlyph(inside []pdf.Text, box bbox) pdf.Text {
	if len(inside) == 0 {
		return pdf.Text{X: box.X0, Y: box.Y1, W: 0, FontSize: 10}
	}
	anchor := inside[0]
	for _, g := range inside[1:] {
		if g.Y > anchor.Y || (g.Y == anchor.Y && g.X < anchor.X) {
			anchor = g
		}
	}
	anchor.W = 0
	return anchor
}
