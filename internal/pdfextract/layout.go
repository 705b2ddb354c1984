package pdfextract

import (
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	// Glyphs whose baselines differ by at most lineTolerance points are
	// laid out on the same output line.
	lineTolerance = 2.0

	// Horizontal gap beyond which two glyphs on one line get a separating
	// space.
	wordGap = 1.0

	// Vertical gap, as a multiple of the line height, beyond which a blank
	// line is emitted between two output lines.
	paragraphGapFactor = 1.8
)

// layoutGlyphs renders positioned glyphs into a single page string,
// top-to-bottom and left-to-right. Synthetic multi-line glyphs (the
// descriptive table blocks) are emitted as standalone blocks at the point
// their anchor position reaches in the reading flow.
func layoutGlyphs(glyphs []pdf.Text) string {
	if len(glyphs) == 0 {
		return ""
	}

	sorted := make([]pdf.Text, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var lines []line
	for _, g := range sorted {
		if len(lines) == 0 || lines[len(lines)-1].y-g.Y > lineTolerance {
			lines = append(lines, line{y: g.Y, glyphs: []pdf.Text{g}})
			continue
		}
		last := &lines[len(lines)-1]
		last.glyphs = append(last.glyphs, g)
	}

	var sb strings.Builder
	prevY := lines[0].y
	prevHeight := lineHeight(lines[0])
	for i, ln := range lines {
		if i > 0 {
			sb.WriteString("\n")
			if prevY-ln.y > paragraphGapFactor*prevHeight {
				sb.WriteString("\n")
			}
		}
		sb.WriteString(renderLine(ln))
		prevY = ln.y
		prevHeight = lineHeight(ln)
	}
	return strings.TrimRight(sb.String(), "\n")
}

type line struct {
	y      float64
	glyphs []pdf.Text
}

func lineHeight(ln line) float64 {
	h := 0.0
	for _, g := range ln.glyphs {
		if g.FontSize > h {
			h = g.FontSize
		}
	}
	if h == 0 {
		h = 12
	}
	return h
}

func renderLine(ln line) string {
	sort.SliceStable(ln.glyphs, func(i, j int) bool { return ln.glyphs[i].X < ln.glyphs[j].X })

	var sb strings.Builder
	prevEnd := 0.0
	for i, g := range ln.glyphs {
		if strings.Contains(g.S, "\n") {
			// Synthetic block glyph: isolate on its own lines so the
			// descriptive table text keeps its internal structure.
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(g.S)
			if i < len(ln.glyphs)-1 {
				sb.WriteString("\n")
			}
			prevEnd = g.X + g.W
			continue
		}
		if i > 0 && g.X-prevEnd > wordGap && sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteString(" ")
		}
		sb.WriteString(g.S)
		prevEnd = g.X + g.W
	}
	return sb.String()
}
