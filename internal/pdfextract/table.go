package pdfextract

import (
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"policy-rag/internal/config"
)

// bbox is an axis-aligned rectangle in PDF space (origin bottom-left,
// Y grows upward).
type bbox struct {
	X0, Y0, X1, Y1 float64
}

func (b bbox) overlaps(o bbox) bool {
	return b.X0 < o.X1 && o.X0 < b.X1 && b.Y0 < o.Y1 && o.Y0 < b.Y1
}

func glyphBox(g pdf.Text) bbox {
	w := g.W
	if w <= 0 {
		w = g.FontSize / 2
	}
	return bbox{X0: g.X, Y0: g.Y, X1: g.X + w, Y1: g.Y + g.FontSize}
}

// segment is one ruled line: pos is the coordinate on the alignment axis
// (Y for horizontal lines, X for vertical), lo/hi the extent along the line.
type segment struct {
	pos    float64
	lo, hi float64
}

// table is a detected rectangular grid region. Row boundaries are sorted
// top-down (descending Y), column boundaries left-right (ascending X).
type table struct {
	box  bbox
	rows []float64
	cols []float64
}

// extractSegments derives horizontal and vertical line segments from the
// rectangles in a page's content stream. Borders drawn as thin filled rects
// and as full box outlines both contribute their edges, which the snapping
// step later merges.
func extractSegments(rects []pdf.Rect) (horiz, vert []segment) {
	for _, r := range rects {
		x0, y0 := r.Min.X, r.Min.Y
		x1, y1 := r.Max.X, r.Max.Y
		if x1 < x0 {
			x0, x1 = x1, x0
		}
		if y1 < y0 {
			y0, y1 = y1, y0
		}
		w, h := x1-x0, y1-y0
		switch {
		case h <= lineThickness && w > h:
			horiz = append(horiz, segment{pos: (y0 + y1) / 2, lo: x0, hi: x1})
		case w <= lineThickness && h > w:
			vert = append(vert, segment{pos: (x0 + x1) / 2, lo: y0, hi: y1})
		default:
			// Box outline: all four edges count as ruled lines.
			horiz = append(horiz,
				segment{pos: y0, lo: x0, hi: x1},
				segment{pos: y1, lo: x0, hi: x1})
			vert = append(vert,
				segment{pos: x0, lo: y0, hi: y1},
				segment{pos: x1, lo: y0, hi: y1})
		}
	}
	return horiz, vert
}

// lineThickness is the maximum extent, in points, below which a filled
// rectangle is treated as a ruled line rather than a box.
const lineThickness = 2.0

// snapSegments merges segments whose positions differ by at most snapTol
// into one boundary, and joins collinear pieces separated by gaps of at
// most joinTol.
func snapSegments(segs []segment, snapTol, joinTol float64) []segment {
	if len(segs) == 0 {
		return nil
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].pos < segs[j].pos })

	var merged []segment
	group := []segment{segs[0]}
	flush := func() {
		merged = append(merged, joinGroup(group, joinTol)...)
	}
	for _, s := range segs[1:] {
		if s.pos-group[len(group)-1].pos <= snapTol {
			group = append(group, s)
			continue
		}
		flush()
		group = []segment{s}
	}
	flush()
	return merged
}

// joinGroup collapses a group of position-aligned segments into maximal
// runs along the extent axis.
func joinGroup(group []segment, joinTol float64) []segment {
	var pos float64
	for _, s := range group {
		pos += s.pos
	}
	pos /= float64(len(group))

	sort.Slice(group, func(i, j int) bool { return group[i].lo < group[j].lo })
	var out []segment
	cur := segment{pos: pos, lo: group[0].lo, hi: group[0].hi}
	for _, s := range group[1:] {
		if s.lo-cur.hi <= joinTol {
			if s.hi > cur.hi {
				cur.hi = s.hi
			}
			continue
		}
		out = append(out, cur)
		cur = segment{pos: pos, lo: s.lo, hi: s.hi}
	}
	out = append(out, cur)
	return out
}

// detectTables finds grid regions from the ruled lines of a page. Two lines
// belong to the same region when they cross, and a region qualifies as a
// table when it has enough row and column boundaries to enclose the
// configured minimum cell grid.
func detectTables(rects []pdf.Rect, cfg config.TableConfig) []table {
	horiz, vert := extractSegments(rects)
	horiz = snapSegments(horiz, cfg.SnapTolerance, cfg.JoinTolerance)
	vert = snapSegments(vert, cfg.SnapTolerance, cfg.JoinTolerance)
	if len(horiz) < cfg.MinRows+1 || len(vert) < cfg.MinCols+1 {
		return nil
	}

	// Union-find over h-lines (0..len(horiz)-1) and v-lines (offset by
	// len(horiz)), connected by crossings.
	parent := make([]int, len(horiz)+len(vert))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) { parent[find(a)] = find(b) }

	tol := cfg.JoinTolerance
	for hi, h := range horiz {
		for vi, v := range vert {
			crosses := v.pos >= h.lo-tol && v.pos <= h.hi+tol &&
				h.pos >= v.lo-tol && h.pos <= v.hi+tol
			if crosses {
				union(hi, len(horiz)+vi)
			}
		}
	}

	groups := make(map[int]*table)
	for hi, h := range horiz {
		t := groupTable(groups, find(hi))
		t.rows = append(t.rows, h.pos)
	}
	for vi, v := range vert {
		t := groupTable(groups, find(len(horiz)+vi))
		t.cols = append(t.cols, v.pos)
	}

	var tables []table
	for _, t := range groups {
		if len(t.rows) < cfg.MinRows+1 || len(t.cols) < cfg.MinCols+1 {
			continue
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(t.rows))) // top-down
		sort.Float64s(t.cols)
		t.box = bbox{
			X0: t.cols[0],
			Y0: t.rows[len(t.rows)-1],
			X1: t.cols[len(t.cols)-1],
			Y1: t.rows[0],
		}
		tables = append(tables, *t)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].box.Y1 > tables[j].box.Y1 })
	return tables
}

func groupTable(groups map[int]*table, root int) *table {
	t, ok := groups[root]
	if !ok {
		t = &table{}
		groups[root] = t
	}
	return t
}

// cellGrid assigns the given glyphs to table cells by position and returns
// the cell text grid, rows top-down and columns left-right.
func (t table) cellGrid(glyphs []pdf.Text) [][]string {
	nRows := len(t.rows) - 1
	nCols := len(t.cols) - 1
	cells := make([][]strings.Builder, nRows)
	for r := range cells {
		cells[r] = make([]strings.Builder, nCols)
	}

	sorted := make([]pdf.Text, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	for _, g := range sorted {
		cx := g.X + g.W/2
		cy := g.Y + g.FontSize/2
		r := t.rowIndex(cy)
		c := t.colIndex(cx)
		if r < 0 || c < 0 {
			continue
		}
		cells[r][c].WriteString(g.S)
	}

	grid := make([][]string, nRows)
	for r := range cells {
		grid[r] = make([]string, nCols)
		for c := range cells[r] {
			grid[r][c] = strings.TrimSpace(cells[r][c].String())
		}
	}
	return grid
}

func (t table) rowIndex(y float64) int {
	for r := 0; r < len(t.rows)-1; r++ {
		if y <= t.rows[r] && y >= t.rows[r+1] {
			return r
		}
	}
	return -1
}

func (t table) colIndex(x float64) int {
	for c := 0; c < len(t.cols)-1; c++ {
		if x >= t.cols[c] && x <= t.cols[c+1] {
			return c
		}
	}
	return -1
}

// describeGrid renders a cell grid as descriptive text. Row 0 is taken as
// the header row; each non-blank header becomes a section listing the
// non-blank values of its column, one bullet per data row:
//
//	Header:
//	- value
//	- value
//
// Sections are separated by blank lines. An empty grid yields "".
func describeGrid(grid [][]string) string {
	if len(grid) == 0 {
		return ""
	}
	headers := grid[0]
	data := grid[1:]
	if len(data) == 0 {
		// Single-row tables keep the row as data under its own values.
		data = grid
	}

	var sections []string
	for c, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			continue
		}
		var sb strings.Builder
		sb.WriteString(header)
		sb.WriteString(":")
		for _, row := range data {
			if c >= len(row) {
				continue
			}
			val := strings.TrimSpace(row[c])
			if val == "" {
				continue
			}
			sb.WriteString("\n- ")
			sb.WriteString(val)
		}
		sections = append(sections, sb.String())
	}
	return strings.Join(sections, "\n\n")
}
