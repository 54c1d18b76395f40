package extraction

import (
	"fmt"
	"image"
	_ "image/png"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/draw"

	"crparser/internal/domain"
)

const (
	// darkThreshold is the gray level below which a pixel is ink.
	darkThreshold = 128
	// mergeTolerance is the pixel distance within which rulings are one line.
	mergeTolerance = 2
	// boundaryTolerance is how far (points) text may overhang a cell edge.
	boundaryTolerance = 2.0
	// tightGapRatio is the gap, relative to text height, below which two
	// fragments on one line are glued without a space.
	tightGapRatio = 0.15
)

// segment is one run of ink along a single pixel row or column.
type segment struct {
	pos, start, end int
}

// ruling is a merged horizontal or vertical line in pixel space.
type ruling struct {
	minPos, maxPos int
	start, end     int
}

func (r ruling) pos() int { return (r.minPos + r.maxPos) / 2 }

// grid is a detected lattice table: sorted row and column boundaries in
// pixel space.
type grid struct {
	rows []int
	cols []int
}

func (g grid) top() int  { return g.rows[0] }
func (g grid) left() int { return g.cols[0] }

// minRulingLengths returns the shortest horizontal and vertical runs counted
// as rulings. In landscape both axes use the page's shorter side.
func minRulingLengths(w, h, lineScale int, landscape bool) (int, int) {
	if lineScale <= 0 {
		lineScale = 40
	}
	minH, minV := w/lineScale, h/lineScale
	if landscape {
		short := w
		if h < short {
			short = h
		}
		minH, minV = short/lineScale, short/lineScale
	}
	return max(minH, 2), max(minV, 2)
}

// detectGrids finds ruled tables in a grayscale raster, ordered top to bottom
// then left to right.
func detectGrids(img *image.Gray, lineScale int, landscape bool) []grid {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	minH, minV := minRulingLengths(w, h, lineScale, landscape)

	dark := func(x, y int) bool {
		return img.GrayAt(b.Min.X+x, b.Min.Y+y).Y < darkThreshold
	}

	var hSegs, vSegs []segment
	for y := 0; y < h; y++ {
		hSegs = appendRuns(hSegs, y, w, minH, func(i int) bool { return dark(i, y) })
	}
	for x := 0; x < w; x++ {
		vSegs = appendRuns(vSegs, x, h, minV, func(i int) bool { return dark(x, i) })
	}

	hLines := mergeSegments(hSegs)
	vLines := mergeSegments(vSegs)
	return groupGrids(hLines, vLines)
}

// appendRuns records every run of ink at least minLen long along one axis.
func appendRuns(segs []segment, pos, length, minLen int, ink func(int) bool) []segment {
	start := -1
	for i := 0; i <= length; i++ {
		if i < length && ink(i) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= minLen {
			segs = append(segs, segment{pos: pos, start: start, end: i - 1})
		}
		start = -1
	}
	return segs
}

// mergeSegments joins adjacent, overlapping runs into rulings so that a
// stroke several pixels thick becomes one line.
func mergeSegments(segs []segment) []ruling {
	sort.Slice(segs, func(i, j int) bool {
		if segs[i].pos != segs[j].pos {
			return segs[i].pos < segs[j].pos
		}
		return segs[i].start < segs[j].start
	})

	var lines []ruling
	for _, s := range segs {
		merged := false
		for i := range lines {
			l := &lines[i]
			if s.pos > l.maxPos+mergeTolerance {
				continue
			}
			if s.start > l.end+mergeTolerance || s.end < l.start-mergeTolerance {
				continue
			}
			l.maxPos = max(l.maxPos, s.pos)
			l.start = min(l.start, s.start)
			l.end = max(l.end, s.end)
			merged = true
			break
		}
		if !merged {
			lines = append(lines, ruling{minPos: s.pos, maxPos: s.pos, start: s.start, end: s.end})
		}
	}
	return lines
}

func intersects(hl, vl ruling) bool {
	x, y := vl.pos(), hl.pos()
	return x >= hl.start-mergeTolerance && x <= hl.end+mergeTolerance &&
		y >= vl.start-mergeTolerance && y <= vl.end+mergeTolerance
}

// groupGrids clusters intersecting rulings into connected components and
// keeps those with at least two rulings on each axis.
func groupGrids(hLines, vLines []ruling) []grid {
	parent := make([]int, len(hLines)+len(vLines))
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
	for i, hl := range hLines {
		for j, vl := range vLines {
			if intersects(hl, vl) {
				parent[find(i)] = find(len(hLines) + j)
			}
		}
	}

	type component struct{ rows, cols []int }
	comps := make(map[int]*component)
	for i, hl := range hLines {
		root := find(i)
		if comps[root] == nil {
			comps[root] = &component{}
		}
		comps[root].rows = append(comps[root].rows, hl.pos())
	}
	for j, vl := range vLines {
		root := find(len(hLines) + j)
		if comps[root] == nil {
			comps[root] = &component{}
		}
		comps[root].cols = append(comps[root].cols, vl.pos())
	}

	var grids []grid
	for _, c := range comps {
		rows := uniquePositions(c.rows)
		cols := uniquePositions(c.cols)
		if len(rows) < 2 || len(cols) < 2 {
			continue
		}
		grids = append(grids, grid{rows: rows, cols: cols})
	}
	sort.Slice(grids, func(i, j int) bool {
		if grids[i].top() != grids[j].top() {
			return grids[i].top() < grids[j].top()
		}
		return grids[i].left() < grids[j].left()
	})
	return grids
}

// uniquePositions sorts positions and collapses those within mergeTolerance.
func uniquePositions(ps []int) []int {
	sort.Ints(ps)
	var out []int
	for _, p := range ps {
		if len(out) > 0 && p-out[len(out)-1] <= mergeTolerance {
			continue
		}
		out = append(out, p)
	}
	return out
}

// buildLatticeTable maps a pixel-space grid onto page space, assigns text to
// cells and scores how cleanly the text fits the cells.
func buildLatticeTable(g grid, page *PageText, scaleX, scaleY float64) ExtractedTable {
	rows := make([]float64, len(g.rows))
	for i, p := range g.rows {
		rows[i] = float64(p) / scaleY
	}
	cols := make([]float64, len(g.cols))
	for i, p := range g.cols {
		cols[i] = float64(p) / scaleX
	}

	nRows, nCols := len(rows)-1, len(cols)-1
	cells := make([][][]Fragment, nRows)
	for r := range cells {
		cells[r] = make([][]Fragment, nCols)
	}

	total, misfits := 0, 0
	for _, f := range page.Fragments {
		r := bandIndex(rows, f.centerY())
		c := bandIndex(cols, f.centerX())
		if r < 0 || c < 0 {
			continue
		}
		total++
		if f.X0 < cols[c]-boundaryTolerance || f.X1 > cols[c+1]+boundaryTolerance ||
			f.Y0 < rows[r]-boundaryTolerance || f.Y1 > rows[r+1]+boundaryTolerance {
			misfits++
		}
		cells[r][c] = append(cells[r][c], f)
	}

	table := ExtractedTable{
		PageNumber: page.Number,
		Accuracy:   accuracy(total, misfits),
		Rows:       make([]domain.Row, nRows),
	}
	for r := 0; r < nRows; r++ {
		row := make(domain.Row, nCols)
		for c := 0; c < nCols; c++ {
			row[c] = domain.Cell{Column: strconv.Itoa(c), Value: joinCellText(cells[r][c])}
		}
		table.Rows[r] = row
	}
	return table
}

// bandIndex returns i such that bounds[i] <= v < bounds[i+1], or -1.
func bandIndex(bounds []float64, v float64) int {
	for i := 0; i+1 < len(bounds); i++ {
		if v >= bounds[i] && v < bounds[i+1] {
			return i
		}
	}
	return -1
}

func accuracy(total, misfits int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(10000*float64(total-misfits)/float64(total)) / 100
}

// joinCellText orders fragments into visual lines, joins each line left to
// right and separates lines with "\n".
func joinCellText(frags []Fragment) string {
	if len(frags) == 0 {
		return ""
	}
	sorted := append([]Fragment(nil), frags...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y0 < sorted[j].Y0 })

	var lines [][]Fragment
	for _, f := range sorted {
		n := len(lines)
		if n > 0 {
			ref := lines[n-1][0]
			if math.Abs(f.centerY()-ref.centerY()) <= math.Max(ref.height(), f.height())/2 {
				lines[n-1] = append(lines[n-1], f)
				continue
			}
		}
		lines = append(lines, []Fragment{f})
	}

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].X0 < line[j].X0 })
		var sb strings.Builder
		for i, f := range line {
			if i > 0 {
				prev := line[i-1]
				if f.X0-prev.X1 >= tightGapRatio*math.Max(f.height(), 1) {
					sb.WriteByte(' ')
				}
			}
			sb.WriteString(strings.TrimSpace(f.Text))
		}
		out = append(out, sb.String())
	}
	return strings.Join(out, "\n")
}

// loadGray decodes a raster file and converts it to grayscale.
func loadGray(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening raster: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding raster: %w", err)
	}
	if gray, ok := img.(*image.Gray); ok {
		return gray, nil
	}
	gray := image.NewGray(img.Bounds())
	draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)
	return gray, nil
}
