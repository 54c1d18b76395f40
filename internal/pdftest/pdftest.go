// Package pdftest writes minimal single-page PDF documents for tests: a
// catalog, a page tree, one page with a MediaBox, its content stream and a
// Helvetica font.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Page describes the single page of a generated document.
type Page struct {
	Width, Height float64
	// Rotate is written as the page's /Rotate when non-zero.
	Rotate int
	// Content is the raw content stream, e.g. built with Line and Text.
	Content string
}

// Line returns a 1pt stroked segment from (x0, y0) to (x1, y1).
func Line(x0, y0, x1, y1 float64) string {
	return fmt.Sprintf("1 w %g %g m %g %g l S\n", x0, y0, x1, y1)
}

// Text returns s drawn in 10pt Helvetica with its baseline at (x, y).
func Text(x, y float64, s string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`).Replace(s)
	return fmt.Sprintf("BT /F1 10 Tf %g %g Td (%s) Tj ET\n", x, y, escaped)
}

// Grid returns the rulings of a table whose column and row boundaries sit
// at xs and ys.
func Grid(xs, ys []float64) string {
	var b strings.Builder
	for _, x := range xs {
		b.WriteString(Line(x, ys[len(ys)-1], x, ys[0]))
	}
	for _, y := range ys {
		b.WriteString(Line(xs[0], y, xs[len(xs)-1], y))
	}
	return b.String()
}

// Build renders p as PDF bytes with a byte-exact cross-reference table.
func Build(p Page) []byte {
	rotate := ""
	if p.Rotate != 0 {
		rotate = fmt.Sprintf(" /Rotate %d", p.Rotate)
	}
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g]%s /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
			p.Width, p.Height, rotate),
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(p.Content), p.Content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// Write builds p into dir/report.pdf and returns the path.
func Write(t testing.TB, dir string, p Page) string {
	t.Helper()
	path := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(path, Build(p), 0o600); err != nil {
		t.Fatalf("pdftest: writing %s: %v", path, err)
	}
	return path
}

// Landscape A4 in points.
const (
	A4Long  = 842.0
	A4Short = 595.0
)

// SummaryTable is a landscape page holding one ruled 2x2 table:
//
//	IMPORTO | RISCHIO
//	150000  | AUTOLIQUIDANTE
func SummaryTable() Page {
	content := Grid([]float64{100, 300, 500}, []float64{500, 470, 440}) +
		Text(110, 480, "IMPORTO") +
		Text(310, 480, "RISCHIO") +
		Text(110, 450, "150000") +
		Text(310, 450, "AUTOLIQUIDANTE")
	return Page{Width: A4Long, Height: A4Short, Content: content}
}
