package render

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/graphicsstate"
	"github.com/tsawler/tabula/reader"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// pointsPerInch converts DPI to a points-to-pixels scale.
const pointsPerInch = 72.0

// maxRuleThickness is the largest filled rectangle side (points) drawn as a
// ruling. Larger fills are cell shading and are skipped.
const maxRuleThickness = 3.0

// minStrokePixels keeps hairlines visible after rasterization.
const minStrokePixels = 1.5

// Segment is a stroked line in page space (points, origin bottom-left).
type Segment struct {
	X0, Y0, X1, Y1 float64
	Width          float64
}

// Rect is an axis-aligned rectangle in page space.
type Rect struct {
	X, Y, W, H  float64
	Filled      bool
	Stroked     bool
	StrokeWidth float64
}

// LineArt is the vector line work of one page.
type LineArt struct {
	Width, Height float64
	Segments      []Segment
	Rects         []Rect
}

// VectorRenderer rasterizes only a page's line art. Text and images are not
// drawn, which leaves ruling lines as the only ink on the raster.
type VectorRenderer struct {
	dpi int
}

// NewVectorRenderer creates a VectorRenderer rendering at dpi.
func NewVectorRenderer(dpi int) *VectorRenderer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &VectorRenderer{dpi: dpi}
}

// RenderPage writes page (1-indexed) of documentPath as a grayscale PNG in outDir.
func (v *VectorRenderer) RenderPage(ctx context.Context, documentPath string, page int, outDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	art, err := ReadLineArt(documentPath, page)
	if err != nil {
		return "", err
	}
	img := Rasterize(art, float64(v.dpi)/pointsPerInch)

	out := filepath.Join(outDir, fmt.Sprintf("page-%d.png", page))
	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("render.RenderPage: creating %s: %w", out, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("render.RenderPage: encoding page %d: %w", page, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("render.RenderPage: closing %s: %w", out, err)
	}
	return out, nil
}

// ReadLineArt extracts the strokes and rectangles of page (1-indexed).
func ReadLineArt(documentPath string, page int) (*LineArt, error) {
	r, err := reader.Open(documentPath)
	if err != nil {
		return nil, fmt.Errorf("render.ReadLineArt: opening document: %w", err)
	}
	defer r.Close()

	p, err := r.GetPage(page - 1)
	if err != nil {
		return nil, fmt.Errorf("render.ReadLineArt: loading page %d: %w", page, err)
	}
	box, err := p.MediaBox()
	if err != nil || len(box) < 4 {
		return nil, fmt.Errorf("render.ReadLineArt: media box of page %d: %v", page, err)
	}
	contents, err := p.Contents()
	if err != nil {
		return nil, fmt.Errorf("render.ReadLineArt: contents of page %d: %w", page, err)
	}

	var data []byte
	for _, obj := range contents {
		stream, ok := obj.(*core.Stream)
		if !ok {
			continue
		}
		decoded, err := stream.Decode()
		if err != nil {
			return nil, fmt.Errorf("render.ReadLineArt: decoding page %d: %w", page, err)
		}
		data = append(data, decoded...)
		data = append(data, '\n')
	}

	art := &LineArt{Width: box[2] - box[0], Height: box[3] - box[1]}
	if len(data) == 0 {
		return art, nil
	}

	ge := graphicsstate.NewGraphicsExtractor()
	if err := ge.ExtractFromBytes(data); err != nil {
		return nil, fmt.Errorf("render.ReadLineArt: parsing page %d: %w", page, err)
	}
	for _, l := range ge.GetLines() {
		art.Segments = append(art.Segments, Segment{
			X0:    l.Start.X - box[0],
			Y0:    l.Start.Y - box[1],
			X1:    l.End.X - box[0],
			Y1:    l.End.Y - box[1],
			Width: l.Width,
		})
	}
	for _, rc := range ge.GetRectangles() {
		art.Rects = append(art.Rects, Rect{
			X:           rc.BBox.X - box[0],
			Y:           rc.BBox.Y - box[1],
			W:           rc.BBox.Width,
			H:           rc.BBox.Height,
			Filled:      rc.IsFilled,
			Stroked:     rc.IsStroked,
			StrokeWidth: rc.StrokeWidth,
		})
	}
	return art, nil
}

// Rasterize draws art black on white at scale pixels per point.
func Rasterize(art *LineArt, scale float64) *image.Gray {
	w := int(math.Ceil(art.Width * scale))
	h := int(math.Ceil(art.Height * scale))
	w, h = max(w, 1), max(h, 1)

	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	ras := vector.NewRasterizer(w, h)
	toPx := func(x, y float64) (float32, float32) {
		return float32(x * scale), float32((art.Height - y) * scale)
	}

	stroke := func(x0, y0, x1, y1, width float64) {
		ax, ay := toPx(x0, y0)
		bx, by := toPx(x1, y1)
		half := float32(math.Max(width*scale, minStrokePixels) / 2)
		dx, dy := bx-ax, by-ay
		length := float32(math.Hypot(float64(dx), float64(dy)))
		if length == 0 {
			return
		}
		nx, ny := -dy/length*half, dx/length*half
		// extend along the stroke so corners close
		ex, ey := dx/length*half, dy/length*half
		addQuad(ras, [4][2]float32{
			{ax - ex + nx, ay - ey + ny},
			{bx + ex + nx, by + ey + ny},
			{bx + ex - nx, by + ey - ny},
			{ax - ex - nx, ay - ey - ny},
		})
	}
	fill := func(x, y, rw, rh float64) {
		ax, ay := toPx(x, y+rh)
		bx, by := toPx(x+rw, y)
		addQuad(ras, [4][2]float32{{ax, ay}, {bx, ay}, {bx, by}, {ax, by}})
	}

	for _, s := range art.Segments {
		stroke(s.X0, s.Y0, s.X1, s.Y1, s.Width)
	}
	for _, r := range art.Rects {
		thin := math.Min(r.W, r.H) <= maxRuleThickness
		switch {
		case r.Filled && thin:
			fill(r.X, r.Y, math.Max(r.W, 1/scale), math.Max(r.H, 1/scale))
		case r.Stroked || !r.Filled:
			sw := r.StrokeWidth
			stroke(r.X, r.Y, r.X+r.W, r.Y, sw)
			stroke(r.X+r.W, r.Y, r.X+r.W, r.Y+r.H, sw)
			stroke(r.X+r.W, r.Y+r.H, r.X, r.Y+r.H, sw)
			stroke(r.X, r.Y+r.H, r.X, r.Y, sw)
		}
	}

	mask := image.NewAlpha(dst.Bounds())
	ras.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	draw.DrawMask(dst, dst.Bounds(), image.Black, image.Point{}, mask, image.Point{}, draw.Over)
	return dst
}

// addQuad adds a quadrilateral with a fixed winding direction. Overlapping
// shapes of opposite winding would otherwise cancel out where they cross.
func addQuad(ras *vector.Rasterizer, q [4][2]float32) {
	var area float32
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		area += q[i][0]*q[j][1] - q[j][0]*q[i][1]
	}
	if area < 0 {
		q[1], q[3] = q[3], q[1]
	}
	ras.MoveTo(q[0][0], q[0][1])
	ras.LineTo(q[1][0], q[1][1])
	ras.LineTo(q[2][0], q[2][1])
	ras.LineTo(q[3][0], q[3][1])
	ras.ClosePath()
}
