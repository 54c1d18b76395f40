package render_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crparser/internal/render"
)

func TestNew(t *testing.T) {
	r, err := render.New("vector", 144, "")
	require.NoError(t, err)
	assert.IsType(t, &render.VectorRenderer{}, r)

	r, err = render.New("poppler", 144, "/usr/bin/pdftoppm")
	require.NoError(t, err)
	assert.IsType(t, &render.PopplerRenderer{}, r)

	_, err = render.New("ghostscript", 144, "")
	assert.Error(t, err)
}

func TestPopplerRenderer_Args(t *testing.T) {
	p := render.NewPopplerRenderer("", 200)

	args := p.Args("/tmp/in.pdf", 3, "/tmp/work/page-3")

	assert.Equal(t, []string{
		"-f", "3", "-l", "3", "-r", "200", "-gray", "-png", "-singlefile",
		"/tmp/in.pdf", "/tmp/work/page-3",
	}, args)
}

func TestPopplerRenderer_MissingBinary(t *testing.T) {
	p := render.NewPopplerRenderer("/nonexistent/pdftoppm", 72)

	_, err := p.RenderPage(context.Background(), "/tmp/in.pdf", 1, t.TempDir())

	assert.Error(t, err)
}

func TestRasterize_DrawsSegmentsAndThinFills(t *testing.T) {
	art := &render.LineArt{
		Width:  100,
		Height: 100,
		Segments: []render.Segment{
			{X0: 10, Y0: 50, X1: 90, Y1: 50, Width: 1},
			{X0: 50, Y0: 10, X1: 50, Y1: 90, Width: 1},
		},
		Rects: []render.Rect{
			{X: 10, Y: 20, W: 80, H: 1, Filled: true},
			{X: 0, Y: 60, W: 40, H: 30, Filled: true},
		},
	}

	img := render.Rasterize(art, 2)

	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
	// y=50 in page space is row 100 in the raster.
	assert.Less(t, img.GrayAt(60, 100).Y, uint8(128))
	assert.Less(t, img.GrayAt(100, 60).Y, uint8(128))
	// crossing point stays inked
	assert.Less(t, img.GrayAt(100, 100).Y, uint8(128))
	// thin filled rect at y=20..21 spans rows 158..160
	assert.Less(t, img.GrayAt(100, 159).Y, uint8(128))
	// shading is not drawn
	assert.Equal(t, uint8(0xff), img.GrayAt(40, 40).Y)
	assert.Equal(t, uint8(0xff), img.GrayAt(5, 5).Y)
}

func TestRasterize_StrokedRectangle(t *testing.T) {
	art := &render.LineArt{
		Width:  50,
		Height: 50,
		Rects:  []render.Rect{{X: 10, Y: 10, W: 30, H: 30, Stroked: true, StrokeWidth: 1}},
	}

	img := render.Rasterize(art, 1)

	assert.Less(t, img.GrayAt(25, 10).Y, uint8(128))
	assert.Less(t, img.GrayAt(10, 25).Y, uint8(128))
	assert.Equal(t, uint8(0xff), img.GrayAt(25, 25).Y)
}
