package render

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/tsawler/tabula/reader"
	"golang.org/x/image/draw"
)

// PageRotation returns the /Rotate of page (1-indexed), normalized to
// 0, 90, 180 or 270.
func PageRotation(documentPath string, page int) (int, error) {
	r, err := reader.Open(documentPath)
	if err != nil {
		return 0, fmt.Errorf("render.PageRotation: opening document: %w", err)
	}
	defer r.Close()

	p, err := r.GetPage(page - 1)
	if err != nil {
		return 0, fmt.Errorf("render.PageRotation: loading page %d: %w", page, err)
	}
	return normalizeRotation(p.Rotate()), nil
}

func normalizeRotation(degrees int) int {
	d := ((degrees % 360) + 360) % 360
	return d - d%90
}

// Unrotate maps a raster displayed with a clockwise /Rotate of degrees back
// to the page's unrotated MediaBox orientation.
func Unrotate(img image.Image, degrees int) *image.Gray {
	b := img.Bounds()
	src := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(src, src.Bounds(), img, b.Min, draw.Src)
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()

	var dst *image.Gray
	switch normalizeRotation(degrees) {
	case 90:
		dst = image.NewGray(image.Rect(0, 0, sh, sw))
		for y := 0; y < sw; y++ {
			for x := 0; x < sh; x++ {
				dst.SetGray(x, y, src.GrayAt(sw-1-y, x))
			}
		}
	case 180:
		dst = image.NewGray(image.Rect(0, 0, sw, sh))
		for y := 0; y < sh; y++ {
			for x := 0; x < sw; x++ {
				dst.SetGray(x, y, src.GrayAt(sw-1-x, sh-1-y))
			}
		}
	case 270:
		dst = image.NewGray(image.Rect(0, 0, sh, sw))
		for y := 0; y < sw; y++ {
			for x := 0; x < sh; x++ {
				dst.SetGray(x, y, src.GrayAt(y, sh-1-x))
			}
		}
	default:
		dst = src
	}
	return dst
}

// unrotateFile rewrites the PNG at path in unrotated page orientation.
func unrotateFile(path string, degrees int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	img, err := png.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, Unrotate(img, degrees)); err != nil {
		out.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return out.Close()
}
