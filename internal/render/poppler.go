package render

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
)

// PopplerRenderer rasterizes pages with the pdftoppm binary. pdftoppm
// applies the page's /Rotate, so rotated rasters are turned back to the
// MediaBox orientation the text layer uses. A CropBox smaller than the
// MediaBox is still rendered as cropped and will misalign.
type PopplerRenderer struct {
	binary string
	dpi    int
}

// NewPopplerRenderer creates a PopplerRenderer. An empty binary defaults to
// "pdftoppm" on PATH.
func NewPopplerRenderer(binary string, dpi int) *PopplerRenderer {
	if binary == "" {
		binary = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &PopplerRenderer{binary: binary, dpi: dpi}
}

// Args returns the pdftoppm arguments that render page into outPrefix.png.
func (p *PopplerRenderer) Args(documentPath string, page int, outPrefix string) []string {
	n := strconv.Itoa(page)
	return []string{
		"-f", n, "-l", n,
		"-r", strconv.Itoa(p.dpi),
		"-gray", "-png", "-singlefile",
		documentPath, outPrefix,
	}
}

// RenderPage renders page (1-indexed) of documentPath to a PNG in outDir.
func (p *PopplerRenderer) RenderPage(ctx context.Context, documentPath string, page int, outDir string) (string, error) {
	prefix := filepath.Join(outDir, fmt.Sprintf("page-%d", page))
	cmd := exec.CommandContext(ctx, p.binary, p.Args(documentPath, page, prefix)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("render.RenderPage: pdftoppm page %d: %w: %s", page, err, out)
	}
	path := prefix + ".png"

	rotation, err := PageRotation(documentPath, page)
	if err != nil {
		return "", fmt.Errorf("render.RenderPage: %w", err)
	}
	if rotation != 0 {
		if err := unrotateFile(path, rotation); err != nil {
			return "", fmt.Errorf("render.RenderPage: unrotating page %d: %w", page, err)
		}
	}
	return path, nil
}
