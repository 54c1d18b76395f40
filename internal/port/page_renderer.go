package port

import "context"

// PageRenderer converts one document page to a raster image on disk and
// returns its path. page is 1-indexed; the image is written inside outDir.
// The raster covers the unrotated MediaBox with its top-left corner at the
// box's top-left, whatever the page's /Rotate.
type PageRenderer interface {
	RenderPage(ctx context.Context, documentPath string, page int, outDir string) (string, error)
}
