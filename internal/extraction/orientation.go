package extraction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// OrientationResult is the outcome of page geometry analysis. Degraded is set
// when the document could not be inspected and Landscape holds the default.
type OrientationResult struct {
	Landscape bool
	Degraded  bool
	Err       error
}

// OrientationDetector reports whether a document is landscape.
type OrientationDetector interface {
	DetectOrientation(ctx context.Context, path string) OrientationResult
}

// PageGeometry inspects the first page's dimensions with pdfcpu.
type PageGeometry struct{}

// DetectOrientation reports Landscape when the first page is wider than it is
// tall. Failures are logged and degrade to portrait.
func (PageGeometry) DetectOrientation(_ context.Context, path string) OrientationResult {
	landscape, err := firstPageLandscape(path)
	if err != nil {
		log.Printf("extraction.DetectOrientation: %s: %v; assuming portrait", path, err)
		return OrientationResult{Degraded: true, Err: err}
	}
	return OrientationResult{Landscape: landscape}
}

func firstPageLandscape(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pdfCtx, err := api.ReadContext(f, conf)
	if err != nil {
		return false, fmt.Errorf("reading document: %w", err)
	}
	if err := pdfCtx.EnsurePageCount(); err != nil {
		return false, fmt.Errorf("counting pages: %w", err)
	}

	dims, err := pdfCtx.PageDims()
	if err != nil {
		return false, fmt.Errorf("reading page dimensions: %w", err)
	}
	if len(dims) == 0 {
		return false, errors.New("document has no pages")
	}
	return dims[0].Width > dims[0].Height, nil
}
