// Package render turns PDF pages into grayscale rasters for lattice table
// detection.
package render

import (
	"fmt"

	"crparser/internal/port"
)

// DefaultDPI is used when no resolution is configured.
const DefaultDPI = 144

// Renderer kinds accepted by New.
const (
	KindVector  = "vector"
	KindPoppler = "poppler"
)

// New returns the PageRenderer named by kind.
func New(kind string, dpi int, pdftoppmPath string) (port.PageRenderer, error) {
	switch kind {
	case KindVector, "":
		return NewVectorRenderer(dpi), nil
	case KindPoppler:
		return NewPopplerRenderer(pdftoppmPath, dpi), nil
	default:
		return nil, fmt.Errorf("unknown renderer %q", kind)
	}
}
