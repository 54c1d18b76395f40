package extraction

import (
	"context"
	"fmt"
	"log"
	"os"

	"crparser/internal/domain"
	"crparser/internal/port"
)

// ExtractedTable is one table found on one page. Columns are named by
// position ("0", "1", ...) and empty cells are kept.
type ExtractedTable struct {
	PageNumber int
	Accuracy   float64
	Rows       []domain.Row
}

// TableExtraction is the outcome of one extraction attempt. Failed separates
// an engine failure from a document that simply has no tables.
type TableExtraction struct {
	Tables []ExtractedTable
	Failed bool
	Err    error
}

// ExtractRequest scopes one extraction attempt.
type ExtractRequest struct {
	// Pages overrides the configured page selection when non-empty.
	Pages string
	// WorkDir receives intermediate rasters.
	WorkDir   string
	Landscape bool
	// Flavor overrides the configured flavor when non-empty.
	Flavor Flavor
}

// TableExtractor finds tables in a document.
type TableExtractor interface {
	ExtractTables(ctx context.Context, path string, req ExtractRequest) TableExtraction
}

// ExtractorConfig tunes table detection.
type ExtractorConfig struct {
	Flavor    Flavor
	LineScale int
	Pages     string
}

// Extractor detects lattice tables from rendered pages and stream tables
// from text alignment.
type Extractor struct {
	renderer port.PageRenderer
	cfg      ExtractorConfig
}

// NewExtractor creates an Extractor. renderer is only used by the lattice flavor.
func NewExtractor(renderer port.PageRenderer, cfg ExtractorConfig) *Extractor {
	if cfg.Flavor == "" {
		cfg.Flavor = FlavorLattice
	}
	if cfg.LineScale <= 0 {
		cfg.LineScale = 40
	}
	if cfg.Pages == "" {
		cfg.Pages = PagesAll
	}
	return &Extractor{renderer: renderer, cfg: cfg}
}

// ExtractTables never returns an error directly: failures are logged and
// reported through TableExtraction.Failed with no tables.
func (e *Extractor) ExtractTables(ctx context.Context, path string, req ExtractRequest) (out TableExtraction) {
	defer func() {
		if r := recover(); r != nil {
			out = e.fail(path, fmt.Errorf("table engine panic: %v", r))
		}
	}()

	tables, err := e.extract(ctx, path, req)
	if err != nil {
		return e.fail(path, err)
	}
	if tables == nil {
		tables = []ExtractedTable{}
	}
	return TableExtraction{Tables: tables}
}

func (e *Extractor) fail(path string, err error) TableExtraction {
	log.Printf("extraction.ExtractTables: %s: %v", path, err)
	return TableExtraction{Tables: []ExtractedTable{}, Failed: true, Err: err}
}

func (e *Extractor) extract(ctx context.Context, path string, req ExtractRequest) ([]ExtractedTable, error) {
	flavor := e.cfg.Flavor
	if req.Flavor != "" {
		flavor = req.Flavor
	}
	if flavor != FlavorLattice && flavor != FlavorStream {
		return nil, fmt.Errorf("unknown flavor %q", flavor)
	}
	if flavor == FlavorLattice && e.renderer == nil {
		return nil, fmt.Errorf("lattice extraction requires a page renderer")
	}
	pageSpec := e.cfg.Pages
	if req.Pages != "" {
		pageSpec = req.Pages
	}

	doc, err := openTextDocument(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	count, err := doc.PageCount()
	if err != nil {
		return nil, fmt.Errorf("counting pages: %w", err)
	}
	pages, err := ParsePages(pageSpec, count)
	if err != nil {
		return nil, err
	}

	var tables []ExtractedTable
	for _, n := range pages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extraction interrupted before page %d: %w", n, err)
		}
		page, err := doc.Page(n)
		if err != nil {
			return nil, err
		}

		var found []ExtractedTable
		if flavor == FlavorStream {
			found, err = detectStreamTables(page)
		} else {
			found, err = e.latticePage(ctx, path, page, req)
		}
		if err != nil {
			return nil, err
		}
		tables = append(tables, found...)
	}
	return tables, nil
}

func (e *Extractor) latticePage(ctx context.Context, path string, page *PageText, req ExtractRequest) ([]ExtractedTable, error) {
	raster, err := e.renderer.RenderPage(ctx, path, page.Number, req.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("rendering page %d: %w", page.Number, err)
	}
	img, err := loadGray(raster)
	_ = os.Remove(raster)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page.Number, err)
	}
	if page.Width <= 0 || page.Height <= 0 {
		return nil, fmt.Errorf("page %d: invalid page size", page.Number)
	}

	b := img.Bounds()
	scaleX := float64(b.Dx()) / page.Width
	scaleY := float64(b.Dy()) / page.Height

	grids := detectGrids(img, e.cfg.LineScale, req.Landscape)
	tables := make([]ExtractedTable, 0, len(grids))
	for _, g := range grids {
		tables = append(tables, buildLatticeTable(g, page, scaleX, scaleY))
	}
	return tables, nil
}
