package extraction

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"crparser/internal/domain"
	"crparser/internal/port"
)

// Processor runs the document pipeline: orientation, tables, header, records.
type Processor struct {
	extractor   TableExtractor
	orientation OrientationDetector
	header      HeaderSource
	classifier  *Classifier
	pages       string
	workDir     string
}

// Option customizes a Processor.
type Option func(*Processor)

// WithOrientationDetector replaces the pdfcpu page geometry analyzer.
func WithOrientationDetector(d OrientationDetector) Option {
	return func(p *Processor) { p.orientation = d }
}

// WithHeaderSource replaces the first-page text reader.
func WithHeaderSource(s HeaderSource) Option {
	return func(p *Processor) { p.header = s }
}

// WithClassifier replaces the table classifier. nil disables classification.
func WithClassifier(c *Classifier) Option {
	return func(p *Processor) { p.classifier = c }
}

// WithPages restricts extraction to a page selection.
func WithPages(spec string) Option {
	return func(p *Processor) { p.pages = spec }
}

// WithWorkDir sets the parent directory used by ProcessDocument.
func WithWorkDir(dir string) Option {
	return func(p *Processor) { p.workDir = dir }
}

// NewProcessor creates a Processor around a table extractor.
func NewProcessor(extractor TableExtractor, opts ...Option) *Processor {
	p := &Processor{
		extractor:   extractor,
		orientation: PageGeometry{},
		header:      PlainTextSource{},
		classifier:  NewClassifier(TableRules),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ port.DocumentProcessor = (*Processor)(nil)

// ProcessDocument extracts the tables of the document at path.
func (p *Processor) ProcessDocument(ctx context.Context, path string) ([]domain.ProcessedTable, error) {
	res, err := p.Process(ctx, port.ProcessInput{Path: path, WorkDir: p.workDir, WorkPrefix: "doc"})
	if err != nil {
		return nil, err
	}
	return res.Tables, nil
}

// Process runs the pipeline over input.Path. The only error is a missing
// document (domain.ErrNotFound); every other failure degrades and is flagged
// on the result. The per-call work directory is always removed, and so is the
// source document when input.RemoveSource is set.
func (p *Processor) Process(ctx context.Context, input port.ProcessInput) (*domain.ProcessingResult, error) {
	info, err := os.Stat(input.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("extraction.Process: %w: %s: %w", domain.ErrNotFound, input.Path, err)
	case err == nil && info.IsDir():
		return nil, fmt.Errorf("extraction.Process: %w: %s is a directory", domain.ErrNotFound, input.Path)
	case err != nil:
		log.Printf("extraction.Process: stat %s: %v", input.Path, err)
	}
	if input.RemoveSource {
		defer func() {
			if err := os.Remove(input.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				log.Printf("extraction.Process: removing source %s: %v", input.Path, err)
			}
		}()
	}

	result := &domain.ProcessingResult{Tables: []domain.ProcessedTable{}}

	orient := p.orientation.DetectOrientation(ctx, input.Path)
	result.Landscape = orient.Landscape
	result.OrientationDegraded = orient.Degraded

	extraction := p.extractTables(ctx, input, orient.Landscape)
	result.ExtractionFailed = extraction.Failed
	if extraction.Err != nil {
		result.ExtractionError = extraction.Err.Error()
	}

	text, err := p.header.FirstPageText(ctx, input.Path)
	if err != nil {
		log.Printf("extraction.Process: reading header of %s: %v", input.Path, err)
	}
	result.Header = ExtractHeader(text)

	for i, t := range extraction.Tables {
		t = CleanTableText(t)
		pt := domain.ProcessedTable{
			TableIndex:         i,
			PageNumber:         t.PageNumber,
			Content:            t.Rows,
			ExtractionAccuracy: t.Accuracy,
		}
		if pt.Content == nil {
			pt.Content = []domain.Row{}
		}
		if p.classifier != nil {
			pt.RuleName = p.classifier.Classify(t)
		}
		result.Tables = append(result.Tables, pt)
	}
	return result, nil
}

func (p *Processor) extractTables(ctx context.Context, input port.ProcessInput, landscape bool) TableExtraction {
	root := input.WorkDir
	if root == "" {
		root = os.TempDir()
	}
	prefix := input.WorkPrefix
	if prefix == "" {
		prefix = "crparse"
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		log.Printf("extraction.Process: creating work root %s: %v", root, err)
		return TableExtraction{Tables: []ExtractedTable{}, Failed: true, Err: err}
	}
	workDir, err := os.MkdirTemp(root, prefix+"-*")
	if err != nil {
		log.Printf("extraction.Process: creating work dir: %v", err)
		return TableExtraction{Tables: []ExtractedTable{}, Failed: true, Err: err}
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Printf("extraction.Process: removing work dir %s: %v", workDir, err)
		}
	}()

	return p.extractor.ExtractTables(ctx, input.Path, ExtractRequest{
		Pages:     p.pages,
		WorkDir:   workDir,
		Landscape: landscape,
	})
}
