package extraction

import (
	"fmt"
	"strings"

	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/reader"
)

// Fragment is a positioned run of text in top-down page space: (X0, Y0) is
// the top-left corner and (X1, Y1) the bottom-right, in points.
type Fragment struct {
	Text           string
	X0, Y0, X1, Y1 float64
}

func (f Fragment) centerX() float64 { return (f.X0 + f.X1) / 2 }
func (f Fragment) centerY() float64 { return (f.Y0 + f.Y1) / 2 }
func (f Fragment) height() float64  { return f.Y1 - f.Y0 }

// PageText is the text layer of one page.
type PageText struct {
	Number    int
	Width     float64
	Height    float64
	Fragments []Fragment
	// raw keeps tabula's bottom-up fragments for the stream detector.
	raw []model.TextFragment
}

// textDocument reads page text through tabula's reader.
type textDocument struct {
	r *reader.Reader
}

func openTextDocument(path string) (*textDocument, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}
	return &textDocument{r: r}, nil
}

func (d *textDocument) Close() error {
	return d.r.Close()
}

func (d *textDocument) PageCount() (int, error) {
	return d.r.PageCount()
}

// Page loads the text layer of the 1-indexed page n.
func (d *textDocument) Page(n int) (*PageText, error) {
	page, err := d.r.GetPage(n - 1)
	if err != nil {
		return nil, fmt.Errorf("loading page %d: %w", n, err)
	}
	box, err := page.MediaBox()
	if err != nil {
		return nil, fmt.Errorf("reading media box of page %d: %w", n, err)
	}
	if len(box) < 4 {
		return nil, fmt.Errorf("page %d: malformed media box", n)
	}
	frags, err := d.r.ExtractTextFragments(page)
	if err != nil {
		return nil, fmt.Errorf("extracting text of page %d: %w", n, err)
	}

	pt := &PageText{
		Number: n,
		Width:  box[2] - box[0],
		Height: box[3] - box[1],
	}
	for _, f := range frags {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		x := f.X - box[0]
		y := f.Y - box[1]
		top := pt.Height - y - f.Height
		pt.Fragments = append(pt.Fragments, Fragment{
			Text: f.Text,
			X0:   x,
			Y0:   top,
			X1:   x + f.Width,
			Y1:   top + f.Height,
		})
		pt.raw = append(pt.raw, model.TextFragment{
			Text:     f.Text,
			BBox:     model.NewBBox(x, y, f.Width, f.Height),
			FontSize: f.FontSize,
			FontName: f.FontName,
		})
	}
	return pt, nil
}
