package extraction

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/tables"

	"crparser/internal/domain"
)

// detectStreamTables finds whitespace-aligned tables on a page with tabula's
// geometric detector. Ruling lines are ignored.
func detectStreamTables(page *PageText) ([]ExtractedTable, error) {
	if len(page.raw) == 0 {
		return nil, nil
	}

	cfg := tables.DefaultConfig()
	cfg.UseLines = false
	cfg.UseWhitespace = true
	cfg.MinConfidence = 0

	detector := tables.NewGeometricDetector()
	if err := detector.Configure(cfg); err != nil {
		return nil, fmt.Errorf("configuring stream detector: %w", err)
	}

	mp := model.NewPage(page.Width, page.Height)
	mp.Number = page.Number
	mp.RawText = append(mp.RawText, page.raw...)

	found, err := detector.Detect(mp)
	if err != nil {
		return nil, fmt.Errorf("detecting tables on page %d: %w", page.Number, err)
	}

	// PDF space grows upward, so higher tops come first.
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].BBox.Top() > found[j].BBox.Top()
	})

	out := make([]ExtractedTable, 0, len(found))
	for _, t := range found {
		if t == nil || len(t.Rows) == 0 {
			continue
		}
		out = append(out, ExtractedTable{
			PageNumber: page.Number,
			Accuracy:   math.Round(t.Confidence*10000) / 100,
			Rows:       streamRows(t.Rows),
		})
	}
	return out, nil
}

func streamRows(cells [][]model.Cell) []domain.Row {
	rows := make([]domain.Row, len(cells))
	for r, src := range cells {
		row := make(domain.Row, len(src))
		for c, cell := range src {
			row[c] = domain.Cell{Column: strconv.Itoa(c), Value: strings.TrimSpace(cell.Text)}
		}
		rows[r] = row
	}
	return rows
}
