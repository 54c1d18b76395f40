package export

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"crparser/internal/domain"
)

// BOM is written ahead of CSV output so Excel on Windows detects UTF-8.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// CellRecord is one cell of one table in the long CSV layout.
type CellRecord struct {
	TableIndex int    `csv:"table_index"`
	PageNumber int    `csv:"page_number"`
	RuleName   string `csv:"rule_name"`
	Row        int    `csv:"row"`
	Column     string `csv:"column"`
	Value      string `csv:"value"`
}

// Records flattens tables into one record per cell, in table, row and
// column order.
func Records(tables []domain.ProcessedTable) []CellRecord {
	var out []CellRecord
	for _, t := range tables {
		for r, row := range t.Content {
			for _, c := range row {
				out = append(out, CellRecord{
					TableIndex: t.TableIndex,
					PageNumber: t.PageNumber,
					RuleName:   t.RuleName,
					Row:        r,
					Column:     c.Column,
					Value:      c.Value,
				})
			}
		}
	}
	return out
}

// WriteCSV writes tables to w in the long layout, prefixed with a BOM.
func WriteCSV(w io.Writer, tables []domain.ProcessedTable) error {
	if _, err := w.Write(BOM); err != nil {
		return fmt.Errorf("export.WriteCSV: writing BOM: %w", err)
	}
	records := Records(tables)
	if len(records) == 0 {
		// gocsv writes nothing for an empty slice; keep the header row.
		_, err := io.WriteString(w, "table_index,page_number,rule_name,row,column,value\n")
		return err
	}
	if err := gocsv.Marshal(&records, w); err != nil {
		return fmt.Errorf("export.WriteCSV: %w", err)
	}
	return nil
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition. Characters
// other than letters, digits, - and _ become _, and the result is capped at
// 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns {sanitized base}_{YYYY-MM-DD}.{ext}. An empty base
// falls back to "report".
func BuildFilename(base string, format domain.ExportFormat, now time.Time) string {
	sanitized := SanitizeFilename(strings.TrimSuffix(base, filepath.Ext(base)))
	if sanitized == "" {
		sanitized = "report"
	}
	return fmt.Sprintf("%s_%s.%s", sanitized, now.Format("2006-01-02"), format)
}
