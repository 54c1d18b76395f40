package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"crparser/internal/domain"
	"crparser/internal/extraction"
)

const summarySheet = "Report"

// maxSheetName is the longest sheet name Excel accepts.
const maxSheetName = 31

// WriteXLSX writes a workbook to w with a summary sheet for the job and its
// header, then one sheet per table. Cells that parse as amounts are written
// as numbers, except in the first row, which is the table header.
func WriteXLSX(w io.Writer, job *domain.Job, header domain.ReportHeader, tables []domain.ProcessedTable) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	writeSummary(f, job, header, len(tables))

	for _, t := range tables {
		name := sheetName(t)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("export.WriteXLSX: adding sheet %q: %w", name, err)
		}
		writeTable(f, name, t)
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, job *domain.Job, h domain.ReportHeader, tableCount int) {
	rows := [][2]any{
		{"Request ID", ""},
		{"File", ""},
		{"Status", ""},
		{"Reference Date", h.ReferenceDate},
		{"Period Month", h.Period.Month},
		{"Period Year", h.Period.Year},
		{"Company", h.Company},
		{"Tax Code", h.TaxCode},
		{"CCIAA", h.CCIAA},
		{"Registered Office", h.RegisteredOffice},
		{"Issue Date", h.IssueDate},
		{"Tables", tableCount},
	}
	if job != nil {
		rows[0][1] = job.ID.String()
		rows[1][1] = job.FileName
		rows[2][1] = string(job.Status)
	}
	for i, r := range rows {
		_ = f.SetCellValue(summarySheet, cellName(1, i+1), r[0])
		_ = f.SetCellValue(summarySheet, cellName(2, i+1), r[1])
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 20)
	_ = f.SetColWidth(summarySheet, "B", "B", 48)
}

func writeTable(f *excelize.File, sheet string, t domain.ProcessedTable) {
	for r, row := range t.Content {
		for c, cell := range row {
			name := cellName(c+1, r+1)
			if amount, ok := extraction.ParseAmount(cell.Value); ok && r > 0 {
				_ = f.SetCellValue(sheet, name, amount.InexactFloat64())
				continue
			}
			_ = f.SetCellValue(sheet, name, cell.Value)
		}
	}
}

// sheetName is "T<index> p<page>" plus the rule name when one matched,
// trimmed to Excel's limit.
func sheetName(t domain.ProcessedTable) string {
	name := "T" + strconv.Itoa(t.TableIndex) + " p" + strconv.Itoa(t.PageNumber)
	if t.RuleName != "" {
		name += " " + t.RuleName
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
