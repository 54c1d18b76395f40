package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"crparser/internal/domain"
)

// HeaderSource returns the plain text of a document's first page.
type HeaderSource interface {
	FirstPageText(ctx context.Context, path string) (string, error)
}

// PlainTextSource reads first-page text with ledongthuc/pdf, one visual row
// per line.
type PlainTextSource struct{}

// FirstPageText returns the first page's text. Parser panics on malformed
// documents are returned as errors.
func (PlainTextSource) FirstPageText(_ context.Context, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("reading first page: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()

	if r.NumPage() < 1 {
		return "", nil
	}
	p := r.Page(1)
	if p.V.IsNull() {
		return "", nil
	}

	rows, err := p.GetTextByRow()
	if err != nil {
		return p.GetPlainText(nil)
	}
	var sb strings.Builder
	for _, row := range rows {
		for _, word := range row.Content {
			sb.WriteString(word.S)
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// ExtractHeader applies MetadataRules and MarkerFields to first-page text.
// Missing fields are left empty; Period falls back to the "None" sentinel.
func ExtractHeader(text string) domain.ReportHeader {
	values := make(map[string]string, len(MetadataRules)+len(MarkerFields))
	for _, rule := range MetadataRules {
		values[rule.FieldName] = rule.Find(text)
	}
	for _, mf := range MarkerFields {
		if v, ok := ExtractBetweenMarkers(mf.StartMarker, mf.EndMarker, text); ok {
			values[mf.FieldName] = firstLine(v)
		}
	}
	if values[FieldTaxCode] == "" {
		if v, ok := ExtractBetweenMarkers("Codice Fiscale:", "Codice Lei", text); ok {
			values[FieldTaxCode] = firstLine(v)
		}
	}

	h := domain.ReportHeader{
		ReferenceDate:    values[FieldReferenceDate],
		Company:          values[FieldCompany],
		TaxCode:          values[FieldTaxCode],
		CCIAA:            values[FieldCCIAA],
		RegisteredOffice: values[FieldRegisteredOffice],
		IssueDate:        values[FieldIssueDate],
	}
	h.Period = SplitPeriod(h.ReferenceDate)
	if h.Period.Year == noneValue {
		h.Period = SplitDateReference(h.ReferenceDate)
	}
	return h
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
