package extraction

import (
	"regexp"
	"strings"
)

// Flavor selects the table detection strategy.
type Flavor string

const (
	// FlavorLattice detects tables from visible ruling lines.
	FlavorLattice Flavor = "lattice"
	// FlavorStream detects tables from text-column alignment.
	FlavorStream Flavor = "stream"
)

// Header field names produced by MetadataRules and MarkerFields.
const (
	FieldReferenceDate    = "reference_date"
	FieldCompany          = "company"
	FieldTaxCode          = "tax_code"
	FieldIssueDate        = "issue_date"
	FieldCCIAA            = "cciaa"
	FieldRegisteredOffice = "registered_office"
)

// ExtractionRule is a named pattern whose first capture group is the value.
type ExtractionRule struct {
	FieldName string
	Pattern   *regexp.Regexp
}

// Find returns the trimmed first capture group of the rule in text, or "".
func (r ExtractionRule) Find(text string) string {
	m := r.Pattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// MarkerField locates a header value between two literal labels.
type MarkerField struct {
	FieldName   string
	StartMarker string
	EndMarker   string
}

// TableRule describes a known table family. Keywords and Pages are hints for
// classification; the extractor does not enforce them.
type TableRule struct {
	Name     string
	Keywords []string
	Pages    string
	Method   Flavor
}

// MetadataRules are the fixed header patterns of a Centrale Rischi report.
var MetadataRules = []ExtractionRule{
	{FieldName: FieldReferenceDate, Pattern: regexp.MustCompile(`DATA DI RIFERIMENTO:\s*(\d{2}/\d{4})`)},
	{FieldName: FieldCompany, Pattern: regexp.MustCompile(`Intestatario:\s*(.*)`)},
	{FieldName: FieldTaxCode, Pattern: regexp.MustCompile(`Codice Fiscale:\s*(\d{11})`)},
	{FieldName: FieldIssueDate, Pattern: regexp.MustCompile(`Le informazioni sono disponibili a far tempo dal\s*(.*)`)},
}

// MarkerFields are header labels printed inline with the label that follows them.
var MarkerFields = []MarkerField{
	{FieldName: FieldCCIAA, StartMarker: "CCIAA:", EndMarker: "Sede Legale"},
	{FieldName: FieldRegisteredOffice, StartMarker: "Sede Legale:", EndMarker: "\n"},
}

// TableRules are the table families found in the report.
var TableRules = []TableRule{
	{
		Name:     "TRANSACTION_SUMMARY",
		Keywords: []string{"DATA DI RIFERIMENTO", "IMPORTO", "RISCHIO"},
		Pages:    "all",
		Method:   FlavorLattice,
	},
	{
		Name:     "CREDIT_LINES_DETAIL",
		Keywords: []string{"TIPO DI RAPPORTO", "UTILIZZATO"},
		Pages:    "2-5",
		Method:   FlavorStream,
	},
}
