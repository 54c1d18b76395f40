package extraction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"crparser/internal/extraction"
)

func TestExtractHeader_FullReport(t *testing.T) {
	text := "DATA DI RIFERIMENTO: 03/2025\n" +
		"Intestatario: ACME COSTRUZIONI SRL\n" +
		"Codice Fiscale: 01234567890 Codice Lei: 815600ABCDEF\n" +
		"CCIAA: MI-1234567 Sede Legale: VIA ROMA 1 MILANO\n" +
		"Le informazioni sono disponibili a far tempo dal 10/04/2025\n"

	h := extraction.ExtractHeader(text)

	assert.Equal(t, "03/2025", h.ReferenceDate)
	assert.Equal(t, "ACME COSTRUZIONI SRL", h.Company)
	assert.Equal(t, "01234567890", h.TaxCode)
	assert.Equal(t, "MI-1234567", h.CCIAA)
	assert.Equal(t, "VIA ROMA 1 MILANO", h.RegisteredOffice)
	assert.Equal(t, "10/04/2025", h.IssueDate)
	assert.Equal(t, "03", h.Period.Month)
	assert.Equal(t, "2025", h.Period.Year)
}

func TestExtractHeader_Empty(t *testing.T) {
	h := extraction.ExtractHeader("")

	assert.Empty(t, h.Company)
	assert.Empty(t, h.TaxCode)
	assert.Equal(t, "None", h.Period.Year)
	assert.Equal(t, "None", h.Period.Month)
}

func TestExtractHeader_TaxCodeFromMarkers(t *testing.T) {
	h := extraction.ExtractHeader("Codice Fiscale: IT0123 Codice Lei: 99")

	assert.Equal(t, "IT0123", h.TaxCode)
}
