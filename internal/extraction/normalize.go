package extraction

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"crparser/internal/domain"
)

// noneValue marks a date component that could not be parsed.
const noneValue = "None"

var lineBreaks = regexp.MustCompile(`[\r\n]+`)

// CleanTableText returns a copy of t with every run of line breaks inside a
// cell replaced by a single space. Shape and ordering are preserved.
func CleanTableText(t ExtractedTable) ExtractedTable {
	out := ExtractedTable{
		PageNumber: t.PageNumber,
		Accuracy:   t.Accuracy,
		Rows:       make([]domain.Row, len(t.Rows)),
	}
	for i, row := range t.Rows {
		cleaned := make(domain.Row, len(row))
		for j, cell := range row {
			cleaned[j] = domain.Cell{
				Column: cell.Column,
				Value:  lineBreaks.ReplaceAllString(cell.Value, " "),
			}
		}
		out.Rows[i] = cleaned
	}
	return out
}

// ExtractBetweenMarkers returns the text between startMarker and the first
// following endMarker, matching case-insensitively across lines. If endMarker
// never follows, everything after startMarker is returned. found is false
// when startMarker does not occur at all or is not valid UTF-8; an invalid
// endMarker behaves like one that never follows.
func ExtractBetweenMarkers(startMarker, endMarker, text string) (value string, found bool) {
	start := regexp.QuoteMeta(startMarker)

	strict, err := regexp.Compile(`(?is)` + start + `(.*?)` + regexp.QuoteMeta(endMarker))
	if err == nil {
		if m := strict.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}

	open, err := regexp.Compile(`(?is)` + start + `(.*)`)
	if err != nil {
		return "", false
	}
	if m := open.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// SplitDateReference decomposes "MONTH YEAR" (e.g. "GENNAIO 2025"). Any input
// that is not exactly two whitespace-separated tokens yields "None"/"None".
func SplitDateReference(text string) domain.DateMetadata {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return domain.DateMetadata{Year: noneValue, Month: noneValue}
	}
	return domain.DateMetadata{Month: fields[0], Year: fields[1]}
}

var periodPattern = regexp.MustCompile(`^(\d{1,2})/(\d{4})$`)

// SplitPeriod decomposes the numeric "MM/YYYY" reference date.
func SplitPeriod(text string) domain.DateMetadata {
	m := periodPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return domain.DateMetadata{Year: noneValue, Month: noneValue}
	}
	return domain.DateMetadata{Month: m[1], Year: m[2]}
}

// Chunk splits items into consecutive slices of at most size elements.
// The last chunk holds the remainder. size <= 0 returns a single chunk.
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]T{items}
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for pos := 0; pos < len(items); pos += size {
		end := pos + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[pos:end])
	}
	return chunks
}

var amountNoise = strings.NewReplacer("EUR", "", "€", "", " ", "", " ", "")

// ParseAmount parses a monetary cell such as "150.000,00", "75,000.00" or
// "(1.250)". ok is false when the text is not a number.
func ParseAmount(text string) (amount decimal.Decimal, ok bool) {
	s := amountNoise.Replace(strings.TrimSpace(text))
	if s == "" {
		return decimal.Zero, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}

	s = normalizeSeparators(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// normalizeSeparators rewrites s so that "." is the only decimal separator
// and no grouping separators remain.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		return resolveSingleSeparator(s, ",")
	case lastDot >= 0:
		return resolveSingleSeparator(s, ".")
	default:
		return s
	}
}

// resolveSingleSeparator decides whether sep groups thousands or marks
// decimals. Repeated separators or exactly three trailing digits mean grouping.
func resolveSingleSeparator(s, sep string) string {
	if strings.Count(s, sep) > 1 || len(s)-strings.LastIndex(s, sep)-1 == 3 {
		return strings.ReplaceAll(s, sep, "")
	}
	return strings.Replace(s, sep, ".", 1)
}
