package extraction

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// minClassifyScore is the share of a rule's keywords that must appear in a
// table for the rule to apply.
const minClassifyScore = 0.5

// Classifier names tables after the TableRule whose keywords they contain.
type Classifier struct {
	rules []TableRule
}

// NewClassifier returns a Classifier over rules, evaluated in order.
func NewClassifier(rules []TableRule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns the best matching rule name for t, or "" when none scores
// at least minClassifyScore. Ties go to the earlier rule.
func (c *Classifier) Classify(t ExtractedTable) string {
	var cells []string
	for _, row := range t.Rows {
		for _, cell := range row {
			if v := foldText(cell.Value); v != "" {
				cells = append(cells, v)
			}
		}
	}
	if len(cells) == 0 {
		return ""
	}

	best, bestScore := "", 0.0
	for _, rule := range c.rules {
		if len(rule.Keywords) == 0 || !PageInRange(rule.Pages, t.PageNumber) {
			continue
		}
		matched := 0
		for _, kw := range rule.Keywords {
			if keywordPresent(foldText(kw), cells) {
				matched++
			}
		}
		score := float64(matched) / float64(len(rule.Keywords))
		if score >= minClassifyScore && score > bestScore {
			best, bestScore = rule.Name, score
		}
	}
	return best
}

func keywordPresent(kw string, cells []string) bool {
	tolerance := len(kw) / 5
	for _, cell := range cells {
		if strings.Contains(cell, kw) {
			return true
		}
		if fuzzy.LevenshteinDistance(kw, cell) <= tolerance {
			return true
		}
	}
	return false
}

func foldText(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}
