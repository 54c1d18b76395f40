package extraction

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PagesAll selects every page of a document.
const PagesAll = "all"

// ParsePages expands a page selection such as "all", "1", "2-5" or
// "1,3,4-6" into sorted, de-duplicated 1-indexed page numbers bounded by
// pageCount.
func ParsePages(spec string, pageCount int) ([]int, error) {
	spec = strings.TrimSpace(strings.ToLower(spec))
	if spec == "" || spec == PagesAll {
		pages := make([]int, pageCount)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages, nil
	}

	seen := make(map[int]struct{})
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		first, last, err := parsePageRange(part)
		if err != nil {
			return nil, err
		}
		for p := first; p <= last && p <= pageCount; p++ {
			seen[p] = struct{}{}
		}
	}

	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages, nil
}

// PageInRange reports whether page is selected by spec. Malformed specs
// select nothing.
func PageInRange(spec string, page int) bool {
	pages, err := ParsePages(spec, page)
	if err != nil {
		return false
	}
	for _, p := range pages {
		if p == page {
			return true
		}
	}
	return false
}

func parsePageRange(part string) (int, int, error) {
	lo, hi, isRange := strings.Cut(part, "-")
	first, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil || first < 1 {
		return 0, 0, fmt.Errorf("invalid page %q", part)
	}
	if !isRange {
		return first, first, nil
	}
	last, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil || last < first {
		return 0, 0, fmt.Errorf("invalid page range %q", part)
	}
	return first, last, nil
}
