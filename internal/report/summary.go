// Package report aggregates correction records into statistics, writes the
// JSON corrections report, and renders the in-document report block that
// heads a mirrored comparison.
package report

import (
	"sort"

	"github.com/MrWong99/revisa/internal/revision"
)

// Summary holds the aggregate counts of one run.
type Summary struct {
	TotalCorrections int            `json:"total_corrections"`
	TotalErrorsFound int            `json:"total_errors_found"`
	Applied          int            `json:"applied"`
	Failed           int            `json:"failed"`
	AutoDetected     int            `json:"auto_detected"`
	ByType           map[string]int `json:"by_type"`
	BySource         map[string]int `json:"by_source"`
}

// Summarize counts records. errorsFound is the number of corrections the
// language model reported, including ones that could not be matched; pass
// len(records) when there is no model involved.
func Summarize(records []revision.Record, errorsFound int) Summary {
	s := Summary{
		TotalCorrections: len(records),
		TotalErrorsFound: errorsFound,
		ByType:           make(map[string]int),
		BySource:         make(map[string]int),
	}
	for _, r := range records {
		s.ByType[r.Category]++
		s.BySource[string(r.Source)]++
		if r.Applied {
			s.Applied++
		} else {
			s.Failed++
		}
		if r.Source == revision.SourceAutoDetected {
			s.AutoDetected++
		}
	}
	return s
}

// CategoryCount is one line of the per-category statistics.
type CategoryCount struct {
	Category string
	Count    int
}

// ByCategory counts records per category, sorted by descending count. Ties
// keep the order in which the categories were first seen.
func ByCategory(records []revision.Record) []CategoryCount {
	index := make(map[string]int)
	var out []CategoryCount
	for _, r := range records {
		i, ok := index[r.Category]
		if !ok {
			i = len(out)
			index[r.Category] = i
			out = append(out, CategoryCount{Category: r.Category})
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Count > out[b].Count })
	return out
}

// PageGroup is the records that share one page estimate.
type PageGroup struct {
	Page    int
	Records []revision.Record
}

// ByPage groups records by page estimate, pages ascending, keeping discovery
// order inside each page.
func ByPage(records []revision.Record) []PageGroup {
	index := make(map[int]int)
	var out []PageGroup
	for _, r := range records {
		i, ok := index[r.Page]
		if !ok {
			i = len(out)
			index[r.Page] = i
			out = append(out, PageGroup{Page: r.Page})
		}
		out[i].Records = append(out[i].Records, r)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Page < out[b].Page })
	return out
}
