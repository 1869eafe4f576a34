// Package stats computes per-client history summaries over record rows
// already fetched from the store. Department-wide team statistics are
// aggregated in SQL by the repository; this package handles the per-client
// grouping the store returns unaggregated.
package stats

import (
	"sort"

	"github.com/Houeta/crm-dispatch-bot/internal/models"
)

// LatestLimit is how many most-recent records a client summary carries
// verbatim.
const LatestLimit = 5

// ClientSummary is the aggregate view of one client's history.
// Records with an orphaned employee or category reference are excluded from
// the respective breakdown but still counted in Total.
type ClientSummary struct {
	Total      int
	ByEmployee []models.NameCount
	ByCategory []models.CategoryCount
	Latest     []models.RecordDetails
}

// Summarize aggregates the given records, which must be ordered newest
// first. Breakdowns are sorted by descending count; ties keep the
// first-encountered order, which under the input ordering means the most
// recently active group wins the tie.
func Summarize(records []models.RecordDetails) ClientSummary {
	summary := ClientSummary{
		Total:      len(records),
		ByEmployee: []models.NameCount{},
		ByCategory: []models.CategoryCount{},
	}

	empIndex := make(map[string]int)
	type catKey struct{ code, name string }
	catIndex := make(map[catKey]int)

	for _, rec := range records {
		if rec.EmployeeName.Valid {
			name := rec.EmployeeName.String
			if i, ok := empIndex[name]; ok {
				summary.ByEmployee[i].Count++
			} else {
				empIndex[name] = len(summary.ByEmployee)
				summary.ByEmployee = append(summary.ByEmployee, models.NameCount{Name: name, Count: 1})
			}
		}

		if rec.CategoryName.Valid {
			key := catKey{code: rec.CategoryCode, name: rec.CategoryName.String}
			if i, ok := catIndex[key]; ok {
				summary.ByCategory[i].Count++
			} else {
				catIndex[key] = len(summary.ByCategory)
				summary.ByCategory = append(summary.ByCategory, models.CategoryCount{
					Code: key.code, Name: key.name, Count: 1,
				})
			}
		}
	}

	sort.SliceStable(summary.ByEmployee, func(i, j int) bool {
		return summary.ByEmployee[i].Count > summary.ByEmployee[j].Count
	})
	sort.SliceStable(summary.ByCategory, func(i, j int) bool {
		return summary.ByCategory[i].Count > summary.ByCategory[j].Count
	})

	limit := LatestLimit
	if len(records) < limit {
		limit = len(records)
	}
	summary.Latest = records[:limit]

	return summary
}
