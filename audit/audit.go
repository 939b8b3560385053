// Package audit reports per-column missingness. The report is purely
// diagnostic: it is logged and discarded, and never gates the cleaning
// drop list.
package audit

import (
	"math"
	"sort"

	"github.com/jobsignals/postpipe/table"
)

// ColumnMissing is the missingness summary for one column.
type ColumnMissing struct {
	Column       string
	MissingCount int
	MissingPct   float64
}

// Missingness computes null counts and null percentages (rounded to 2
// decimal places) for every column, sorted descending by count. Ties are
// broken by column name ascending.
func Missingness(t *table.Table) []ColumnMissing {
	rows := t.NumRows()
	names := t.ColumnNames()

	report := make([]ColumnMissing, 0, len(names))
	for i, name := range names {
		count := t.Record().Column(i).NullN()
		pct := 0.0
		if rows > 0 {
			pct = math.Round(float64(count)/float64(rows)*100*100) / 100
		}
		report = append(report, ColumnMissing{
			Column:       name,
			MissingCount: count,
			MissingPct:   pct,
		})
	}

	sort.SliceStable(report, func(i, j int) bool {
		if report[i].MissingCount != report[j].MissingCount {
			return report[i].MissingCount > report[j].MissingCount
		}
		return report[i].Column < report[j].Column
	})
	return report
}
