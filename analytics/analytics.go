// Package analytics computes the aggregate summaries over the
// full-feature posting table.
package analytics

import (
	"math"
	"sort"
	"strings"

	"github.com/jobsignals/postpipe/table"
)

// WorkTypeShare is the remote proportion (0..1) for one work type.
type WorkTypeShare struct {
	WorkType    string
	RemoteShare float64
}

// AgeByRemote is the mean posting age in days for one remote-status group.
type AgeByRemote struct {
	IsRemote          bool
	AvgPostingAgeDays float64
}

// RemoteShare returns the percentage of postings flagged remote, rounded
// to 2 decimal places. An empty table yields 0 rather than a division by
// zero.
func RemoteShare(t *table.Table) (float64, error) {
	isRemote, err := t.Booleans("is_remote")
	if err != nil {
		return 0, err
	}

	total := isRemote.Len()
	if total == 0 {
		return 0, nil
	}
	remote := 0
	for i := 0; i < total; i++ {
		if !isRemote.IsNull(i) && isRemote.Value(i) {
			remote++
		}
	}
	return round2(float64(remote) / float64(total) * 100), nil
}

// PostingAgeByRemote returns the mean posting age per remote-status
// group, sorted ascending by age. Rows with null age are excluded; a
// group with no measurable rows produces no entry.
func PostingAgeByRemote(t *table.Table) ([]AgeByRemote, error) {
	isRemote, err := t.Booleans("is_remote")
	if err != nil {
		return nil, err
	}
	age, err := t.Int64s("posting_age_days")
	if err != nil {
		return nil, err
	}

	sums := make(map[bool]int64)
	counts := make(map[bool]int64)
	for i := 0; i < isRemote.Len(); i++ {
		if isRemote.IsNull(i) || age.IsNull(i) {
			continue
		}
		group := isRemote.Value(i)
		sums[group] += age.Value(i)
		counts[group]++
	}

	result := make([]AgeByRemote, 0, len(counts))
	for _, group := range []bool{false, true} {
		if counts[group] == 0 {
			continue
		}
		result = append(result, AgeByRemote{
			IsRemote:          group,
			AvgPostingAgeDays: float64(sums[group]) / float64(counts[group]),
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].AvgPostingAgeDays < result[j].AvgPostingAgeDays
	})
	return result, nil
}

// RemoteShareByWorkType returns the mean of is_remote per distinct
// normalized work type, sorted descending by proportion. Ties are broken
// by work type ascending so output order is deterministic. Rows with a
// null work type are excluded from grouping.
func RemoteShareByWorkType(t *table.Table) ([]WorkTypeShare, error) {
	isRemote, err := t.Booleans("is_remote")
	if err != nil {
		return nil, err
	}
	workType, err := t.Strings("work_type")
	if err != nil {
		return nil, err
	}

	remote := make(map[string]int64)
	totals := make(map[string]int64)
	for i := 0; i < workType.Len(); i++ {
		if workType.IsNull(i) {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(workType.Value(i)))
		totals[key]++
		if !isRemote.IsNull(i) && isRemote.Value(i) {
			remote[key]++
		}
	}

	result := make([]WorkTypeShare, 0, len(totals))
	for key, total := range totals {
		result = append(result, WorkTypeShare{
			WorkType:    key,
			RemoteShare: float64(remote[key]) / float64(total),
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].RemoteShare != result[j].RemoteShare {
			return result[i].RemoteShare > result[j].RemoteShare
		}
		return result[i].WorkType < result[j].WorkType
	})
	return result, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
