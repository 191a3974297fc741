package exam

import (
	"math"
	"sort"
)

// SortRankEntries orders results for ranking: percentage descending, earlier
// submission first on ties, then lower result id.
func SortRankEntries(entries []RankEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Percentage != b.Percentage {
			return a.Percentage > b.Percentage
		}
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
		return a.ResultID < b.ResultID
	})
}

// Rank finds resultID in an already sorted list and returns its 1-based rank
// and the percentage of results ranked below it.
func Rank(entries []RankEntry, resultID int64) (rank int, percentile float64, ok bool) {
	n := len(entries)
	for i, e := range entries {
		if e.ResultID == resultID {
			return i + 1, Percentile(i+1, n), true
		}
	}
	return 0, 0, false
}

// Percentile is the share of n results ranked strictly below rank, to 2dp.
func Percentile(rank, n int) float64 {
	if n <= 0 || rank < 1 {
		return 0
	}
	return math.Round(float64(n-rank)/float64(n)*100*100) / 100
}
