package exam

import (
	"testing"
	"time"
)

func TestRank_TiesBrokenByEarlierSubmission(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	entries := []RankEntry{
		{ResultID: 30, Percentage: 70, SubmittedAt: t1.Add(2 * time.Minute)},
		{ResultID: 20, Percentage: 90, SubmittedAt: t1.Add(time.Minute)},
		{ResultID: 10, Percentage: 90, SubmittedAt: t1},
	}
	SortRankEntries(entries)
	for i, want := range []int64{10, 20, 30} {
		if entries[i].ResultID != want {
			t.Fatalf("position %d = %d, want %d", i, entries[i].ResultID, want)
		}
		rank, _, ok := Rank(entries, want)
		if !ok || rank != i+1 {
			t.Fatalf("Rank(%d) = %d,%v", want, rank, ok)
		}
	}
	if _, pct, _ := Rank(entries, 10); pct != 66.67 {
		t.Fatalf("percentile = %v", pct)
	}
	if _, _, ok := Rank(entries, 99); ok {
		t.Fatal("unknown result should not rank")
	}
}

func TestSortRankEntries_SameInstantFallsBackToID(t *testing.T) {
	at := time.Unix(1700000000, 0)
	entries := []RankEntry{{ResultID: 9, Percentage: 50, SubmittedAt: at}, {ResultID: 4, Percentage: 50, SubmittedAt: at}}
	SortRankEntries(entries)
	if entries[0].ResultID != 4 {
		t.Fatalf("order = %+v", entries)
	}
}

func TestPercentile(t *testing.T) {
	cases := []struct {
		rank, n int
		want    float64
	}{{1, 1, 0}, {1, 4, 75}, {4, 4, 0}, {2, 3, 33.33}, {0, 3, 0}, {1, 0, 0}}
	for _, tc := range cases {
		if got := Percentile(tc.rank, tc.n); got != tc.want {
			t.Errorf("Percentile(%d,%d) = %v, want %v", tc.rank, tc.n, got, tc.want)
		}
	}
}
