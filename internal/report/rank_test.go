package report_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mind-engage/examportal/internal/exam"
	"github.com/mind-engage/examportal/internal/report"
)

func TestStandings_TiesBreakOnSubmissionTime(t *testing.T) {
	s := seed(t)
	mcq, nat, msq := s.questions[0].ID, s.questions[1].ID, s.questions[2].ID
	full := map[int64]exam.Answer{
		mcq: exam.SingleAnswer("Paris"),
		nat: exam.SingleAnswer("9.81"),
		msq: exam.MultipleAnswer([]string{"2", "5"}),
	}
	// each submit advances the store clock, so the first full marks wins the tie
	low := s.submit(t, "c", map[int64]exam.Answer{nat: exam.SingleAnswer("9.81")}, nil)
	first := s.submit(t, "a", full, nil)
	second := s.submit(t, "b", full, nil)

	p := report.NewPresenter(s.store, s.store, nil, nil)
	got, err := p.Standings(context.Background(), s.testID)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{first, second, low}
	if len(got) != len(want) {
		t.Fatalf("standings = %+v", got)
	}
	for i, id := range want {
		if got[i].ResultID != id || got[i].Rank != i+1 || got[i].Total != 3 {
			t.Fatalf("position %d = %+v, want result %d", i, got[i], id)
		}
	}
	if got[0].Percentile != 66.67 || got[2].Percentile != 0 {
		t.Fatalf("percentiles = %v, %v", got[0].Percentile, got[2].Percentile)
	}

	for _, st := range got {
		one, err := p.RankOf(context.Background(), s.testID, st.ResultID)
		if err != nil || one.Rank != st.Rank || one.Percentile != st.Percentile || one.Total != 3 || one.UserID != st.UserID {
			t.Fatalf("RankOf(%d) = %+v, %v; standings say %+v", st.ResultID, one, err, st)
		}
	}
	if one, _ := p.RankOf(context.Background(), s.testID, second); one.Rank != 2 || one.Percentile != 33.33 {
		t.Fatalf("RankOf(second) = %+v", one)
	}
	if _, err := p.RankOf(context.Background(), s.testID, 424242); !errors.Is(err, exam.ErrNotFound) {
		t.Fatalf("unknown result err = %v", err)
	}
	if _, err := p.Standings(context.Background(), 424242); !errors.Is(err, exam.ErrNotFound) {
		t.Fatalf("unknown test err = %v", err)
	}
	if _, err := p.RankOf(context.Background(), 424242, first); !errors.Is(err, exam.ErrNotFound) {
		t.Fatalf("RankOf on unknown test err = %v", err)
	}
}
