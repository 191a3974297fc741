package report

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mind-engage/examportal/internal/exam"
	"github.com/mind-engage/examportal/internal/tracing"
)

type Standing struct {
	exam.RankEntry
	Rank       int     `json:"rank"`
	Percentile float64 `json:"percentile"`
	Total      int     `json:"total"`
}

// Standings lists every result of a test in rank order.
func (p *Presenter) Standings(ctx context.Context, testID int64) ([]Standing, error) {
	ctx, span := tracing.Start(ctx, "report.Standings", attribute.Int64("test_id", testID))
	defer span.End()

	entries, err := p.ranked(ctx, testID)
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}
	out := make([]Standing, len(entries))
	for i, e := range entries {
		out[i] = Standing{RankEntry: e, Rank: i + 1, Percentile: exam.Percentile(i+1, len(entries)), Total: len(entries)}
	}
	return out, nil
}

// RankOf returns one result's standing within its test.
func (p *Presenter) RankOf(ctx context.Context, testID, resultID int64) (Standing, error) {
	ctx, span := tracing.Start(ctx, "report.RankOf",
		attribute.Int64("test_id", testID), attribute.Int64("result_id", resultID))
	defer span.End()

	entries, err := p.ranked(ctx, testID)
	if err != nil {
		tracing.Fail(span, err)
		return Standing{}, err
	}
	rank, pct, ok := exam.Rank(entries, resultID)
	if !ok {
		return Standing{}, fmt.Errorf("result %d in test %d: %w", resultID, testID, exam.ErrNotFound)
	}
	return Standing{RankEntry: entries[rank-1], Rank: rank, Percentile: pct, Total: len(entries)}, nil
}

// ranked loads a test's results sorted for ranking. An unknown test is
// ErrNotFound rather than an empty list.
func (p *Presenter) ranked(ctx context.Context, testID int64) ([]exam.RankEntry, error) {
	if _, err := p.bank.GetTest(ctx, testID); err != nil {
		return nil, err
	}
	entries, err := p.results.ListResultsForTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	exam.SortRankEntries(entries)
	return entries, nil
}
