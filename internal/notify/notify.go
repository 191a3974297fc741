package notify

import (
	"context"

	"go.uber.org/zap"
)

// Submission is what a student is told after a successful submit.
type Submission struct {
	ResultID   int64
	TestID     int64
	TestName   string
	UserID     string
	Score      float64
	MaxMarks   float64
	Percentage float64
}

// Notifier delivers submission confirmations. Delivery is best-effort; the
// caller logs and drops errors.
type Notifier interface {
	SubmissionConfirmed(ctx context.Context, s Submission) error
}

// LogNotifier writes confirmations to the log instead of mailing them.
type LogNotifier struct{ Log *zap.Logger }

func (n LogNotifier) SubmissionConfirmed(_ context.Context, s Submission) error {
	n.Log.Info("submission confirmed",
		zap.Int64("result_id", s.ResultID),
		zap.Int64("test_id", s.TestID),
		zap.String("test_name", s.TestName),
		zap.String("user_id", s.UserID),
		zap.Float64("score", s.Score),
		zap.Float64("max_marks", s.MaxMarks),
		zap.Float64("percentage", s.Percentage),
	)
	return nil
}

// Nop discards confirmations.
type Nop struct{}

func (Nop) SubmissionConfirmed(context.Context, Submission) error { return nil }
