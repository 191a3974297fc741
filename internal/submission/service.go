package submission

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/mind-engage/examportal/internal/exam"
	"github.com/mind-engage/examportal/internal/grading"
	"github.com/mind-engage/examportal/internal/metrics"
	"github.com/mind-engage/examportal/internal/notify"
	"github.com/mind-engage/examportal/internal/tracing"
	"github.com/mind-engage/examportal/internal/validation"
)

// SubmittedMessage is returned to the client alongside the new result id.
const SubmittedMessage = "Test submitted successfully!"

// SubmitRequest is the inbound submission payload. Answers stay raw until the
// question bank says how each one should be read.
type SubmitRequest struct {
	TestID          int64                      `json:"testId" validate:"required,gt=0"`
	Answers         map[string]json.RawMessage `json:"answers" validate:"required"`
	MarkedForReview map[string]bool            `json:"markedForReview"`
	TimeTaken       *int64                     `json:"timeTaken" validate:"omitempty,gte=0"`
}

type Service struct {
	bank     exam.QuestionBank
	results  exam.ResultStore
	engine   *grading.Engine
	log      *zap.Logger
	metrics  *metrics.Metrics
	notifier notify.Notifier
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option       { return func(s *Service) { s.log = l } }
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }
func WithNotifier(n notify.Notifier) Option { return func(s *Service) { s.notifier = n } }

func New(bank exam.QuestionBank, results exam.ResultStore, engine *grading.Engine, opts ...Option) *Service {
	s := &Service{
		bank:     bank,
		results:  results,
		engine:   engine,
		log:      zap.NewNop(),
		notifier: notify.Nop{},
	}
	for _, o := range opts {
		o(s)
	}
	if s.engine == nil {
		s.engine = grading.New()
	}
	return s
}

// Submit scores the sheet against the test's current question bank and
// persists the result and every response in one transaction. Each call
// creates a new attempt.
func (s *Service) Submit(ctx context.Context, userID string, req SubmitRequest) (int64, error) {
	ctx, span := tracing.Start(ctx, "submission.Submit",
		attribute.Int64("test_id", req.TestID), attribute.String("user_id", userID))
	defer span.End()

	id, err := s.submit(ctx, userID, req)
	s.metrics.ObserveSubmission(outcome(err))
	if err != nil {
		tracing.Fail(span, err)
		s.logFailure(err, userID, req.TestID)
		return 0, err
	}
	span.SetAttributes(attribute.Int64("result_id", id))
	return id, nil
}

func (s *Service) submit(ctx context.Context, userID string, req SubmitRequest) (int64, error) {
	if err := s.check(userID, req); err != nil {
		return 0, err
	}
	test, err := s.bank.GetTest(ctx, req.TestID)
	if err != nil {
		return 0, err
	}
	questions, err := s.bank.ListQuestions(ctx, test.ID)
	if err != nil {
		return 0, err
	}

	sheet := s.sheet(userID, req, questions)
	start := time.Now()
	res, responses := s.engine.Score(questions, sheet)
	s.metrics.ObserveGrading(time.Since(start), res.Percentage)

	id, err := s.results.Submit(ctx, test.ID, userID, res, responses)
	if err != nil {
		return 0, err
	}
	s.log.Info("test submitted",
		zap.Int64("result_id", id),
		zap.Int64("test_id", test.ID),
		zap.String("user_id", userID),
		zap.Float64("score", res.Score),
		zap.Float64("percentage", res.Percentage),
		zap.Int("attempted", res.AttemptedQuestions),
	)

	// committed; confirmation is best-effort
	if err := s.notifier.SubmissionConfirmed(ctx, notify.Submission{
		ResultID:   id,
		TestID:     test.ID,
		TestName:   test.TestName,
		UserID:     userID,
		Score:      res.Score,
		MaxMarks:   res.MaxMarks,
		Percentage: res.Percentage,
	}); err != nil {
		s.log.Warn("submission confirmation failed", zap.Int64("result_id", id), zap.Error(err))
	}
	return id, nil
}

func (s *Service) check(userID string, req SubmitRequest) error {
	if strings.TrimSpace(userID) == "" {
		return exam.Validationf("user id is required")
	}
	return validation.Struct(req)
}

func (s *Service) logFailure(err error, userID string, testID int64) {
	fields := []zap.Field{zap.String("user_id", userID), zap.Int64("test_id", testID), zap.Error(err)}
	switch {
	case errors.Is(err, exam.ErrValidation), errors.Is(err, exam.ErrNotFound):
		s.log.Info("submission rejected", fields...)
	case errors.Is(err, exam.ErrIntegrity):
		s.log.Error("submission integrity violation", fields...)
	default:
		s.log.Warn("submission failed", fields...)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeAccepted
	case errors.Is(err, exam.ErrValidation):
		return metrics.OutcomeInvalid
	case errors.Is(err, exam.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, exam.ErrIntegrity):
		return metrics.OutcomeIntegrity
	}
	return metrics.OutcomeTransient
}
