package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/mind-engage/examportal/internal/exam"
	"github.com/mind-engage/examportal/internal/grading"
	"github.com/mind-engage/examportal/internal/tracing"
)

type Summary struct {
	ResultID           int64     `json:"result_id"`
	TestID             int64     `json:"test_id"`
	UserID             string    `json:"user_id"`
	CourseName         string    `json:"course_name"`
	TestName           string    `json:"test_name"`
	Score              float64   `json:"score"`
	TotalQuestions     int       `json:"total_questions"`
	AttemptedQuestions int       `json:"attempted_questions"`
	CorrectAnswers     int       `json:"correct_answers"`
	Incorrect          int       `json:"incorrect"`
	Left               int       `json:"left"`
	Percentage         float64   `json:"percentage"`
	MaxMarks           float64   `json:"max_marks"`
	RightMarks         float64   `json:"right_marks"`
	NegativeMarks      float64   `json:"negative_marks"`
	SubmissionTime     time.Time `json:"submission_time"`
	TimeTaken          *string   `json:"time_taken"` // HH:MM:SS
	Duration           int       `json:"duration"`   // minutes
	TotalTime          int       `json:"total_time"` // same as duration
}

type LabeledOption struct {
	ID      int64  `json:"option_id"`
	Label   string `json:"label"`
	Text    string `json:"option_text"`
	Correct bool   `json:"is_correct"`
}

// Item is one question of the breakdown. CorrectAnswer and UserAnswer are
// lists of option text for MSQ and plain strings otherwise; UserAnswer is null
// when the question was left.
type Item struct {
	QuestionID      int64             `json:"question_id"`
	QuestionText    string            `json:"question_text"`
	QuestionType    exam.QuestionType `json:"question_type"`
	Marks           int               `json:"marks"`
	CorrectAnswer   any               `json:"correct_answer"`
	UserAnswer      any               `json:"user_answer"`
	IsCorrect       bool              `json:"is_correct"`
	MarkedForReview bool              `json:"marked_for_review"`
	MarksAwarded    float64           `json:"marks_awarded"`
	Explanation     string            `json:"explanation"`
	Options         []LabeledOption   `json:"options"`
}

type DetailedReport struct {
	Result    Summary `json:"result"`
	Responses []Item  `json:"responses"`
}

type Presenter struct {
	bank    exam.QuestionBank
	results exam.ResultStore
	engine  *grading.Engine
	log     *zap.Logger
}

func NewPresenter(bank exam.QuestionBank, results exam.ResultStore, engine *grading.Engine, log *zap.Logger) *Presenter {
	if engine == nil {
		engine = grading.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Presenter{bank: bank, results: results, engine: engine, log: log}
}

// BuildReport renders a stored result. It only reads: marks come from what
// was stored at submission time and correctness is never re-judged, so a
// report does not change when grading rules do.
func (p *Presenter) BuildReport(ctx context.Context, resultID int64) (DetailedReport, error) {
	ctx, span := tracing.Start(ctx, "report.BuildReport", attribute.Int64("result_id", resultID))
	defer span.End()

	rep, err := p.build(ctx, resultID)
	if err != nil {
		tracing.Fail(span, err)
		return DetailedReport{}, err
	}
	return rep, nil
}

func (p *Presenter) build(ctx context.Context, resultID int64) (DetailedReport, error) {
	res, err := p.results.GetResult(ctx, resultID)
	if err != nil {
		return DetailedReport{}, err
	}
	test, err := p.bank.GetTest(ctx, res.TestID)
	if err != nil {
		return DetailedReport{}, err
	}
	responses, err := p.results.GetResponses(ctx, resultID)
	if err != nil {
		return DetailedReport{}, err
	}
	questions, err := p.bank.ListQuestions(ctx, res.TestID)
	if err != nil {
		return DetailedReport{}, err
	}
	byID := make(map[int64]exam.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	sum := Summary{
		ResultID:           res.ID,
		TestID:             res.TestID,
		UserID:             res.UserID,
		CourseName:         test.CourseName,
		TestName:           test.TestName,
		Score:              res.Score,
		TotalQuestions:     res.TotalQuestions,
		AttemptedQuestions: res.AttemptedQuestions,
		CorrectAnswers:     res.CorrectAnswers,
		Incorrect:          res.AttemptedQuestions - res.CorrectAnswers,
		Left:               res.TotalQuestions - res.AttemptedQuestions,
		Percentage:         res.Percentage,
		MaxMarks:           res.MaxMarks,
		SubmissionTime:     res.SubmittedAt.UTC(),
		Duration:           test.Duration,
		TotalTime:          test.Duration,
	}
	if res.ElapsedSeconds != nil {
		s := FormatDuration(*res.ElapsedSeconds)
		sum.TimeTaken = &s
	}

	items := make([]Item, 0, len(responses))
	var right, negative, maxFromBank float64
	for _, r := range responses {
		q, ok := byID[r.QuestionID]
		if !ok {
			p.log.Warn("response references a question no longer in the bank",
				zap.Int64("result_id", resultID), zap.Int64("question_id", r.QuestionID))
			q = exam.Question{ID: r.QuestionID}
		}
		maxFromBank += float64(q.Marks)

		awarded := p.engine.Award(q, r.Attempted(), r.IsCorrect)
		if r.MarksAwarded != nil {
			awarded = *r.MarksAwarded
		}
		if awarded > 0 {
			right += awarded
		} else {
			negative -= awarded
		}
		items = append(items, item(q, r, awarded))
	}
	sum.RightMarks = grading.Round2(right)
	sum.NegativeMarks = grading.Round2(negative)
	if sum.MaxMarks == 0 {
		// results written before max marks were stored
		sum.MaxMarks = maxFromBank
	}
	return DetailedReport{Result: sum, Responses: items}, nil
}

func item(q exam.Question, r exam.Response, awarded float64) Item {
	it := Item{
		QuestionID:      r.QuestionID,
		QuestionText:    q.Text,
		QuestionType:    q.Type,
		Marks:           q.Marks,
		CorrectAnswer:   q.CorrectAnswer,
		IsCorrect:       r.IsCorrect,
		MarkedForReview: r.MarkedForReview,
		MarksAwarded:    grading.Round2(awarded),
		Explanation:     q.Explanation,
		Options:         labeled(q),
	}
	if q.Type == exam.TypeMSQ {
		it.CorrectAnswer = nonNil(exam.ResolveCorrectTexts(q))
	}
	if r.Attempted() {
		if q.Type == exam.TypeMSQ {
			it.UserAnswer = splitStored(*r.UserAnswer, q.Options)
		} else {
			it.UserAnswer = *r.UserAnswer
		}
	}
	return it
}

func labeled(q exam.Question) []LabeledOption {
	correct := map[string]bool{}
	if q.Type == exam.TypeMSQ {
		for _, t := range exam.ResolveCorrectTexts(q) {
			correct[t] = true
		}
	}
	out := make([]LabeledOption, len(q.Options))
	for i, o := range q.Options {
		out[i] = LabeledOption{
			ID:      o.ID,
			Label:   exam.Label(i),
			Text:    o.Text,
			Correct: o.Correct || correct[o.Text] || (q.Type == exam.TypeMCQ && strings.EqualFold(o.Text, q.CorrectAnswer)),
		}
	}
	return out
}

// splitStored recovers the selections of a comma-joined MSQ answer. Option
// texts may themselves contain commas, so at each position the longest option
// that runs up to a comma or the end wins; text matching no option is split
// on the next comma.
func splitStored(s string, options []exam.Option) []string {
	texts := make([]string, 0, len(options))
	for _, o := range options {
		if o.Text != "" {
			texts = append(texts, o.Text)
		}
	}
	sort.SliceStable(texts, func(i, j int) bool { return len(texts[i]) > len(texts[j]) })

	out := []string{}
	for rest := s; rest != ""; {
		n := 0
		for _, t := range texts {
			if len(t) <= len(rest) && strings.EqualFold(rest[:len(t)], t) &&
				(len(t) == len(rest) || rest[len(t)] == ',') {
				n = len(t)
				break
			}
		}
		if n == 0 {
			n = strings.IndexByte(rest, ',')
			if n < 0 {
				n = len(rest)
			}
		}
		if part := strings.TrimSpace(rest[:n]); part != "" {
			out = append(out, part)
		}
		rest = rest[n:]
		rest = strings.TrimPrefix(rest, ",")
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// FormatDuration renders seconds as HH:MM:SS. Hours are not capped at 24.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}
