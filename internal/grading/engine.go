package grading

import (
	"math"
	"sort"
	"strings"

	"github.com/mind-engage/examportal/internal/exam"
)

// Verdict is a strategy's judgement of one answer.
type Verdict struct {
	Attempted bool
	Correct   bool
}

// Strategy judges answers for one question type. It must not panic on any
// answer shape; malformed answers are unattempted or incorrect.
type Strategy interface {
	Judge(q exam.Question, a exam.Answer) Verdict
}

// NegativePolicy returns the (non-positive) marks for a wrong MCQ attempt.
type NegativePolicy func(marks int) float64

// StandardNegative deducts a third of the question's marks for 1- and 2-mark
// questions and nothing otherwise.
func StandardNegative(marks int) float64 {
	switch marks {
	case 1:
		return -1.0 / 3.0
	case 2:
		return -2.0 / 3.0
	}
	return 0
}

func noNegative(int) float64 { return 0 }

// Engine options

type Option func(*config)

type config struct {
	negative NegativePolicy
}

func WithNegativeMarking(p NegativePolicy) Option { return func(c *config) { c.negative = p } }
func WithoutNegativeMarking() Option              { return func(c *config) { c.negative = noNegative } }

// Engine scores answer sheets. It is pure and safe for concurrent use.
type Engine struct {
	strategies map[exam.QuestionType]Strategy
	negative   NegativePolicy
}

// New installs the built-in MCQ, MSQ and NAT strategies.
func New(opts ...Option) *Engine {
	cfg := &config{negative: StandardNegative}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.negative == nil {
		cfg.negative = noNegative
	}
	return &Engine{
		strategies: map[exam.QuestionType]Strategy{
			exam.TypeMCQ: mcqStrategy{},
			exam.TypeMSQ: msqStrategy{},
			exam.TypeNAT: natStrategy{},
		},
		negative: cfg.negative,
	}
}

// Judge applies the question type's strategy. Unknown types are unattempted.
func (e *Engine) Judge(q exam.Question, a exam.Answer) Verdict {
	s, ok := e.strategies[q.Type]
	if !ok {
		return Verdict{}
	}
	return s.Judge(q, a)
}

// Award is the mark arithmetic shared by scoring and reporting: full marks
// when correct, the negative policy for a wrong MCQ, zero otherwise.
func (e *Engine) Award(q exam.Question, attempted, correct bool) float64 {
	switch {
	case !attempted:
		return 0
	case correct:
		return float64(q.Marks)
	case q.Type == exam.TypeMCQ:
		return e.negative(q.Marks)
	}
	return 0
}

// Score grades every question of the test against the sheet and returns the
// aggregate result plus one Response per question, in question order. The
// result carries no id or submission time; the store assigns those.
func (e *Engine) Score(questions []exam.Question, sheet exam.AnswerSheet) (exam.ScoredResult, []exam.Response) {
	res := exam.ScoredResult{
		TestID:         sheet.TestID,
		UserID:         sheet.UserID,
		TotalQuestions: len(questions),
		ElapsedSeconds: sheet.ElapsedSeconds,
	}
	responses := make([]exam.Response, 0, len(questions))
	sum := 0.0
	for _, q := range questions {
		a := sheet.Answers[q.ID]
		v := e.Judge(q, a)
		awarded := e.Award(q, v.Attempted, v.Correct)
		sum += awarded
		res.MaxMarks += float64(q.Marks)
		if v.Attempted {
			res.AttemptedQuestions++
		}
		if v.Correct {
			res.CorrectAnswers++
		}

		r := exam.Response{
			QuestionID:      q.ID,
			IsCorrect:       v.Correct,
			MarkedForReview: sheet.MarkedForReview[q.ID],
			MarksAwarded:    &awarded,
		}
		if v.Attempted {
			s := storedAnswer(a)
			r.UserAnswer = &s
		}
		responses = append(responses, r)
	}
	res.Score = Round2(math.Max(0, sum))
	res.Percentage = Percentage(res.Score, res.MaxMarks)
	return res, responses
}

// Percentage is score over max marks as a percentage, 0 when max is 0.
func Percentage(score, maxMarks float64) float64 {
	if maxMarks <= 0 {
		return 0
	}
	return Round2(score / maxMarks * 100)
}

// Round2 rounds half away from zero to two decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// --- Strategies ---

type mcqStrategy struct{}

func (mcqStrategy) Judge(q exam.Question, a exam.Answer) Verdict {
	text := strings.TrimSpace(answerText(a))
	if text == "" {
		return Verdict{}
	}
	key := strings.TrimSpace(q.CorrectAnswer)
	if key == "" {
		for _, o := range q.Options {
			if o.Correct {
				key = o.Text
				break
			}
		}
	}
	return Verdict{Attempted: true, Correct: key != "" && strings.EqualFold(text, key)}
}

type msqStrategy struct{}

func (msqStrategy) Judge(q exam.Question, a exam.Answer) Verdict {
	submitted := foldedSet(answerTexts(a))
	if len(submitted) == 0 {
		return Verdict{}
	}
	correct := foldedSet(exam.ResolveCorrectTexts(q))
	if len(correct) == 0 || len(correct) != len(submitted) {
		return Verdict{Attempted: true}
	}
	for i := range correct {
		if correct[i] != submitted[i] {
			return Verdict{Attempted: true}
		}
	}
	return Verdict{Attempted: true, Correct: true}
}

type natStrategy struct{}

func (natStrategy) Judge(q exam.Question, a exam.Answer) Verdict {
	text := strings.TrimSpace(answerText(a))
	if text == "" {
		return Verdict{}
	}
	got, ok := parseFloatLoose(text)
	if !ok {
		return Verdict{Attempted: true}
	}
	want, ok := parseFloatLoose(q.CorrectAnswer)
	if !ok {
		return Verdict{Attempted: true}
	}
	// exact equality; NaN never matches
	return Verdict{Attempted: true, Correct: got == want}
}

// helpers

func answerText(a exam.Answer) string {
	switch a.Kind {
	case exam.Single:
		return a.Text
	case exam.Multiple:
		return strings.Join(cleanTexts(a.Texts), ",")
	}
	return ""
}

func answerTexts(a exam.Answer) []string {
	switch a.Kind {
	case exam.Single:
		return cleanTexts([]string{a.Text})
	case exam.Multiple:
		return cleanTexts(a.Texts)
	}
	return nil
}

func cleanTexts(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// foldedSet case-folds, de-duplicates and sorts.
func foldedSet(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range cleanTexts(in) {
		k := strings.ToLower(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// storedAnswer is the persisted form: MSQ selections are comma-joined.
func storedAnswer(a exam.Answer) string {
	switch a.Kind {
	case exam.Single:
		return strings.TrimSpace(a.Text)
	case exam.Multiple:
		return strings.Join(cleanTexts(a.Texts), ",")
	}
	return ""
}
