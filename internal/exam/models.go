package exam

import "time"

type QuestionType string

const (
	TypeMCQ QuestionType = "MCQ" // single correct option
	TypeMSQ QuestionType = "MSQ" // multiple correct options, exact match
	TypeNAT QuestionType = "NAT" // numerical answer
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case TypeMCQ, TypeMSQ, TypeNAT:
		return true
	}
	return false
}

type Test struct {
	ID         int64  `json:"id"`
	CourseName string `json:"course_name"`
	TestName   string `json:"test_name"`
	Duration   int    `json:"duration"` // minutes
}

type Option struct {
	ID      int64  `json:"option_id"`
	Text    string `json:"option_text"`
	Correct bool   `json:"is_correct,omitempty"`
}

type Question struct {
	ID     int64        `json:"question_id"`
	TestID int64        `json:"test_id"`
	Text   string       `json:"question_text"`
	Type   QuestionType `json:"question_type"`
	Marks  int          `json:"marks"`
	// CorrectAnswer is the raw encoding: option text (MCQ), numeric string (NAT),
	// positional labels such as "A, C" (MSQ).
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
	Options       []Option `json:"options"` // ordered by option_id
}

// Public returns a copy safe to hand to a student taking the test.
func (q Question) Public() Question {
	out := q
	out.CorrectAnswer = ""
	out.Explanation = ""
	out.Options = make([]Option, len(q.Options))
	for i, o := range q.Options {
		out.Options[i] = Option{ID: o.ID, Text: o.Text}
	}
	return out
}

type AnswerKind uint8

const (
	Unattempted AnswerKind = iota
	Single
	Multiple
)

// Answer is what a student submitted for one question.
type Answer struct {
	Kind  AnswerKind
	Text  string   // Single
	Texts []string // Multiple
}

func NoAnswer() Answer                  { return Answer{Kind: Unattempted} }
func SingleAnswer(s string) Answer      { return Answer{Kind: Single, Text: s} }
func MultipleAnswer(ss []string) Answer { return Answer{Kind: Multiple, Texts: ss} }

type AnswerSheet struct {
	TestID          int64
	UserID          string
	Answers         map[int64]Answer
	MarkedForReview map[int64]bool
	ElapsedSeconds  *int64
}

type ScoredResult struct {
	ID                 int64     `json:"result_id"`
	TestID             int64     `json:"test_id"`
	UserID             string    `json:"user_id"`
	Score              float64   `json:"score"`
	TotalQuestions     int       `json:"total_questions"`
	AttemptedQuestions int       `json:"attempted_questions"`
	CorrectAnswers     int       `json:"correct_answers"`
	Percentage         float64   `json:"percentage"`
	MaxMarks           float64   `json:"max_marks"`
	SubmittedAt        time.Time `json:"submission_time"`
	ElapsedSeconds     *int64    `json:"time_taken_seconds"`
}

type Response struct {
	ResultID        int64    `json:"result_id"`
	QuestionID      int64    `json:"question_id"`
	UserAnswer      *string  `json:"user_answer"` // MSQ answers are comma-joined
	IsCorrect       bool     `json:"is_correct"`
	MarkedForReview bool     `json:"marked_for_review"`
	MarksAwarded    *float64 `json:"marks_awarded,omitempty"`
}

// Attempted reports whether a non-empty answer was stored.
func (r Response) Attempted() bool {
	return r.UserAnswer != nil && *r.UserAnswer != ""
}

type RankEntry struct {
	ResultID    int64     `json:"result_id"`
	UserID      string    `json:"user_id"`
	Score       float64   `json:"score"`
	Percentage  float64   `json:"percentage"`
	SubmittedAt time.Time `json:"submission_time"`
}
