package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mind-engage/examportal/internal/exam"
	syncx "github.com/mind-engage/examportal/internal/sync"
	"github.com/mind-engage/examportal/internal/validation"
)

type createTestReq struct {
	CourseName string `json:"course_name" validate:"required,max=200"`
	TestName   string `json:"test_name" validate:"required,max=200"`
	Duration   int    `json:"duration" validate:"required,gt=0"`
}

// POST /api/admin/tests
func CreateTestHandler(store exam.Authoring, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTestReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "bad json")
			return
		}
		req.CourseName = strings.TrimSpace(req.CourseName)
		req.TestName = strings.TrimSpace(req.TestName)
		if err := validation.Struct(req); err != nil {
			writeError(w, log, err, resTest)
			return
		}
		t := exam.Test{CourseName: req.CourseName, TestName: req.TestName, Duration: req.Duration}
		id, err := store.CreateTest(r.Context(), t)
		if err != nil {
			writeError(w, log, err, resAuthoring)
			return
		}
		t.ID = id
		writeJSON(w, http.StatusCreated, t)
	}
}

type questionReq struct {
	Text          string            `json:"question_text" validate:"required"`
	Type          exam.QuestionType `json:"question_type" validate:"required,oneof=MCQ MSQ NAT"`
	Marks         int               `json:"marks" validate:"required,gt=0"`
	CorrectAnswer string            `json:"correct_answer"`
	// CorrectOptions lists the correct option texts of an MSQ question.
	CorrectOptions []string `json:"correct_options"`
	Explanation    string   `json:"explanation"`
	Options        []string `json:"options" validate:"max=26"`
}

func (q questionReq) question(testID int64) exam.Question {
	out := exam.Question{
		TestID:        testID,
		Text:          q.Text,
		Type:          q.Type,
		Marks:         q.Marks,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
	}
	correct := map[string]bool{}
	for _, c := range q.CorrectOptions {
		correct[strings.TrimSpace(c)] = true
	}
	for _, o := range q.Options {
		if strings.TrimSpace(o) == "" {
			continue
		}
		out.Options = append(out.Options, exam.Option{Text: o, Correct: correct[strings.TrimSpace(o)]})
	}
	// MSQ keys may also arrive in the label form ("A, C") the authoring
	// screens have always sent.
	if q.Type == exam.TypeMSQ && len(correct) == 0 {
		for _, t := range exam.ResolveLabels(q.CorrectAnswer, out.Options) {
			for i := range out.Options {
				if out.Options[i].Text == t {
					out.Options[i].Correct = true
				}
			}
		}
	}
	return out
}

// POST /api/admin/tests/{testID}/questions
func AddQuestionHandler(store exam.Authoring, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID, err := idParam(r, "testID")
		if err != nil {
			writeError(w, log, err, resTest)
			return
		}
		var req questionReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "bad json")
			return
		}
		if err := validation.Struct(req); err != nil {
			writeError(w, log, err, resTest)
			return
		}
		q := exam.NormalizeQuestion(req.question(testID))
		if err := exam.ValidateQuestion(q); err != nil {
			writeError(w, log, err, resTest)
			return
		}
		id, err := store.AddQuestion(r.Context(), q)
		if err != nil {
			writeError(w, log, err, resAuthoring)
			return
		}
		q.ID = id
		writeJSON(w, http.StatusCreated, q)
	}
}

// GET /api/admin/tests/{testID}
// Full authoring view including answers.
func AdminGetTestHandler(bank exam.QuestionBank, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID, err := idParam(r, "testID")
		if err != nil {
			writeError(w, log, err, resTest)
			return
		}
		test, err := bank.GetTest(r.Context(), testID)
		if err != nil {
			writeError(w, log, err, resTest)
			return
		}
		qs, err := bank.ListQuestions(r.Context(), testID)
		if err != nil {
			writeError(w, log, err, resTest)
			return
		}
		writeJSON(w, http.StatusOK, testWithQuestions{Test: test, Questions: qs})
	}
}

// GET /api/admin/events?since=0&limit=100
// Submission events in commit order, for downstream consumers that poll.
func EventsHandler(events *syncx.EventRepo, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since, err := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
		if err != nil || since < 0 {
			since = 0
		}
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		switch {
		case err != nil || limit <= 0:
			limit = 100
		case limit > 1000:
			limit = 1000
		}
		list, err := events.Since(r.Context(), since, limit)
		if err != nil {
			log.Warn("read event log", zap.Error(err))
			writeMessage(w, http.StatusServiceUnavailable, "event log unavailable")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
