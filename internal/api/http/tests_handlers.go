package http

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mind-engage/examportal/internal/exam"
)

type testWithQuestions struct {
	Test      exam.Test       `json:"test"`
	Questions []exam.Question `json:"questions"`
}

// GET /api/tests/{testID}/questions
// Answers and explanations are stripped; students see options only.
func GetTestQuestionsHandler(bank exam.QuestionBank, log *zap.Logger) http.HandlerFunc {
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
		out := testWithQuestions{Test: test, Questions: make([]exam.Question, len(qs))}
		for i, q := range qs {
			out.Questions[i] = q.Public()
		}
		writeJSON(w, http.StatusOK, out)
	}
}
