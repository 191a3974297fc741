package http

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	auth "github.com/mind-engage/examportal/internal/auth/middleware"
	"github.com/mind-engage/examportal/internal/submission"
)

type submitResponse struct {
	Message  string `json:"message"`
	ResultID int64  `json:"resultId"`
}

// POST /api/tests/submit
// The student is always the token subject; the body cannot choose a user.
func SubmitTestHandler(svc *submission.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submission.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid submission body")
			return
		}
		id, err := svc.Submit(r.Context(), auth.SubjectFromContext(r.Context()), req)
		if err != nil {
			writeError(w, log, err, resSubmission)
			return
		}
		writeJSON(w, http.StatusOK, submitResponse{Message: submission.SubmittedMessage, ResultID: id})
	}
}
