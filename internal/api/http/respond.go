package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/examportal/internal/exam"
)

// resource names what a handler serves: the noun for 404s and the message
// for failures a client may retry.
type resource struct {
	name  string
	retry string
}

var (
	resTest       = resource{"test", "test unavailable, please retry"}
	resResult     = resource{"result", "result unavailable, please retry"}
	resSubmission = resource{"test", "submission failed, please retry"}
	resAuthoring  = resource{"test", "could not save, please retry"}
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeError maps the exam error taxonomy to a status and a message safe for
// clients. Retryable datastore failures answer 503; integrity violations and
// anything unclassified answer 500.
func writeError(w http.ResponseWriter, log *zap.Logger, err error, res resource) {
	switch {
	case errors.Is(err, exam.ErrValidation):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, exam.ErrNotFound):
		writeMessage(w, http.StatusNotFound, res.name+" not found")
	case exam.IsRetryable(err):
		log.Warn("datastore failure", zap.String("resource", res.name), zap.Error(err))
		writeMessage(w, http.StatusServiceUnavailable, res.retry)
	default:
		log.Error("request failed", zap.String("resource", res.name), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, res.retry)
	}
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, name)), 10, 64)
	if err != nil || id <= 0 {
		return 0, exam.Validationf("%s must be a positive integer", name)
	}
	return id, nil
}
