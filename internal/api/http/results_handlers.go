package http

import (
	"net/http"

	"go.uber.org/zap"

	auth "github.com/mind-engage/examportal/internal/auth/middleware"
	"github.com/mind-engage/examportal/internal/exam"
	"github.com/mind-engage/examportal/internal/rbac"
	"github.com/mind-engage/examportal/internal/report"
)

// GET /api/result/details/{resultID}
// Students may only open their own results. Someone else's result answers 404
// so result ids cannot be enumerated.
func ResultDetailsHandler(p *report.Presenter, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resultID, err := idParam(r, "resultID")
		if err != nil {
			writeError(w, log, err, resResult)
			return
		}
		rep, err := p.BuildReport(r.Context(), resultID)
		if err != nil {
			writeError(w, log, err, resResult)
			return
		}
		if !rbac.Allowed(r.Context(), rbac.PermResultViewAll) && rep.Result.UserID != auth.SubjectFromContext(r.Context()) {
			writeMessage(w, http.StatusNotFound, "result not found")
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

// GET /api/tests/{testID}/results
func TestStandingsHandler(p *report.Presenter, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID, err := idParam(r, "testID")
		if err != nil {
			writeError(w, log, err, resTest)
			return
		}
		list, err := p.Standings(r.Context(), testID)
		if err != nil {
			writeError(w, log, err, resTest)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /api/tests/{testID}/results/{resultID}/rank
func ResultRankHandler(p *report.Presenter, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID, err := idParam(r, "testID")
		if err != nil {
			writeError(w, log, err, resTest)
			return
		}
		resultID, err := idParam(r, "resultID")
		if err != nil {
			writeError(w, log, err, resResult)
			return
		}
		s, err := p.RankOf(r.Context(), testID, resultID)
		if err != nil {
			writeError(w, log, err, resResult)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

// GET /api/users/me/results
func MyResultsHandler(results exam.ResultStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := results.ListResultsForUser(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, log, err, resResult)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
