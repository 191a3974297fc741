package http

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	auth "github.com/mind-engage/examportal/internal/auth/middleware"
	"github.com/mind-engage/examportal/internal/exam"
	"github.com/mind-engage/examportal/internal/rbac"
	"github.com/mind-engage/examportal/internal/report"
	"github.com/mind-engage/examportal/internal/submission"
	syncx "github.com/mind-engage/examportal/internal/sync"
)

type Deps struct {
	Store       exam.Store
	Submissions *submission.Service
	Reports     *report.Presenter
	Auth        *auth.AuthService
	Events      *syncx.EventRepo // nil when results are not persisted in SQL
	LocalLogin  bool
	Log         *zap.Logger
}

// Mount registers the /api surface on r.
func Mount(r chi.Router, d Deps) {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	if d.LocalLogin {
		r.Post("/api/auth/login", auth.LoginHandler(d.Auth))
	}

	// JWT → subject and role in context → RBAC
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))

		pr.With(rbac.Require(rbac.PermTestView)).
			Get("/api/tests/{testID}/questions", GetTestQuestionsHandler(d.Store, log))
		pr.With(rbac.Require(rbac.PermTestSubmit)).
			Post("/api/tests/submit", SubmitTestHandler(d.Submissions, log))
		// ownership is checked in the handler
		pr.With(rbac.RequireAny(rbac.PermResultViewOwn, rbac.PermResultViewAll)).
			Get("/api/result/details/{resultID}", ResultDetailsHandler(d.Reports, log))
		pr.With(rbac.Require(rbac.PermResultRank)).
			Get("/api/tests/{testID}/results", TestStandingsHandler(d.Reports, log))
		pr.With(rbac.Require(rbac.PermResultRank)).
			Get("/api/tests/{testID}/results/{resultID}/rank", ResultRankHandler(d.Reports, log))
		pr.With(rbac.Require(rbac.PermResultViewOwn)).
			Get("/api/users/me/results", MyResultsHandler(d.Store, log))

		pr.Route("/api/admin", func(ar chi.Router) {
			ar.With(rbac.Require(rbac.PermTestCreate)).
				Post("/tests", CreateTestHandler(d.Store, log))
			ar.With(rbac.Require(rbac.PermQuestionCreate)).
				Post("/tests/{testID}/questions", AddQuestionHandler(d.Store, log))
			ar.With(rbac.Require(rbac.PermTestCreate)).
				Get("/tests/{testID}", AdminGetTestHandler(d.Store, log))
			ar.With(rbac.Require(rbac.PermResultViewAll)).
				Get("/results/details/{resultID}", ResultDetailsHandler(d.Reports, log))
			if d.Events != nil {
				ar.With(rbac.Require(rbac.PermResultViewAll)).
					Get("/events", EventsHandler(d.Events, log))
			}
		})
	})
}
