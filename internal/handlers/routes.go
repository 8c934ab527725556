package handlers

import (
	"time"

	"contractor-backend/internal/intake"
	"contractor-backend/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// Mount registers the public session API and the admin lead API on api.
func (s *Server) Mount(api chi.Router, leads *intake.Handler) {
	window := time.Duration(s.Cfg.RateLimitWindowSec) * time.Second
	sessionsLimiter := middleware.NewRateLimiter(s.Cfg.RateLimitSessions, window)
	submitLimiter := middleware.NewRateLimiter(s.Cfg.RateLimitSubmit, window)

	api.Get("/estimate", s.Estimate)

	api.With(sessionsLimiter.Middleware("sessions")).Post("/sessions", s.CreateSession)
	api.Route("/sessions/{id}", func(sr chi.Router) {
		sr.Get("/", s.GetSession)
		sr.Delete("/", s.DeleteSession)
		sr.Post("/quote", s.RequestQuote)
		sr.Post("/modal/close", s.CloseModal)

		sr.Post("/calculator", s.OpenCalculator)
		sr.Put("/calculator", s.UpdateCalculator)
		sr.Post("/calculator/handoff", s.CalculatorHandoff)

		sr.Patch("/wizard", s.UpdateWizardField)
		sr.Post("/wizard/continue", s.WizardContinue)
		sr.Post("/wizard/review", s.WizardReview)
		sr.Post("/wizard/back", s.WizardBack)
		sr.With(submitLimiter.Middleware("attachment")).Post("/wizard/attachment", s.UploadAttachment)
		sr.Delete("/wizard/attachment", s.RemoveAttachment)
		sr.With(submitLimiter.Middleware("submit")).Post("/wizard/submit", s.SubmitWizard)
	})

	api.Route("/admin", func(admin chi.Router) {
		admin.Post("/login", s.AdminLogin)
		admin.Post("/refresh", s.AdminRefresh)
		admin.Post("/logout", s.AdminLogout)

		if leads == nil {
			return
		}
		// middlewares must be attached before the protected routes
		admin.Group(func(protected chi.Router) {
			protected.Use(middleware.AdminAuth(s.JWT))
			protected.Get("/leads", leads.AdminList)
			protected.Get("/leads/{id}", leads.AdminGetByID)
			protected.Patch("/leads/{id}", leads.AdminUpdateStatus)
			protected.Get("/leads/{id}/attachment", leads.AdminDownloadAttachment)
		})
	})
}
