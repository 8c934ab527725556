package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"contractor-backend/internal/analytics"
	"contractor-backend/internal/auth"
	"contractor-backend/internal/config"
	"contractor-backend/internal/intake"
	"contractor-backend/internal/lead"
	"contractor-backend/internal/middleware"
	"contractor-backend/internal/validation"
)

type Server struct {
	Cfg         *config.Config
	Val         *validation.Validator
	Log         *slog.Logger
	Sessions    *SessionStore
	Deliverer   lead.Deliverer
	Attachments intake.AttachmentStore
	Tracker     analytics.Tracker
	Users       auth.UserRepository
	JWT         *auth.Manager
	Now         func() time.Time
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Server) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return s.Log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return s.Log.With(slog.String("request_id", id))
	}
	return s.Log
}
