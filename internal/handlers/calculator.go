package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"contractor-backend/internal/estimate"
	"contractor-backend/internal/httpx"
	"contractor-backend/internal/shell"
	"contractor-backend/internal/transport"
)

type CalculatorRequest struct {
	ProjectType string `json:"projectType" validate:"required,estimatetype"`
	Size        int    `json:"size" validate:"min=50,max=5000"`
	Quality     string `json:"quality" validate:"required,quality"`
}

func (s *Server) OpenCalculator(w http.ResponseWriter, r *http.Request) {
	s.mutateSession(w, r, "calculator open", func(ctx context.Context, sh *shell.Shell) error {
		orphan := pendingAttachment(sh)
		sh.OpenCalculator()
		s.discardAttachment(ctx, s.logWithRequest(r), orphan)
		return nil
	})
}

func (s *Server) UpdateCalculator(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req CalculatorRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("calculator update: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("calculator update: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(s.Val.ValidationErrors(err)))
		return
	}

	in := estimate.Inputs{
		ProjectType: estimate.ProjectType(req.ProjectType),
		SizeSqFt:    req.Size,
		Quality:     estimate.Quality(req.Quality),
	}
	s.mutateSession(w, r, "calculator update", func(ctx context.Context, sh *shell.Shell) error {
		_, err := sh.UpdateEstimate(in)
		return err
	})
}

// CalculatorHandoff closes the calculator and opens the lead wizard
// prefilled with the selected project type and the low estimate.
func (s *Server) CalculatorHandoff(w http.ResponseWriter, r *http.Request) {
	s.mutateSession(w, r, "calculator handoff", func(ctx context.Context, sh *shell.Shell) error {
		h, err := sh.RequestExactQuote(ctx)
		if err != nil {
			return err
		}
		s.logWithRequest(r).Info("calculator handoff: prefilled",
			slog.String("service", h.Service),
			slog.Int("estimated_budget", h.EstimatedBudget),
		)
		return nil
	})
}

// Estimate is the stateless calculator used by pages that do not keep a session.
func (s *Server) Estimate(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	q := r.URL.Query()
	in := estimate.DefaultInputs()

	if v := strings.TrimSpace(q.Get("projectType")); v != "" {
		in.ProjectType = estimate.ProjectType(v)
	}
	if v := strings.TrimSpace(q.Get("quality")); v != "" {
		in.Quality = estimate.Quality(v)
	}
	size, err := httpx.QueryInt(q, "size", in.SizeSqFt)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	in.SizeSqFt = size

	est, err := estimate.Calculate(in)
	if err != nil {
		s.writeSessionError(w, log, "estimate", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, est)
}
