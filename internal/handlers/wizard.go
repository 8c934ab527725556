package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"contractor-backend/internal/httpx"
	"contractor-backend/internal/lead"
	"contractor-backend/internal/shell"
	"contractor-backend/internal/transport"
)

const deliveryTimeout = 15 * time.Second

type WizardFieldRequest struct {
	Field string `json:"field" validate:"required,wizardfield"`
	Value string `json:"value" validate:"max=5000"`
}

func (s *Server) UpdateWizardField(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req WizardFieldRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("wizard field: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("wizard field: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(s.Val.ValidationErrors(err)))
		return
	}

	s.mutateSession(w, r, "wizard field", func(ctx context.Context, sh *shell.Shell) error {
		wz, err := sh.Wizard()
		if err != nil {
			return err
		}
		return wz.SetField(lead.Field(req.Field), req.Value)
	})
}

func (s *Server) WizardContinue(w http.ResponseWriter, r *http.Request) {
	s.wizardStep(w, r, "wizard continue", (*lead.Wizard).Continue)
}

func (s *Server) WizardReview(w http.ResponseWriter, r *http.Request) {
	s.wizardStep(w, r, "wizard review", (*lead.Wizard).Review)
}

func (s *Server) WizardBack(w http.ResponseWriter, r *http.Request) {
	s.wizardStep(w, r, "wizard back", (*lead.Wizard).Back)
}

func (s *Server) wizardStep(w http.ResponseWriter, r *http.Request, op string, move func(*lead.Wizard) error) {
	s.mutateSession(w, r, op, func(ctx context.Context, sh *shell.Shell) error {
		wz, err := sh.Wizard()
		if err != nil {
			return err
		}
		return move(wz)
	})
}

type SubmitResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Session SessionView `json:"session"`
}

// SubmitWizard validates and marks the draft as submitting under the session
// lock, delivers it without holding the lock, then records the outcome. A
// second submit arriving in between sees the persisted flag and gets 409.
func (s *Server) SubmitWizard(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := sessionID(r)

	sub, err := s.beginSubmit(r.Context(), id)
	if err != nil {
		s.writeSessionError(w, log, "wizard submit", err)
		return
	}

	// Once begun, a submission completes even if the visitor goes away.
	deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), deliveryTimeout)
	deliveryErr := s.Deliverer.Deliver(deliverCtx, sub)
	cancel()
	if deliveryErr != nil {
		log.Warn("wizard submit: delivery failed", slog.String("session_id", id), slog.String("error", deliveryErr.Error()))
	}

	finishCtx, finishCancel := context.WithTimeout(context.WithoutCancel(r.Context()), sessionOpTimeout)
	defer finishCancel()

	view, err := s.finishSubmit(finishCtx, id, sub, deliveryErr)
	if err != nil {
		s.writeSessionError(w, log, "wizard submit", err)
		return
	}

	log.Info("wizard submit: ok", slog.String("session_id", id), slog.String("project_type", sub.ProjectType))
	transport.WriteJSON(w, http.StatusOK, SubmitResponse{
		Success: true,
		Message: lead.SuccessMessage,
		Session: view,
	})
}

func (s *Server) beginSubmit(parent context.Context, id string) (lead.Submission, error) {
	unlock := s.Sessions.Lock(id)
	defer unlock()

	ctx, cancel := context.WithTimeout(parent, sessionOpTimeout)
	defer cancel()

	sh, err := s.Sessions.Load(ctx, id)
	if err != nil {
		return lead.Submission{}, err
	}
	wz, err := sh.Wizard()
	if err != nil {
		return lead.Submission{}, err
	}

	sub, beginErr := wz.BeginSubmit(s.now())
	if errors.Is(beginErr, lead.ErrSubmitInProgress) || errors.Is(beginErr, lead.ErrInvalidTransition) {
		return lead.Submission{}, beginErr
	}
	// touched fields from a failed validation are saved too
	if err := s.Sessions.Save(ctx, id, sh); err != nil {
		return lead.Submission{}, err
	}
	return sub, beginErr
}

func (s *Server) finishSubmit(ctx context.Context, id string, sub lead.Submission, deliveryErr error) (SessionView, error) {
	unlock := s.Sessions.Lock(id)
	defer unlock()

	sh, err := s.Sessions.Load(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		if deliveryErr != nil {
			return SessionView{}, &lead.SubmissionFailure{Err: deliveryErr}
		}
		return SessionView{ID: id, OpenModal: shell.ModalNone}, nil
	}
	if err != nil {
		return SessionView{}, err
	}

	finishErr := sh.FinishSubmit(ctx, sub, deliveryErr)
	if err := s.Sessions.Save(ctx, id, sh); err != nil {
		return SessionView{}, err
	}
	return newSessionView(id, sh), finishErr
}
