package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"contractor-backend/internal/estimate"
	"contractor-backend/internal/lead"
	"contractor-backend/internal/shell"
	"contractor-backend/internal/transport"

	"github.com/go-chi/chi/v5"
)

const sessionOpTimeout = 5 * time.Second

type SessionView struct {
	ID              string             `json:"id"`
	OpenModal       shell.Modal        `json:"openModal"`
	SelectedService string             `json:"selectedService,omitempty"`
	ScrollLocked    bool               `json:"scrollLocked"`
	Wizard          *WizardView        `json:"wizard,omitempty"`
	Calculator      *estimate.Estimate `json:"calculator,omitempty"`
}

type WizardView struct {
	Step               lead.Step             `json:"step"`
	StepTitle          string                `json:"stepTitle"`
	Draft              lead.Draft            `json:"draft"`
	ProjectTypeDisplay string                `json:"projectTypeDisplay"`
	BudgetDisplay      string                `json:"budgetDisplay"`
	ProjectTypeLocked  bool                  `json:"projectTypeLocked"`
	Submitting         bool                  `json:"submitting"`
	Errors             map[lead.Field]string `json:"errors,omitempty"`
}

func newSessionView(id string, sh *shell.Shell) SessionView {
	v := SessionView{
		ID:              id,
		OpenModal:       sh.OpenModal(),
		SelectedService: sh.SelectedService(),
		ScrollLocked:    sh.ScrollLocked(),
	}
	if w, err := sh.Wizard(); err == nil {
		v.Wizard = &WizardView{
			Step:               w.Step,
			StepTitle:          w.Step.Title(),
			Draft:              w.Draft,
			ProjectTypeDisplay: w.Draft.DisplayProjectType(),
			BudgetDisplay:      lead.FormatBudget(w.Draft.Budget),
			ProjectTypeLocked:  w.ProjectTypeLocked,
			Submitting:         w.Submitting,
			Errors:             w.FieldErrors(),
		}
	}
	if sh.OpenModal() == shell.ModalCalculator {
		est := sh.Calculator().Estimate()
		v.Calculator = &est
	}
	return v
}

func sessionID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}

// mutateSession runs fn against the visitor's shell while holding the
// session lock and saves the result. The shell is saved even when fn fails
// so touched fields survive a rejected submit.
func (s *Server) mutateSession(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, sh *shell.Shell) error) {
	log := s.logWithRequest(r)
	id := sessionID(r)

	unlock := s.Sessions.Lock(id)
	defer unlock()

	ctx, cancel := context.WithTimeout(r.Context(), sessionOpTimeout)
	defer cancel()

	sh, err := s.Sessions.Load(ctx, id)
	if err != nil {
		s.writeSessionError(w, log, op, err)
		return
	}

	fnErr := fn(ctx, sh)
	if err := s.Sessions.Save(ctx, id, sh); err != nil {
		log.Error(op+": session store error", slog.String("session_id", id), slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "session store error", nil)
		return
	}
	if fnErr != nil {
		s.writeSessionError(w, log, op, fnErr)
		return
	}

	log.Info(op+": ok", slog.String("session_id", id))
	transport.WriteJSON(w, http.StatusOK, newSessionView(id, sh))
}

func (s *Server) writeSessionError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	var verr *lead.ValidationError
	var failure *lead.SubmissionFailure

	switch {
	case errors.As(err, &verr):
		log.Warn(op+": validation error", slog.String("field", string(verr.Field)))
		transport.WriteCodedError(w, http.StatusUnprocessableEntity, "validation_failed", verr.Message,
			map[string]string{string(verr.Field): verr.Message})
	case errors.As(err, &failure):
		log.Warn(op+": submission failed", slog.Any("cause", failure.Err))
		transport.WriteCodedError(w, http.StatusBadGateway, "submission_failed", failure.Error(), nil)
	case errors.Is(err, ErrSessionNotFound):
		log.Warn(op + ": session not found")
		transport.WriteError(w, http.StatusNotFound, "session not found", nil)
	case errors.Is(err, lead.ErrAttachmentTooLarge):
		transport.WriteCodedError(w, http.StatusRequestEntityTooLarge, "attachment_too_large", err.Error(), nil)
	case errors.Is(err, lead.ErrSubmitInProgress):
		transport.WriteCodedError(w, http.StatusConflict, "submit_in_progress", err.Error(), nil)
	case errors.Is(err, lead.ErrInvalidTransition),
		errors.Is(err, lead.ErrFieldNotOnStep),
		errors.Is(err, lead.ErrFieldLocked),
		errors.Is(err, shell.ErrModalNotOpen):
		log.Warn(op+": conflict", slog.String("error", err.Error()))
		transport.WriteCodedError(w, http.StatusConflict, "invalid_state", err.Error(), nil)
	case errors.Is(err, lead.ErrUnknownField),
		errors.Is(err, lead.ErrInvalidValue),
		errors.Is(err, estimate.ErrUnknownProjectType),
		errors.Is(err, estimate.ErrUnknownQuality),
		errors.Is(err, estimate.ErrSizeOutOfRange):
		transport.WriteCodedError(w, http.StatusBadRequest, "invalid_value", err.Error(), nil)
	default:
		log.Error(op+": internal error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
	}
}
