package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"contractor-backend/internal/httpx"
	"contractor-backend/internal/intake"
	"contractor-backend/internal/lead"
	"contractor-backend/internal/shell"
	"contractor-backend/internal/transport"
)

type QuoteRequest struct {
	Service string `json:"service" validate:"max=100"`
}

func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), sessionOpTimeout)
	defer cancel()

	id, sh, err := s.Sessions.Create(ctx)
	if err != nil {
		log.Error("session create: session store error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "session store error", nil)
		return
	}

	log.Info("session create: ok", slog.String("session_id", id))
	transport.WriteJSON(w, http.StatusCreated, newSessionView(id, sh))
}

func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := sessionID(r)

	ctx, cancel := context.WithTimeout(r.Context(), sessionOpTimeout)
	defer cancel()

	sh, err := s.Sessions.Load(ctx, id)
	if err != nil {
		s.writeSessionError(w, log, "session get", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, newSessionView(id, sh))
}

// DeleteSession is the page going away. Scrolling is released and any
// attachment of an unsent draft is discarded.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := sessionID(r)

	unlock := s.Sessions.Lock(id)
	defer unlock()

	ctx, cancel := context.WithTimeout(r.Context(), sessionOpTimeout)
	defer cancel()

	sh, err := s.Sessions.Load(ctx, id)
	if err != nil {
		s.writeSessionError(w, log, "session delete", err)
		return
	}
	orphan := pendingAttachment(sh)
	sh.Dispose()

	if err := s.Sessions.Delete(ctx, id); err != nil {
		log.Error("session delete: session store error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "session store error", nil)
		return
	}
	s.discardAttachment(ctx, log, orphan)

	log.Info("session delete: ok", slog.String("session_id", id))
	transport.WriteNoContent(w)
}

func (s *Server) RequestQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		s.logWithRequest(r).Warn("session quote: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(s.Val.ValidationErrors(err)))
		return
	}

	service := strings.TrimSpace(req.Service)
	if service == lead.GeneralProjectType {
		service = ""
	}
	if service != "" && !isOfferedService(service) {
		transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"service": "oneof"})
		return
	}

	s.mutateSession(w, r, "session quote", func(ctx context.Context, sh *shell.Shell) error {
		orphan := pendingAttachment(sh)
		sh.RequestQuote(ctx, service)
		s.discardAttachment(ctx, s.logWithRequest(r), orphan)
		return nil
	})
}

func (s *Server) CloseModal(w http.ResponseWriter, r *http.Request) {
	s.mutateSession(w, r, "session close", func(ctx context.Context, sh *shell.Shell) error {
		orphan := pendingAttachment(sh)
		sh.CloseModal()
		s.discardAttachment(ctx, s.logWithRequest(r), orphan)
		return nil
	})
}

func isOfferedService(service string) bool {
	for _, pt := range lead.ProjectTypes {
		if pt == service {
			return true
		}
	}
	return false
}

// pendingAttachment returns the attachment of a draft that is about to be
// discarded. Drafts being delivered keep theirs.
func pendingAttachment(sh *shell.Shell) *lead.Attachment {
	w, err := sh.Wizard()
	if err != nil || w.Submitting {
		return nil
	}
	return w.Draft.Attachment
}

func (s *Server) discardAttachment(ctx context.Context, log *slog.Logger, att *lead.Attachment) {
	if att == nil || s.Attachments == nil {
		return
	}
	if err := s.Attachments.Delete(ctx, att.ID); err != nil && !errors.Is(err, intake.ErrAttachmentNotFound) {
		log.Warn("attachment discard failed", slog.String("attachment_id", att.ID), slog.String("error", err.Error()))
	}
}
