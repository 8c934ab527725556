package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"contractor-backend/internal/lead"
	"contractor-backend/internal/shell"
	"contractor-backend/internal/transport"

	"github.com/gosimple/slug"
)

const (
	multipartOverhead = 1 << 20
	multipartMemory   = 1 << 20
	uploadTimeout     = 60 * time.Second
)

// UploadAttachment stores the multipart "file" and attaches it to the
// draft, replacing any previous attachment.
func (s *Server) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	if s.Attachments == nil {
		transport.WriteError(w, http.StatusServiceUnavailable, "attachments not configured", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, lead.MaxAttachmentBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeSessionError(w, log, "wizard attachment", lead.ErrAttachmentTooLarge)
			return
		}
		log.Warn("wizard attachment: invalid multipart body", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, "invalid multipart body", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"file": "required"})
		return
	}
	defer file.Close()

	id := sessionID(r)
	unlock := s.Sessions.Lock(id)
	defer unlock()

	ctx, cancel := context.WithTimeout(r.Context(), uploadTimeout)
	defer cancel()

	sh, err := s.Sessions.Load(ctx, id)
	if err != nil {
		s.writeSessionError(w, log, "wizard attachment", err)
		return
	}
	wz, err := sh.Wizard()
	if err != nil {
		s.writeSessionError(w, log, "wizard attachment", err)
		return
	}
	if wz.Step != lead.StepContactInfo {
		s.writeSessionError(w, log, "wizard attachment", lead.ErrFieldNotOnStep)
		return
	}
	if err := lead.CheckAttachmentSize(header.Size); err != nil {
		log.Warn("wizard attachment: too large", slog.Int64("size", header.Size))
		s.writeSessionError(w, log, "wizard attachment", err)
		return
	}

	att, err := s.Attachments.Put(ctx, attachmentName(header.Filename), header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		s.writeSessionError(w, log, "wizard attachment", err)
		return
	}

	previous := wz.Draft.Attachment
	if err := wz.Attach(att); err != nil {
		s.discardAttachment(ctx, log, &att)
		s.writeSessionError(w, log, "wizard attachment", err)
		return
	}
	if err := s.Sessions.Save(ctx, id, sh); err != nil {
		s.discardAttachment(ctx, log, &att)
		log.Error("wizard attachment: session store error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "session store error", nil)
		return
	}
	s.discardAttachment(ctx, log, previous)

	log.Info("wizard attachment: ok",
		slog.String("session_id", id),
		slog.String("attachment_id", att.ID),
		slog.Int64("size", att.Size),
	)
	transport.WriteJSON(w, http.StatusOK, newSessionView(id, sh))
}

func (s *Server) RemoveAttachment(w http.ResponseWriter, r *http.Request) {
	s.mutateSession(w, r, "wizard detach", func(ctx context.Context, sh *shell.Shell) error {
		wz, err := sh.Wizard()
		if err != nil {
			return err
		}
		previous := wz.Draft.Attachment
		if err := wz.Detach(); err != nil {
			return err
		}
		s.discardAttachment(ctx, s.logWithRequest(r), previous)
		return nil
	})
}

// attachmentName slugs the client-supplied file name and keeps a plain
// extension, so stored names are safe in headers and emails.
func attachmentName(raw string) string {
	base := filepath.Base(strings.ReplaceAll(raw, "\\", "/"))
	ext := filepath.Ext(base)
	stem := slug.Make(strings.TrimSuffix(base, ext))
	if stem == "" {
		stem = "attachment"
	}
	ext = strings.ToLower(ext)
	if len(ext) < 2 || slug.Make(ext[1:]) != ext[1:] {
		return stem
	}
	return stem + ext
}
