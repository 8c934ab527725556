package intake

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"contractor-backend/internal/lead"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const storeTimeout = 10 * time.Second

var (
	ErrInvalidStatus = errors.New("invalid status")
	ErrNotFound      = errors.New("lead not found")
	ErrNoAttachment  = errors.New("lead has no attachment")
)

type Notifier interface {
	SendLeadNotification(ctx context.Context, lead Lead) (string, error)
	SendLeadConfirmation(ctx context.Context, lead Lead) (string, error)
}

// Service receives wizard submissions and serves the admin lead views.
type Service struct {
	repo     Repository
	store    AttachmentStore
	notifier Notifier
	location *time.Location
	delay    time.Duration
	log      *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, store AttachmentStore, notifier Notifier, location *time.Location, delay time.Duration, log *slog.Logger) *Service {
	if location == nil {
		location = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:     repo,
		store:    store,
		notifier: notifier,
		location: location,
		delay:    delay,
		log:      log,
		now:      time.Now,
	}
}

// Deliver waits out the intake round trip, stores the lead and sends the
// notification emails in the background. Cancelling ctx does not abandon a
// submission.
func (s *Service) Deliver(ctx context.Context, sub lead.Submission) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	created := fromSubmission(primitive.NewObjectID().Hex(), sub, s.now().In(s.location))
	if err := s.repo.Create(storeCtx, created); err != nil {
		return err
	}

	s.log.Info("intake deliver: stored",
		slog.String("lead_id", created.ID),
		slog.String("project_type", created.ProjectType),
	)
	go s.notify(created)
	return nil
}

func (s *Service) notify(created Lead) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	if err := s.NotifyNewLead(ctx, created); err != nil {
		s.log.Warn("intake deliver: notification failed",
			slog.String("lead_id", created.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.NotifyLeadConfirmation(ctx, created); err != nil {
		s.log.Warn("intake deliver: visitor confirmation failed",
			slog.String("lead_id", created.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) NotifyNewLead(ctx context.Context, l Lead) error {
	if s.notifier == nil {
		return nil
	}
	_, err := s.notifier.SendLeadNotification(ctx, l)
	return err
}

func (s *Service) NotifyLeadConfirmation(ctx context.Context, l Lead) error {
	if s.notifier == nil || strings.TrimSpace(l.Email) == "" {
		return nil
	}
	_, err := s.notifier.SendLeadConfirmation(ctx, l)
	return err
}

func (s *Service) ListAdmin(ctx context.Context, filter ListFilter, limit, offset int64) ([]Lead, int64, error) {
	filter.Status = strings.ToLower(strings.TrimSpace(filter.Status))
	filter.ProjectType = strings.TrimSpace(filter.ProjectType)

	if filter.Status != "" && !IsValidStatus(filter.Status) {
		return nil, 0, ErrInvalidStatus
	}

	items, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) GetAdminByID(ctx context.Context, id string) (Lead, error) {
	l, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, err
	}
	return l, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id, status string) (Lead, error) {
	id = strings.TrimSpace(id)
	status = strings.ToLower(strings.TrimSpace(status))
	if !IsValidStatus(status) {
		return Lead{}, ErrInvalidStatus
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status, s.now().In(s.location))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, err
	}
	return updated, nil
}

// OpenAttachment streams the file stored with a lead. The caller closes the reader.
func (s *Service) OpenAttachment(ctx context.Context, id string) (io.ReadCloser, lead.Attachment, error) {
	l, err := s.GetAdminByID(ctx, id)
	if err != nil {
		return nil, lead.Attachment{}, err
	}
	if l.Attachment == nil || s.store == nil {
		return nil, lead.Attachment{}, ErrNoAttachment
	}
	return s.store.Open(ctx, l.Attachment.ID)
}
