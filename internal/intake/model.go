package intake

import (
	"time"

	"contractor-backend/internal/lead"
)

const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusQuoted    = "quoted"
	StatusWon       = "won"
	StatusLost      = "lost"
)

var validStatuses = map[string]struct{}{
	StatusNew:       {},
	StatusContacted: {},
	StatusQuoted:    {},
	StatusWon:       {},
	StatusLost:      {},
}

func IsValidStatus(value string) bool {
	_, ok := validStatuses[value]
	return ok
}

type AttachmentRef struct {
	ID          string `bson:"id" json:"id"`
	Name        string `bson:"name" json:"name"`
	ContentType string `bson:"content_type,omitempty" json:"content_type,omitempty"`
	Size        int64  `bson:"size" json:"size"`
}

// Lead is a delivered submission as stored for follow-up.
type Lead struct {
	ID              string         `bson:"_id,omitempty" json:"id"`
	Name            string         `bson:"name" json:"name"`
	Email           string         `bson:"email" json:"email"`
	Phone           string         `bson:"phone" json:"phone"`
	Message         string         `bson:"message,omitempty" json:"message,omitempty"`
	ProjectType     string         `bson:"project_type" json:"project_type"`
	Budget          string         `bson:"budget" json:"budget"`
	Timeline        string         `bson:"timeline" json:"timeline"`
	EstimatedBudget int            `bson:"estimated_budget,omitempty" json:"estimated_budget,omitempty"`
	Attachment      *AttachmentRef `bson:"attachment,omitempty" json:"attachment,omitempty"`
	Source          string         `bson:"source" json:"source"`
	Status          string         `bson:"status" json:"status"`
	SubmittedAt     time.Time      `bson:"submitted_at" json:"submitted_at"`
	CreatedAt       time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `bson:"updated_at" json:"updated_at"`
}

func fromSubmission(id string, sub lead.Submission, now time.Time) Lead {
	l := Lead{
		ID:              id,
		Name:            sub.Name,
		Email:           sub.Email,
		Phone:           sub.Phone,
		Message:         sub.Message,
		ProjectType:     sub.ProjectType,
		Budget:          sub.Budget,
		Timeline:        sub.Timeline,
		EstimatedBudget: sub.EstimatedBudget,
		Source:          sub.Source,
		Status:          StatusNew,
		SubmittedAt:     sub.Timestamp,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if sub.Attachment != nil {
		l.Attachment = &AttachmentRef{
			ID:          sub.Attachment.ID,
			Name:        sub.Attachment.Name,
			ContentType: sub.Attachment.ContentType,
			Size:        sub.Attachment.Size,
		}
	}
	return l
}

type AdminStatusUpdateRequest struct {
	Status string `json:"status" validate:"required,oneof=new contacted quoted won lost"`
}

type ListFilter struct {
	Status      string
	ProjectType string
}
