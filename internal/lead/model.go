package lead

import "time"

type Timeline string

const (
	TimelineASAP         Timeline = "ASAP"
	Timeline1To3Months   Timeline = "1-3 months"
	Timeline3To6Months   Timeline = "3-6 months"
	Timeline6To12Months  Timeline = "6-12 months"
	TimelinePlanningOnly Timeline = "Planning only"
)

var timelines = []Timeline{
	TimelineASAP,
	Timeline1To3Months,
	Timeline3To6Months,
	Timeline6To12Months,
	TimelinePlanningOnly,
}

func Timelines() []Timeline {
	out := make([]Timeline, len(timelines))
	copy(out, timelines)
	return out
}

func IsValidTimeline(value string) bool {
	for _, t := range timelines {
		if string(t) == value {
			return true
		}
	}
	return false
}

const (
	BudgetMin     = 10000
	BudgetMax     = 500000
	BudgetStep    = 10000
	DefaultBudget = 50000

	DefaultTimeline    = Timeline3To6Months
	GeneralProjectType = "General Inquiry"
	SubmissionSource   = "Website Contact Form"
	SuccessMessage     = "Thank you! We've received your request. Our team will contact you within 24 hours."

	MaxAttachmentBytes int64 = 10 * 1024 * 1024
)

// ProjectTypes lists the options of the project-type selector.
var ProjectTypes = []string{
	GeneralProjectType,
	"Custom Home Building",
	"Home Renovations",
	"Microcement Finishes",
	"Home Additions",
	"Design & Planning",
}

func IsValidBudget(budget int) bool {
	return budget >= BudgetMin && budget <= BudgetMax && budget%BudgetStep == 0
}

type Attachment struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size"`
}

type Draft struct {
	Name            string      `json:"name"`
	Email           string      `json:"email"`
	Phone           string      `json:"phone"`
	Message         string      `json:"message"`
	Budget          int         `json:"budget"`
	Timeline        Timeline    `json:"timeline"`
	ProjectType     string      `json:"projectType"`
	EstimatedBudget int         `json:"estimatedBudget,omitempty"`
	Attachment      *Attachment `json:"attachment,omitempty"`
}

func NewDraft() Draft {
	return Draft{
		Budget:   DefaultBudget,
		Timeline: DefaultTimeline,
	}
}

// DisplayProjectType is the project type shown on the review step and sent with the submission.
func (d Draft) DisplayProjectType() string {
	if d.ProjectType == "" {
		return GeneralProjectType
	}
	return d.ProjectType
}

// Submission is the payload handed to the intake collaborator.
type Submission struct {
	Name            string      `json:"name"`
	Email           string      `json:"email"`
	Phone           string      `json:"phone"`
	Message         string      `json:"message"`
	ProjectType     string      `json:"projectType"`
	Budget          string      `json:"budget"`
	Timeline        string      `json:"timeline"`
	Source          string      `json:"source"`
	Timestamp       time.Time   `json:"timestamp"`
	EstimatedBudget int         `json:"estimatedBudget,omitempty"`
	Attachment      *Attachment `json:"attachment,omitempty"`

	// Token ties the submission to the wizard run that began it.
	Token string `json:"-"`
}
