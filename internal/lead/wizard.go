package lead

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Step int

const (
	StepProjectDetails Step = 1
	StepContactInfo    Step = 2
	StepReview         Step = 3
)

func (s Step) Title() string {
	switch s {
	case StepProjectDetails:
		return "Project Details"
	case StepContactInfo:
		return "Contact Info"
	case StepReview:
		return "Review & Submit"
	default:
		return ""
	}
}

// Deliverer hands a finished submission to the intake endpoint.
type Deliverer interface {
	Deliver(ctx context.Context, sub Submission) error
}

// Wizard is the three-step lead form. It is not safe for concurrent use;
// callers serialise access per visitor.
type Wizard struct {
	Step              Step           `json:"step"`
	Draft             Draft          `json:"draft"`
	Touched           map[Field]bool `json:"touched"`
	Submitting        bool           `json:"submitting"`
	SubmitToken       string         `json:"submitToken,omitempty"`
	ProjectTypeLocked bool           `json:"projectTypeLocked"`
}

func NewWizard() *Wizard {
	w := &Wizard{}
	w.Reset()
	return w
}

// Reset discards the draft and returns to the first step.
func (w *Wizard) Reset() {
	w.Step = StepProjectDetails
	w.Draft = NewDraft()
	w.Touched = map[Field]bool{}
	w.Submitting = false
	w.SubmitToken = ""
	w.ProjectTypeLocked = false
}

// Prefill fixes the project type chosen outside the wizard and records an
// informational budget figure. An empty projectType leaves the selector editable.
func (w *Wizard) Prefill(projectType string, estimatedBudget int) {
	projectType = strings.TrimSpace(projectType)
	w.Draft.ProjectType = projectType
	w.ProjectTypeLocked = projectType != ""
	if estimatedBudget > 0 {
		w.Draft.EstimatedBudget = estimatedBudget
	}
}

func (w *Wizard) Continue() error {
	if w.Step != StepProjectDetails {
		return ErrInvalidTransition
	}
	w.Step = StepContactInfo
	return nil
}

func (w *Wizard) Review() error {
	if w.Step != StepContactInfo {
		return ErrInvalidTransition
	}
	w.Step = StepReview
	return nil
}

func (w *Wizard) Back() error {
	switch w.Step {
	case StepContactInfo:
		w.Step = StepProjectDetails
	case StepReview:
		w.Step = StepContactInfo
	default:
		return ErrInvalidTransition
	}
	return nil
}

func fieldStep(f Field) (Step, bool) {
	switch f {
	case FieldProjectType, FieldBudget, FieldTimeline:
		return StepProjectDetails, true
	case FieldName, FieldEmail, FieldPhone, FieldMessage:
		return StepContactInfo, true
	default:
		return 0, false
	}
}

// IsKnownField reports whether f is one of the wizard's editable fields.
func IsKnownField(f Field) bool {
	_, ok := fieldStep(f)
	return ok
}

// SetField stores user input for one field and marks it touched.
func (w *Wizard) SetField(f Field, value string) error {
	step, ok := fieldStep(f)
	if !ok {
		return ErrUnknownField
	}
	if step != w.Step {
		return ErrFieldNotOnStep
	}

	switch f {
	case FieldName:
		w.Draft.Name = value
	case FieldEmail:
		w.Draft.Email = value
	case FieldPhone:
		w.Draft.Phone = FormatPhone(value)
	case FieldMessage:
		w.Draft.Message = value
	case FieldBudget:
		budget, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || !IsValidBudget(budget) {
			return ErrInvalidValue
		}
		w.Draft.Budget = budget
	case FieldTimeline:
		if !IsValidTimeline(value) {
			return ErrInvalidValue
		}
		w.Draft.Timeline = Timeline(value)
	case FieldProjectType:
		if w.ProjectTypeLocked {
			return ErrFieldLocked
		}
		if !isListedProjectType(value) {
			return ErrInvalidValue
		}
		if value == GeneralProjectType {
			value = ""
		}
		w.Draft.ProjectType = value
	}

	if w.Touched == nil {
		w.Touched = map[Field]bool{}
	}
	w.Touched[f] = true
	return nil
}

func isListedProjectType(value string) bool {
	for _, pt := range ProjectTypes {
		if pt == value {
			return true
		}
	}
	return false
}

// FieldErrors returns the inline messages of touched fields that are currently invalid.
func (w *Wizard) FieldErrors() map[Field]string {
	errs := map[Field]string{}
	if w.Touched[FieldName] && !ValidName(w.Draft.Name) {
		errs[FieldName] = msgNameRequired
	}
	if w.Touched[FieldEmail] && !ValidEmail(w.Draft.Email) {
		errs[FieldEmail] = msgEmailRequired
	}
	if w.Touched[FieldPhone] && !ValidPhone(w.Draft.Phone) {
		errs[FieldPhone] = msgPhoneRequired
	}
	return errs
}

func CheckAttachmentSize(size int64) error {
	if size > MaxAttachmentBytes {
		return ErrAttachmentTooLarge
	}
	return nil
}

// Attach records a stored file for the submission. Oversized files are
// refused and any previous attachment is kept.
func (w *Wizard) Attach(att Attachment) error {
	if w.Step != StepContactInfo {
		return ErrFieldNotOnStep
	}
	if err := CheckAttachmentSize(att.Size); err != nil {
		return err
	}
	w.Draft.Attachment = &att
	return nil
}

func (w *Wizard) Detach() error {
	if w.Step != StepContactInfo {
		return ErrFieldNotOnStep
	}
	w.Draft.Attachment = nil
	return nil
}

// BeginSubmit validates the draft and, on success, marks the wizard as
// submitting and returns the payload to deliver.
func (w *Wizard) BeginSubmit(now time.Time) (Submission, error) {
	if w.Step != StepReview {
		return Submission{}, ErrInvalidTransition
	}
	if w.Submitting {
		return Submission{}, ErrSubmitInProgress
	}
	if verr := validateDraft(w.Draft); verr != nil {
		if w.Touched == nil {
			w.Touched = map[Field]bool{}
		}
		w.Touched[verr.Field] = true
		return Submission{}, verr
	}

	w.Submitting = true
	w.SubmitToken = uuid.NewString()
	sub := BuildSubmission(w.Draft, now)
	sub.Token = w.SubmitToken
	return sub, nil
}

// Owns reports whether sub is the submission currently in flight.
func (w *Wizard) Owns(sub Submission) bool {
	return w.Submitting && sub.Token != "" && sub.Token == w.SubmitToken
}

// FinishSubmit records the delivery outcome. Success resets the wizard;
// failure keeps the draft and returns a *SubmissionFailure.
func (w *Wizard) FinishSubmit(deliveryErr error) error {
	w.Submitting = false
	w.SubmitToken = ""
	if deliveryErr != nil {
		return &SubmissionFailure{Err: deliveryErr}
	}
	w.Reset()
	return nil
}

func (w *Wizard) Submit(ctx context.Context, d Deliverer, now time.Time) error {
	sub, err := w.BeginSubmit(now)
	if err != nil {
		return err
	}
	return w.FinishSubmit(d.Deliver(ctx, sub))
}

func BuildSubmission(d Draft, now time.Time) Submission {
	return Submission{
		Name:            strings.TrimSpace(d.Name),
		Email:           strings.TrimSpace(d.Email),
		Phone:           strings.TrimSpace(d.Phone),
		Message:         strings.TrimSpace(d.Message),
		ProjectType:     d.DisplayProjectType(),
		Budget:          FormatBudget(d.Budget),
		Timeline:        string(d.Timeline),
		Source:          SubmissionSource,
		Timestamp:       now.UTC(),
		EstimatedBudget: d.EstimatedBudget,
		Attachment:      d.Attachment,
	}
}
