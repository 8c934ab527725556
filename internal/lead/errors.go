package lead

import (
	"errors"
	"fmt"
)

const FallbackPhone = "(619) 555-0123"

var (
	ErrInvalidTransition  = errors.New("invalid wizard transition")
	ErrFieldNotOnStep     = errors.New("field is not editable on this step")
	ErrFieldLocked        = errors.New("field is locked")
	ErrUnknownField       = errors.New("unknown field")
	ErrInvalidValue       = errors.New("invalid field value")
	ErrSubmitInProgress   = errors.New("submission already in progress")
	ErrAttachmentTooLarge = errors.New("file size should be less than 10MB")
)

// ValidationError reports the first field that blocked a submission.
type ValidationError struct {
	Field   Field
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SubmissionFailure is returned when delivery fails. The draft is kept so the visitor can retry.
type SubmissionFailure struct {
	Err error
}

func (e *SubmissionFailure) Error() string {
	return "There was an error submitting your request. Please call us directly at " + FallbackPhone
}

func (e *SubmissionFailure) Unwrap() error {
	return e.Err
}
