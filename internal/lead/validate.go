package lead

import (
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
)

type Field string

const (
	FieldName        Field = "name"
	FieldEmail       Field = "email"
	FieldPhone       Field = "phone"
	FieldMessage     Field = "message"
	FieldBudget      Field = "budget"
	FieldTimeline    Field = "timeline"
	FieldProjectType Field = "projectType"
)

const (
	msgNameRequired  = "Name is required"
	msgEmailRequired = "Valid email is required"
	msgPhoneRequired = "Valid phone number is required"
)

var (
	emailPattern = regexp.MustCompile(`^[\w.-]+@([\w-]+\.)+[\w-]{2,4}$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{0,14}$`)
	nonDigits    = regexp.MustCompile(`\D`)
)

func ValidName(name string) bool {
	return strings.TrimSpace(name) != ""
}

func ValidEmail(email string) bool {
	if strings.TrimSpace(email) == "" {
		return false
	}
	return emailPattern.MatchString(email)
}

// ValidPhone checks the digits of phone against an international-style pattern.
// Separators and mask characters are ignored.
func ValidPhone(phone string) bool {
	if strings.TrimSpace(phone) == "" {
		return false
	}
	return phonePattern.MatchString(digitsOnly(phone))
}

// FormatPhone renders raw input as a US-style display mask.
// Digits past the tenth are dropped.
func FormatPhone(value string) string {
	digits := digitsOnly(value)
	switch {
	case len(digits) <= 3:
		return digits
	case len(digits) <= 6:
		return "(" + digits[:3] + ") " + digits[3:]
	}
	if len(digits) > 10 {
		digits = digits[:10]
	}
	return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
}

// FormatBudget renders a whole-dollar amount with thousands separators, e.g. "$50,000".
func FormatBudget(amount int) string {
	return "$" + humanize.Comma(int64(amount))
}

func digitsOnly(value string) string {
	return nonDigits.ReplaceAllString(value, "")
}

// validateDraft applies the submit-time rules in order and stops at the first failure.
func validateDraft(d Draft) *ValidationError {
	if !ValidName(d.Name) {
		return &ValidationError{Field: FieldName, Message: msgNameRequired}
	}
	if !ValidEmail(d.Email) {
		return &ValidationError{Field: FieldEmail, Message: msgEmailRequired}
	}
	if !ValidPhone(d.Phone) {
		return &ValidationError{Field: FieldPhone, Message: msgPhoneRequired}
	}
	return nil
}
