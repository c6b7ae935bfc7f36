package auth

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"expense-client/internal/mockauth"
)

// MinNameLength is the shortest display name accepted at registration.
const MinNameLength = 2

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationError aggregates every problem found in submitted credentials.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "\n")
}

// ValidateCredentials returns every violation in the submitted form. The
// password length and the name are checked only for registrations.
func ValidateCredentials(reg mockauth.Registration, registration bool) []string {
	var errs []string

	switch {
	case strings.TrimSpace(reg.Email) == "":
		errs = append(errs, "email is required")
	case !emailPattern.MatchString(reg.Email):
		errs = append(errs, "email format is invalid")
	}

	switch {
	case reg.Password == "":
		errs = append(errs, "password is required")
	case registration && len(reg.Password) < mockauth.MinPasswordLength:
		errs = append(errs, fmt.Sprintf("password must be at least %d characters", mockauth.MinPasswordLength))
	}

	if registration {
		name := strings.TrimSpace(reg.Name)
		switch {
		case name == "":
			errs = append(errs, "name is required")
		case utf8.RuneCountInString(name) < MinNameLength:
			errs = append(errs, fmt.Sprintf("name must be at least %d characters", MinNameLength))
		}
	}

	return errs
}
