package domain

import (
	"errors"
	"strings"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSelfDelete         = errors.New("cannot delete the signed-in member")
	ErrMemberNotFound     = errors.New("member not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrRetroNotFound      = errors.New("retrospective entry not found")
	ErrTeamExists         = errors.New("team already exists")
	ErrTeamNotEmpty       = errors.New("team still has members")
	ErrNotConfigured      = errors.New("tracker integration is not configured")
)

// ValidationError names the fields that failed validation. It matches
// ErrValidation under errors.Is.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid or missing fields: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Fields collects field-level problems; Err returns nil when none were added.
type Fields []string

func (f *Fields) Require(name, value string) {
	if strings.TrimSpace(value) == "" {
		*f = append(*f, name)
	}
}

func (f *Fields) Add(name string) {
	*f = append(*f, name)
}

func (f Fields) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: append([]string(nil), f...)}
}
