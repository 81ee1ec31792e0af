package services

import (
	"errors"
	"sort"
	"strings"
)

// ServiceError is a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string { return e.Message }

var (
	ErrSessionNotFound    = errors.New("checkout session not found")
	ErrCheckoutInProgress = errors.New("checkout is already being submitted")
	ErrCheckoutCompleted  = errors.New("checkout is already completed")
	ErrIllegalTransition  = errors.New("illegal checkout state transition")
	ErrUnknownLocation    = errors.New("delivery location is not available")
)

// ValidationErrors maps a form field to a human-readable message. An empty
// map means the form is valid.
type ValidationErrors map[string]string

func (e ValidationErrors) Valid() bool { return len(e) == 0 }

func (e ValidationErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
