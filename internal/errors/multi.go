package errors

import (
	"fmt"
	"strings"
)

// MultiErrors collects independent failures keyed by the unit of work that
// produced them, so one folder's sync failure never hides its siblings'.
type MultiErrors struct {
	Errors map[string][]ErrorInfo
}

type ErrorInfo struct {
	Message  string
	RawError error
}

func NewMultiErrors() *MultiErrors {
	return &MultiErrors{
		Errors: make(map[string][]ErrorInfo),
	}
}

func (e *MultiErrors) Add(key, message string, err error) {
	e.Errors[key] = append(e.Errors[key], ErrorInfo{
		Message:  message,
		RawError: err,
	})
}

func (e *MultiErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *MultiErrors) Error() string {
	var parts []string
	for key, errs := range e.Errors {
		for _, err := range errs {
			parts = append(parts, fmt.Sprintf("%s: %s", key, err.Message))
		}
	}
	return strings.Join(parts, " | ")
}
