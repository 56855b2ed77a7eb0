package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks manifest or config mistakes that no retry can fix.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks invalid input discovered at run time (bad position
	// literal, undefined template variable, missing text source).
	ErrValidation = errors.New("validation error")
	// ErrExternalService marks failures reported by a collaborator.
	ErrExternalService = errors.New("external service error")
	// ErrNotFound marks missing records or blobs.
	ErrNotFound = errors.New("not found")
	// ErrTimeout marks a bounded wait that expired.
	ErrTimeout = errors.New("timeout")
	// ErrTransient marks failures worth retrying at the task layer.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether the surrounding task scheduler should retry the
// run that produced err. Configuration and validation mistakes are permanent.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrValidation):
		return false
	default:
		return true
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
