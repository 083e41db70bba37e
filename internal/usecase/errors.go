package usecase

import (
	"errors"
	"fmt"

	"review-catalog/internal/data/repository"
	"review-catalog/internal/policy"
	"review-catalog/pkg/utils"

	"github.com/google/uuid"
)

// Error kinds returned by every service. Handlers map them to status codes
// with errors.Is; anything else is an internal failure.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidCredential = errors.New("invalid credential")
)

// FieldError is an error of a given kind with per-field messages keyed by
// the request's json field names.
type FieldError struct {
	Kind   error
	Fields map[string]string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, utils.FormatValidationErrors(e.Fields))
}

func (e *FieldError) Unwrap() error {
	return e.Kind
}

func fieldError(kind error, field, message string) error {
	return &FieldError{Kind: kind, Fields: map[string]string{field: message}}
}

// validate runs the struct tags of req.
func validate(req any) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return &FieldError{Kind: ErrValidation, Fields: errs}
	}
	return nil
}

func notFound(what string, id any) error {
	return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
}

// authorize turns a policy decision into ErrPermissionDenied.
func authorize(actor policy.Actor, resource policy.Resource, action policy.Action, owner *uuid.UUID) error {
	if policy.Decide(actor, resource, action, owner) == policy.Deny {
		return fmt.Errorf("%s %s as %s: %w", action, resource, actor.Role, ErrPermissionDenied)
	}
	return nil
}

// mapRepoErr translates repository sentinels into service kinds.
func mapRepoErr(err error, field, conflictMessage string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrDuplicate):
		return &FieldError{Kind: ErrConflict, Fields: map[string]string{field: conflictMessage}}
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

// isKnown reports whether err carries one of the service error kinds.
func isKnown(err error) bool {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrPermissionDenied, ErrInvalidCredential} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
