package model

import (
	"errors"
	"fmt"
	"strings"
)

// Validation reasons.
const (
	ReasonBlank         = "blank"
	ReasonTooShort      = "too_short"
	ReasonTooLong       = "too_long"
	ReasonInvalid       = "invalid"
	ReasonInclusion     = "inclusion"
	ReasonTaken         = "taken"
	ReasonNegative      = "greater_than_or_equal_to"
	ReasonDueDateInPast = "due_date_in_past"
	ReasonDueDateTooFar = "due_date_too_far"
	ReasonOwnerMember   = "owner"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserBanned         = errors.New("user is banned")
)

// ValidationError is a single field-level constraint violation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return e.Field + " " + e.Reason
}

// ValidationErrors collects every violation found by a Validate call.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether the list contains the given field/reason pair.
func (v ValidationErrors) Has(field, reason string) bool {
	for _, e := range v {
		if e.Field == field && e.Reason == reason {
			return true
		}
	}
	return false
}

// Err returns nil for an empty list so callers can `return v.Err()`.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// Invalid builds a one-element ValidationErrors.
func Invalid(field, reason string) error {
	return ValidationErrors{{Field: field, Reason: reason}}
}

// NotFoundError reports a missing referenced entity.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

// NotFound builds a NotFoundError keyed by any printable value.
func NotFound(entity string, key any) error {
	return &NotFoundError{Entity: entity, Key: fmt.Sprint(key)}
}

// ConstraintError reports a uniqueness or foreign-key conflict raised by the store,
// typically a lost race on numbering, positions or slugs.
type ConstraintError struct {
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint %s violated: %v", e.Constraint, e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsConstraint(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce)
}

// AsValidation extracts ValidationErrors from err.
func AsValidation(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
