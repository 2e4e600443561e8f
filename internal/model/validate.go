package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

type validator struct {
	errs ValidationErrors
}

func (v *validator) add(field, reason string) {
	v.errs = append(v.errs, ValidationError{Field: field, Reason: reason})
}

// presence fails on empty or whitespace-only values.
func (v *validator) presence(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		v.add(field, ReasonBlank)
		return false
	}
	return true
}

// length counts runes, not bytes. max <= 0 means unbounded.
func (v *validator) length(field, value string, min, max int) {
	n := utf8.RuneCountInString(value)
	switch {
	case n < min:
		v.add(field, ReasonTooShort)
	case max > 0 && n > max:
		v.add(field, ReasonTooLong)
	}
}

func (v *validator) inclusion(field string, ok bool) {
	if !ok {
		v.add(field, ReasonInclusion)
	}
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
