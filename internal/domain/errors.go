package domain

import (
	"errors"
	"fmt"
	"strings"
)

type ErrCode string

const (
	CodeValidation ErrCode = "validation_error"
	CodeNotFound   ErrCode = "not_found"
	CodeConflict   ErrCode = "conflict"
	CodeCapacity   ErrCode = "capacity_exceeded"
	CodeForbidden  ErrCode = "forbidden"
)

// AppError is the only error type the transport layer turns into a non-500 response.
// Meta carries the offending field or date so clients can point at it.
type AppError struct {
	Code    ErrCode
	Message string
	Meta    map[string]string
}

func (e *AppError) Error() string {
	if len(e.Meta) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Meta)
}

func ErrValidation(msg string) error { return &AppError{Code: CodeValidation, Message: msg} }
func ErrValidationField(field, msg string) error {
	return &AppError{Code: CodeValidation, Message: msg, Meta: map[string]string{"field": field}}
}
func ErrValidationMeta(msg string, meta map[string]string) error {
	return &AppError{Code: CodeValidation, Message: msg, Meta: meta}
}
func ErrNotFound(msg string) error  { return &AppError{Code: CodeNotFound, Message: msg} }
func ErrForbidden(msg string) error { return &AppError{Code: CodeForbidden, Message: msg} }
func ErrConflict(field, msg string) error {
	return &AppError{Code: CodeConflict, Message: msg, Meta: map[string]string{"field": field}}
}

// ErrCapacity reports every requested date that has no remaining slot.
// The message names the first one; meta.dates lists all of them.
func ErrCapacity(dates ...Date) error {
	if len(dates) == 0 {
		return &AppError{Code: CodeCapacity, Message: "quota exceeded"}
	}
	parts := make([]string, len(dates))
	for i, d := range dates {
		parts[i] = d.String()
	}
	return &AppError{
		Code:    CodeCapacity,
		Message: fmt.Sprintf("quota for %s is full", parts[0]),
		Meta:    map[string]string{"dates": strings.Join(parts, ",")},
	}
}

func ErrEventNotFound() error        { return ErrNotFound("event not found") }
func ErrRegistrationNotFound() error { return ErrNotFound("registration not found") }

// HasCode reports whether err (or anything it wraps) is an AppError with the given code.
func HasCode(err error, code ErrCode) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

func IsValidation(err error) bool { return HasCode(err, CodeValidation) }
func IsNotFound(err error) bool   { return HasCode(err, CodeNotFound) }
func IsConflict(err error) bool   { return HasCode(err, CodeConflict) }
func IsCapacity(err error) bool   { return HasCode(err, CodeCapacity) }
