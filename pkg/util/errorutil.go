package util

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewDuplicateTicket(channelID string) error {
	return NewDomainError("DUPLICATE_TICKET", "a ticket already exists for this channel", http.StatusConflict,
		map[string]any{"channel_id": channelID})
}

func NewAlreadyClaimed(staffID string) error {
	return NewDomainError("ALREADY_CLAIMED", "this ticket is already claimed", http.StatusConflict,
		map[string]any{"claimed_by": staffID})
}

func NewAlreadyClosed() error {
	return NewDomainError("ALREADY_CLOSED", "this ticket is already closed", http.StatusConflict, nil)
}

func NewAlreadyLocked() error {
	return NewDomainError("ALREADY_LOCKED", "this ticket is already locked", http.StatusConflict, nil)
}

func NewUnknownCategory(key string) error {
	return NewDomainError("UNKNOWN_CATEGORY", fmt.Sprintf("unknown ticket category %q", key), http.StatusBadRequest,
		map[string]any{"category": key})
}

func NewTimedOut(message string) error {
	return NewDomainError("TIMED_OUT", message, http.StatusRequestTimeout, nil)
}

func NewStorageError(err error) error {
	return &DomainError{
		Code:       "STORAGE_ERROR",
		Message:    "storage operation failed",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// Code extracts the error code, or INTERNAL_ERROR for untyped errors.
func Code(err error) string {
	if err == nil {
		return ""
	}
	return ToDomainError(err).Code
}
