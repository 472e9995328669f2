package core

import "fmt"

// Error codes for resource operations.
const (
	ErrCodeResourceNotFound        = "RESOURCE_NOT_FOUND"
	ErrCodeResourceAlreadyLocked   = "RESOURCE_ALREADY_LOCKED"
	ErrCodeResourceAlreadyUnlocked = "RESOURCE_ALREADY_UNLOCKED"
	ErrCodeInvalidLockToken        = "INVALID_LOCK_TOKEN"
	ErrCodeInvalidTTL              = "INVALID_TTL"
	ErrCodeBadRequest              = "BAD_REQUEST"
)

// Error codes for reservation operations.
const (
	ErrCodeInsufficientResources        = "INSUFFICIENT_RESOURCES"
	ErrCodeInvalidReservationTags       = "INVALID_RESERVATION_TAGS"
	ErrCodeReservationNotFound          = "RESERVATION_NOT_FOUND"
	ErrCodeReservationNotFulfilled      = "RESERVATION_NOT_FULFILLED"
	ErrCodeReservationClaimExpired      = "RESERVATION_CLAIM_EXPIRED"
	ErrCodeReservationCannotBeCancelled = "RESERVATION_CANNOT_BE_CANCELLED"
	ErrCodeResourceDescriptorEmpty      = "RESOURCE_DESCRIPTOR_EMPTY"
)

// Error carries a stable machine code, a human message and contextual
// details that end up in the API error payload.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a domain error with the given code, message and details.
func NewError(code, message string, details map[string]any) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

// WrapError attaches an underlying cause to a domain error.
func WrapError(code, message string, details map[string]any, err error) *Error {
	return &Error{Code: code, Message: message, Details: details, Err: err}
}
