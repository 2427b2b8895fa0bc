package internal

import (
	"errors"
	"fmt"
)

var ErrLinkNotFound = errors.New("link not found")
var ErrLinkExpired = errors.New("link has expired")
var ErrLinkInactive = errors.New("link is no longer active")
var ErrSlugTaken = errors.New("slug already in use")
var ErrPageNotFound = errors.New("link page not found")
var ErrUsernameTaken = errors.New("username already taken by another user")
var ErrAgentExists = errors.New("agent already assigned")
var ErrNotOwner = errors.New("not the owner of this link")
var ErrQRCodeFailed = errors.New("failed to generate QR code")

// ValidationError reports caller-correctable input problems.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error in field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
