package store

import "errors"

// Sentinel errors
var (
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrParentNotFound  = errors.New("parent comment not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrNotAuthor       = errors.New("requester is not the author")
)

// ValidationError reports an input constraint violation. Validation always
// runs before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
