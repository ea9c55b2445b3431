package service

import (
	"errors"
	"fmt"
)

var (
	ErrAnnouncementNotFound   = errors.New("announcement not found")
	ErrInvalidAnnouncementReq = errors.New("invalid announcement input")
	ErrNotificationNotFound   = errors.New("notification not found")
	ErrInvalidUserID          = errors.New("invalid user id")
)

// ValidationError describes a rejected field. It matches
// ErrInvalidAnnouncementReq under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidAnnouncementReq
}

// StorageError wraps a persistence failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func wrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// PartialFanoutError reports recipients whose notification write failed
// while the rest of the batch went through.
type PartialFanoutError struct {
	LinkURL string
	Failed  []string
	Total   int
	Err     error
}

func (e *PartialFanoutError) Error() string {
	return fmt.Sprintf("fan-out %s: %d of %d writes failed: %v", e.LinkURL, len(e.Failed), e.Total, e.Err)
}

func (e *PartialFanoutError) Unwrap() error {
	return e.Err
}
