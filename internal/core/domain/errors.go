package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEngagementNotFound = errors.New("engagement not found")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrVersionConflict    = errors.New("version conflict")
	ErrTemporary          = errors.New("temporary failure")
	ErrFileTooLarge       = errors.New("file too large")
	ErrCursorInvalid      = errors.New("sync cursor invalid")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
