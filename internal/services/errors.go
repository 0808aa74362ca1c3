// internal/services/errors.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/insurance-backend/internal/repository"
)

type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindInvalidTransition
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindUnexpected
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "unexpected"
	}
}

// Error is returned by every service operation that fails for a reason the
// caller can act on. Handlers map Kind onto an HTTP status.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func ErrValidation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func ErrInvalidTransition(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func ErrUnauthenticated(message string) error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

func ErrForbidden(format string, args ...interface{}) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func ErrNotFound(resource string) error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

func ErrConflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func ErrUnexpected(message string, err error) error {
	return &Error{Kind: KindUnexpected, Message: message, Err: err}
}

// KindOf reports the kind of err, KindUnexpected for foreign errors.
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindUnexpected
}

// storeError converts a repository error into a service error.
func storeError(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound(resource)
	case errors.Is(err, repository.ErrDuplicate):
		return &Error{Kind: KindConflict, Message: resource + " already exists", Err: err}
	case errors.Is(err, repository.ErrReferenced):
		return &Error{Kind: KindConflict, Message: resource + " is still in use", Err: err}
	case errors.Is(err, repository.ErrStaleObject):
		return &Error{Kind: KindConflict, Message: resource + " was modified concurrently, please retry", Err: err}
	default:
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return err
		}
		return ErrUnexpected("failed to access "+resource, err)
	}
}

const maxOptimisticAttempts = 3

// retryOnConflict runs fn again when it lost an optimistic-lock race. fn must
// re-read the record and re-check its guards on every attempt.
func retryOnConflict(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxOptimisticAttempts; attempt++ {
		err = fn()
		if !errors.Is(err, repository.ErrStaleObject) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logrus.WithField("attempt", attempt).Debug("Optimistic lock conflict, retrying")
	}
	return err
}
