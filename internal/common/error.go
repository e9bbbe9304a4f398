package common

import (
	"errors"
	"fmt"
)

// Error pairs a sentinel kind with a message that is safe to show to
// clients. errors.Is(err, kind) holds for any *Error built from kind.
type Error struct {
	Kind    error
	Message string
}

// Errorf builds an *Error of the given kind with a formatted client message.
func Errorf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return e.Kind.Error() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// MessageOf returns the client message carried by err, or fallback when err
// does not wrap an *Error.
func MessageOf(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
