package domain

import (
	"errors"
	"fmt"
)

// ErrorKind tells the caller of an ingestion run what went wrong and
// whether retrying makes sense.
type ErrorKind string

const (
	KindUnauthorized            ErrorKind = "Unauthorized"
	KindNoLinkedAccount         ErrorKind = "NoLinkedAccount"
	KindCredentialRefreshFailed ErrorKind = "CredentialRefreshFailed"
	KindProviderRequestFailed   ErrorKind = "ProviderRequestFailed"
	KindMessageParseFailed      ErrorKind = "MessageParseFailed"
	KindCanceled                ErrorKind = "Canceled"
	KindInternal                ErrorKind = "Internal"
)

type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the human-readable reason of the first *Error in err's
// chain, falling back to err.Error().
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
