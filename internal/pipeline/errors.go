package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures. Consumers map kinds, never messages.
type Kind int

const (
	KindInternal Kind = iota
	KindInsufficientBalance
	KindPoolNotFound
	KindTokenNotInPool
	KindTokenNotFound
	KindQuote
	KindPriceImpactTooHigh
	KindAuthorizationFailed
	KindInvalidRequest
)

var kindNames = map[Kind]string{
	KindInternal:            "Internal",
	KindInsufficientBalance: "InsufficientBalance",
	KindPoolNotFound:        "PoolNotFound",
	KindTokenNotInPool:      "TokenNotInPool",
	KindTokenNotFound:       "TokenNotFound",
	KindQuote:               "QuoteError",
	KindPriceImpactTooHigh:  "PriceImpactTooHigh",
	KindAuthorizationFailed: "AuthorizationFailed",
	KindInvalidRequest:      "InvalidRequestShape",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a tagged pipeline failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds a tagged error with a formatted message.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags err with kind unless it already carries a tag.
func Wrap(kind Kind, err error, message string) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the tag of err, or KindInternal for untagged errors.
func KindOf(err error) Kind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return KindInternal
}
