// Package apperr defines the error taxonomy shared by the store, service and api layers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers
type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindValidation        Kind = "VALIDATION_ERROR"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindDuplicate         Kind = "DUPLICATE"
	KindServerFault       Kind = "SERVER_FAULT"
)

// Error is an application error with a kind and a caller-facing message
type Error struct {
	Kind    Kind
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

// NotFound reports a missing entity, e.g. NotFound("product", 12)
func NotFound(entity string, id any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %v not found", entity, id)}
}

// Validation reports a rejected input
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Duplicate reports a unique constraint collision
func Duplicate(message string, err error) *Error {
	return &Error{Kind: KindDuplicate, Message: message, Err: err}
}

// ServerFault wraps an unexpected failure. Message is for logs only.
func ServerFault(message string, err error) *Error {
	return &Error{Kind: KindServerFault, Message: message, Err: err}
}

// InsufficientStockError is returned when an invoice asks for more than is in stock
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available=%d, requested=%d",
		e.ProductName, e.Available, e.Requested)
}

// KindOf returns the kind of err, ServerFault for anything unclassified
func KindOf(err error) Kind {
	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		return KindInsufficientStock
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindServerFault
}

// IsNotFound reports whether err is a NotFound error
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
