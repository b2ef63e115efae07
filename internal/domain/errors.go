package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidName       = errors.New("invalid name")
	ErrReservedName      = errors.New("reserved name")
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrNotProvisioned    = errors.New("identity not provisioned")
	ErrClientClosed      = errors.New("messaging client closed")
)

type (
	DomainError struct {
		Code    string
		Message string
		Cause   error
		Details map[string]any
	}

	InvalidStateTransitionError struct {
		From string
		To   string
	}
)

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

func NewDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Details: make(map[string]any),
	}
}

func (e *DomainError) WithDetails(key string, value any) *DomainError {
	e.Details[key] = value
	return e
}

func NewInvalidNameError(kind, name, reason string) *DomainError {
	return NewDomainError(
		"INVALID_NAME",
		fmt.Sprintf("invalid %s name %q: %s", kind, name, reason),
		ErrInvalidName,
	).WithDetails("kind", kind).WithDetails("name", name)
}

func NewReservedNameError(kind, name string) *DomainError {
	return NewDomainError(
		"RESERVED_NAME",
		fmt.Sprintf("%s name %q is reserved by the broker", kind, name),
		ErrReservedName,
	).WithDetails("kind", kind).WithDetails("name", name)
}

func NewMalformedEnvelopeError(raw, reason string) *DomainError {
	return NewDomainError(
		"MALFORMED_ENVELOPE",
		fmt.Sprintf("cannot decode %q: %s", raw, reason),
		ErrMalformedEnvelope,
	).WithDetails("raw", raw)
}

func NewNotProvisionedError(identity string, cause error) *DomainError {
	return NewDomainError(
		"NOT_PROVISIONED",
		fmt.Sprintf("identity %q could not be provisioned", identity),
		errors.Join(ErrNotProvisioned, cause),
	).WithDetails("identity", identity)
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}
