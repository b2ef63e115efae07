package queue

import (
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	// ErrSupervisorClosed is returned by a Supervisor once Close has been called.
	ErrSupervisorClosed = errors.New("supervisor is closed")
	// ErrQueueNotFound is returned by a passive inspection of a queue that does not exist.
	ErrQueueNotFound = errors.New("queue not found")
	// ErrStreamInterrupted reports that the broker stopped a delivery stream.
	ErrStreamInterrupted = errors.New("delivery stream interrupted")
)

// ConnectionError reports that the broker could not be reached.
type ConnectionError struct {
	Op       string
	URL      string
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: broker unreachable after %d attempt(s): %v", e.Op, e.URL, e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// BrokerError reports a failed broker operation that is not a conflict. Retrying may succeed.
type BrokerError struct {
	Op       string
	Resource string
	Err      error
}

func (e *BrokerError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s %q: %v", e.Op, e.Resource, e.Err)
}

func (e *BrokerError) Unwrap() error {
	return e.Err
}

// ConflictError reports that a resource exists with attributes incompatible with the declaration.
type ConflictError struct {
	Kind     ResourceKind
	Resource string
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q exists with incompatible attributes: %v", e.Kind, e.Resource, e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// UnrecoverableConflictError reports that the delete-and-redeclare recovery of a conflict failed.
type UnrecoverableConflictError struct {
	Conflict    *ConflictError
	RecoveryErr error
}

func (e *UnrecoverableConflictError) Error() string {
	return fmt.Sprintf("recovering from conflict on %s %q failed: %v", e.Conflict.Kind, e.Conflict.Resource, e.RecoveryErr)
}

func (e *UnrecoverableConflictError) Unwrap() []error {
	return []error{e.Conflict, e.RecoveryErr}
}

// IsConnectionError reports whether err is or wraps a *ConnectionError.
func IsConnectionError(err error) bool {
	var target *ConnectionError

	return errors.As(err, &target)
}

// IsTransient reports whether err is or wraps a *BrokerError.
func IsTransient(err error) bool {
	var target *BrokerError

	return errors.As(err, &target)
}

// IsConflict reports whether err is or wraps a *ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError

	return errors.As(err, &target)
}

// IsUnrecoverable reports whether err is or wraps an *UnrecoverableConflictError.
func IsUnrecoverable(err error) bool {
	var target *UnrecoverableConflictError

	return errors.As(err, &target)
}

func hasReplyCode(err error, code int) bool {
	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) {
		return amqpErr.Code == code
	}

	return false
}

func isPreconditionFailed(err error) bool {
	return hasReplyCode(err, amqp.PreconditionFailed)
}

func isNotFound(err error) bool {
	return hasReplyCode(err, amqp.NotFound)
}

// brokerError wraps err as a *BrokerError unless it already describes a connection failure.
func brokerError(op, resource string, err error) error {
	if err == nil {
		return nil
	}

	if IsConnectionError(err) || errors.Is(err, ErrSupervisorClosed) {
		return err
	}

	return &BrokerError{Op: op, Resource: resource, Err: err}
}
