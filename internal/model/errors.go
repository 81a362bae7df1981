package model

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when a referenced order, payment, shipment, user
// or product does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) StatusCode() int { return 404 }

// InvalidTransitionError is returned when a status change is not permitted by
// the state machine. The stored status is left unchanged.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) StatusCode() int { return 400 }

// InvalidStateError is returned when an operation is not permitted in the
// aggregate's current state, e.g. deleting a shipped order.
type InvalidStateError struct {
	Message string
}

func (e *InvalidStateError) Error() string { return e.Message }

func (e *InvalidStateError) StatusCode() int { return 400 }

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
