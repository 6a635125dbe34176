// Package apperrors defines the failure kinds surfaced by checkout and
// analytics. Callers discriminate them with errors.As, never by message text.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind is a coarse classification used by transports to pick a response.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindStore
	KindPartialWrite
	KindAggregationRead
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindStore:
		return "STORE"
	case KindPartialWrite:
		return "PARTIAL_WRITE"
	case KindAggregationRead:
		return "AGGREGATION_READ"
	case KindNotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// ValidationError is malformed checkout or catalogue input. It never reaches the store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidation reports that field failed for reason.
func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// StoreError is a failed read or write against the store collaborator.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// PartialWriteError means the order row was persisted, its line items failed,
// and the compensating delete failed too. OrderID names the orphan.
type PartialWriteError struct {
	OrderID         string
	Cause           error
	CompensationErr error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("order %s left without line items: %v (compensation failed: %v)",
		e.OrderID, e.Cause, e.CompensationErr)
}

func (e *PartialWriteError) Unwrap() []error {
	return []error{e.Cause, e.CompensationErr}
}

// AggregationReadError is a failed analytics read. No partial report is
// returned alongside it.
type AggregationReadError struct {
	AccountID string
	Err       error
}

func (e *AggregationReadError) Error() string {
	return fmt.Sprintf("analytics read for account %s failed: %v", e.AccountID, e.Err)
}

func (e *AggregationReadError) Unwrap() error { return e.Err }

// NotFoundError is a catalogue entry that does not exist for the account.
// Entries owned by another account are reported the same way.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// KindOf classifies err. PartialWrite is checked before Store because a
// partial write wraps the underlying store failures.
func KindOf(err error) Kind {
	var (
		ve *ValidationError
		pw *PartialWriteError
		se *StoreError
		ae *AggregationReadError
		nf *NotFoundError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &pw):
		return KindPartialWrite
	case errors.As(err, &ae):
		return KindAggregationRead
	case errors.As(err, &nf):
		return KindNotFound
	case errors.As(err, &se):
		return KindStore
	default:
		return KindUnknown
	}
}
