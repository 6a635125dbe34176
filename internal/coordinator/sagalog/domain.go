// Package sagalog is the durable audit trail of saga executions.
//
// Each state transition appends one row. The latest row per saga id is its
// current state, so operators can find sagas that stopped in
// COMPENSATION_FAILED and reconcile what they left behind. Rows carry the
// trace and span ids of the span active when they were written.
package sagalog

import "time"

// Status is the state a saga reached when an entry was written.
type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusStepDone     Status = "STEP_DONE"
	StatusCompleted    Status = "COMPLETED"
	StatusCompensating Status = "COMPENSATING"
	StatusFailed       Status = "FAILED"
	// StatusCompensationFailed means a step failed and at least one
	// compensation failed too; the saga left residue behind.
	StatusCompensationFailed Status = "COMPENSATION_FAILED"
)

// Valid reports whether s is one of the statuses above. The admin API uses it
// to reject unknown filters before they reach the database.
func (s Status) Valid() bool {
	switch s {
	case StatusStarted, StatusStepDone, StatusCompleted, StatusCompensating, StatusFailed, StatusCompensationFailed:
		return true
	}
	return false
}

// SagaLog is one row of the log.
type SagaLog struct {
	// SagaID is the business id the saga works on (the order id for checkouts).
	SagaID string

	// Owner is the tenant the saga ran for (the account id for checkouts).
	// Every read is scoped to one owner, so one account never sees another
	// account's order ids or failure messages.
	Owner string

	Status Status

	// CurrentStep is the step that just completed or failed.
	CurrentStep string

	// Payload is the JSON input of the saga, stored only on STARTED.
	Payload string

	// ErrorMessages is a JSON array of failure details.
	ErrorMessages string

	// TraceID and SpanID are the hex ids of the span that was active when
	// the entry was written; empty when tracing is off. They let an operator
	// jump from a stuck checkout straight to its trace.
	TraceID string
	SpanID  string

	UpdatedAt time.Time
}
