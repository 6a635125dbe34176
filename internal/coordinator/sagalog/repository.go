package sagalog

import (
	"context"
	"errors"
)

// Repository persists log entries. Save appends; it never updates a row.
type Repository interface {
	Save(ctx context.Context, entry *SagaLog) error
}

// Reader serves the operator-facing queries. Both reads are scoped to owner:
// entries written for another owner are invisible.
type Reader interface {
	// GetLatest returns the current state of sagaID.
	GetLatest(ctx context.Context, owner, sagaID string) (*SagaLog, error)
	// ListLatestByStatus returns sagas whose most recent entry has status,
	// newest first, at most limit rows.
	ListLatestByStatus(ctx context.Context, owner string, status Status, limit int) ([]SagaLog, error)
}

// ErrNotFound is returned by GetLatest for an unknown saga id, or for one
// that belongs to a different owner.
var ErrNotFound = errors.New("sagalog: saga not found")
