// Package store persists verification submissions.
package store

import (
	"context"
	"time"

	"vouch/internal/verification/models"
)

// Store is the persistence contract for verification records.
//
// Error contract:
//   - CreatePending returns sentinel.ErrAlreadyPending when the requester
//     already has a pending submission. A terminal record is replaced.
//   - Get and ListPending return sentinel.ErrNotFound when no record exists.
//   - Decide returns sentinel.ErrNotFound when the requester has no record
//     and sentinel.ErrAlreadyDecided when the record is no longer pending.
//     At most one concurrent Decide call for a requester can succeed.
type Store interface {
	CreatePending(ctx context.Context, record *models.Record) error
	Get(ctx context.Context, requesterID string) (*models.Record, error)
	ListPending(ctx context.Context) ([]*models.Record, error)
	Decide(ctx context.Context, requesterID string, status models.Status, decidedBy, reason string, decidedAt time.Time) (*models.Record, error)
}
