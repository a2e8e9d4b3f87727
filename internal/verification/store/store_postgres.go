package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vouch/internal/sentinel"
	"vouch/internal/verification/models"
)

// PostgresStore persists verification records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed verification store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreatePending inserts a pending record or replaces a terminal one.
// The conditional upsert refuses to touch a row that is still pending,
// which closes the check-then-act race between concurrent submissions.
func (s *PostgresStore) CreatePending(ctx context.Context, record *models.Record) error {
	if record == nil {
		return fmt.Errorf("verification record is required")
	}
	query := `
		INSERT INTO verifications
			(requester_id, submission_id, age, introduction, about, goal, referral, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8)
		ON CONFLICT (requester_id) DO UPDATE
		SET submission_id = EXCLUDED.submission_id,
			age = EXCLUDED.age,
			introduction = EXCLUDED.introduction,
			about = EXCLUDED.about,
			goal = EXCLUDED.goal,
			referral = EXCLUDED.referral,
			status = 'pending',
			submitted_at = EXCLUDED.submitted_at,
			decided_by = NULL,
			decision_reason = NULL,
			decided_at = NULL
		WHERE verifications.status <> 'pending'
		RETURNING submission_id
	`
	var storedID string
	err := s.db.QueryRowContext(ctx, query,
		record.RequesterID,
		record.SubmissionID,
		record.Form.Age,
		record.Form.Introduction,
		record.Form.About,
		record.Form.Goal,
		record.Form.Referral,
		record.SubmittedAt,
	).Scan(&storedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrAlreadyPending
		}
		return fmt.Errorf("create pending verification: %w", err)
	}
	record.Status = models.StatusPending
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, requesterID string) (*models.Record, error) {
	query := `
		SELECT requester_id, submission_id, age, introduction, about, goal, referral,
			status, submitted_at, decided_by, decision_reason, decided_at
		FROM verifications
		WHERE requester_id = $1
	`
	record, err := scanVerification(s.db.QueryRowContext(ctx, query, requesterID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get verification: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]*models.Record, error) {
	query := `
		SELECT requester_id, submission_id, age, introduction, about, goal, referral,
			status, submitted_at, decided_by, decision_reason, decided_at
		FROM verifications
		WHERE status = 'pending'
		ORDER BY submitted_at
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pending verifications: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		record, err := scanVerification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verification: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verifications: %w", err)
	}
	return records, nil
}

// Decide records a terminal decision. The status guard in the UPDATE means
// exactly one of any number of racing reviewers wins; everyone else gets
// sentinel.ErrAlreadyDecided.
func (s *PostgresStore) Decide(ctx context.Context, requesterID string, status models.Status, decidedBy, reason string, decidedAt time.Time) (*models.Record, error) {
	query := `
		UPDATE verifications
		SET status = $2, decided_by = $3, decision_reason = $4, decided_at = $5
		WHERE requester_id = $1 AND status = 'pending'
		RETURNING requester_id, submission_id, age, introduction, about, goal, referral,
			status, submitted_at, decided_by, decision_reason, decided_at
	`
	record, err := scanVerification(s.db.QueryRowContext(ctx, query,
		requesterID, string(status), decidedBy, reason, decidedAt,
	))
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("decide verification: %w", err)
	}

	// No pending row was claimed. Distinguish a missing record from a
	// decision that another reviewer already committed.
	if _, err := s.Get(ctx, requesterID); err != nil {
		return nil, err
	}
	return nil, sentinel.ErrAlreadyDecided
}

type verificationRow interface {
	Scan(dest ...any) error
}

func scanVerification(row verificationRow) (*models.Record, error) {
	var record models.Record
	var status string
	var decidedBy sql.NullString
	var reason sql.NullString
	var decidedAt sql.NullTime
	err := row.Scan(
		&record.RequesterID,
		&record.SubmissionID,
		&record.Form.Age,
		&record.Form.Introduction,
		&record.Form.About,
		&record.Form.Goal,
		&record.Form.Referral,
		&status,
		&record.SubmittedAt,
		&decidedBy,
		&reason,
		&decidedAt,
	)
	if err != nil {
		return nil, err
	}
	record.Status = models.Status(status)
	if decidedBy.Valid {
		record.DecidedBy = decidedBy.String
	}
	if reason.Valid {
		record.DecisionReason = reason.String
	}
	if decidedAt.Valid {
		record.DecidedAt = &decidedAt.Time
	}
	return &record, nil
}
