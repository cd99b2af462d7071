package approval

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// StatusStore persists the approval status scalar per subject account. A
// missing record means pending. Writes are last-writer-wins upserts on the
// account key, the only write path being the transition endpoint.
type StatusStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*StatusRecord, bool, error)
	GetTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*StatusRecord, bool, error)
	Set(ctx context.Context, userID uuid.UUID, status Status, verifiedBy uuid.UUID) error
	SetTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, status Status, verifiedBy uuid.UUID) error
}

type statuses struct {
	db *bun.DB
}

var _ StatusStore = (*statuses)(nil)

// NewStatusStore returns a bun backed status store.
func NewStatusStore(db *bun.DB) StatusStore {
	return &statuses{db: db}
}

func (s *statuses) Get(ctx context.Context, userID uuid.UUID) (*StatusRecord, bool, error) {
	return s.GetTx(ctx, s.db, userID)
}

func (s *statuses) GetTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*StatusRecord, bool, error) {
	record := &StatusRecord{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return record, true, nil
}

func (s *statuses) Set(ctx context.Context, userID uuid.UUID, status Status, verifiedBy uuid.UUID) error {
	return s.SetTx(ctx, s.db, userID, status, verifiedBy)
}

func (s *statuses) SetTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, status Status, verifiedBy uuid.UUID) error {
	if !status.IsStored() {
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"status": status,
		})
	}

	now := time.Now()
	record := &StatusRecord{
		UserID:     userID,
		Status:     status,
		VerifiedBy: verifiedBy,
		UpdatedAt:  &now,
	}

	_, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (user_id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("verified_by = EXCLUDED.verified_by").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	return err
}
