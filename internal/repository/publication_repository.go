package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-results/internal/models"
)

// PublicationRepository stores the examination-scoped publication record.
type PublicationRepository struct {
	db *sqlx.DB
}

// NewPublicationRepository constructs the repository.
func NewPublicationRepository(db *sqlx.DB) *PublicationRepository {
	return &PublicationRepository{db: db}
}

const publicationSelect = `SELECT id, examination_id, status, scheduled_date, published_date, published_by, created_at, updated_at
FROM result_publications WHERE examination_id = $1`

// GetByExamination returns the record or nil when none exists yet.
func (r *PublicationRepository) GetByExamination(ctx context.Context, q sqlx.ExtContext, examID string) (*models.Publication, error) {
	var pub models.Publication
	if err := sqlx.GetContext(ctx, q, &pub, publicationSelect, examID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get publication: %w", err)
	}
	return &pub, nil
}

// GetForUpdate locks the record for the transaction. It returns nil when none exists yet.
func (r *PublicationRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, examID string) (*models.Publication, error) {
	var pub models.Publication
	if err := tx.GetContext(ctx, &pub, publicationSelect+"\nFOR UPDATE", examID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock publication: %w", err)
	}
	return &pub, nil
}

// Upsert writes the record keyed by examination_id.
func (r *PublicationRepository) Upsert(ctx context.Context, tx *sqlx.Tx, pub *models.Publication) error {
	if pub.ID == "" {
		pub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	pub.UpdatedAt = now
	if pub.CreatedAt.IsZero() {
		pub.CreatedAt = now
	}

	const query = `INSERT INTO result_publications (id, examination_id, status, scheduled_date, published_date, published_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (examination_id) DO UPDATE SET
	status = EXCLUDED.status,
	scheduled_date = EXCLUDED.scheduled_date,
	published_date = EXCLUDED.published_date,
	published_by = EXCLUDED.published_by,
	updated_at = EXCLUDED.updated_at
RETURNING id, created_at`

	row := tx.QueryRowxContext(ctx, query, pub.ID, pub.ExaminationID, pub.Status, pub.ScheduledDate,
		pub.PublishedDate, pub.PublishedBy, pub.CreatedAt, pub.UpdatedAt)
	if err := row.Scan(&pub.ID, &pub.CreatedAt); err != nil {
		return fmt.Errorf("upsert publication: %w", err)
	}
	return nil
}
