package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-results/internal/models"
)

// GradeScaleRepository stores tenant grade bands.
type GradeScaleRepository struct {
	db *sqlx.DB
}

// NewGradeScaleRepository constructs the repository.
func NewGradeScaleRepository(db *sqlx.DB) *GradeScaleRepository {
	return &GradeScaleRepository{db: db}
}

const gradeScaleSelect = `SELECT id, tenant_id, grade_name, grade_point, min_percentage, max_percentage, description, is_passing, created_at
FROM grade_scales
WHERE tenant_id = $1
ORDER BY min_percentage DESC`

// ListByTenant returns the tenant grade scale ordered by min_percentage descending.
func (r *GradeScaleRepository) ListByTenant(ctx context.Context, q sqlx.ExtContext, tenantID string) (models.GradeScale, error) {
	var scale models.GradeScale
	if err := sqlx.SelectContext(ctx, q, &scale, gradeScaleSelect, tenantID); err != nil {
		return nil, fmt.Errorf("list grade scale: %w", err)
	}
	return scale, nil
}

// Create inserts a band.
func (r *GradeScaleRepository) Create(ctx context.Context, tx *sqlx.Tx, entry *models.GradeScaleEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO grade_scales (id, tenant_id, grade_name, grade_point, min_percentage, max_percentage, description, is_passing, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := tx.ExecContext(ctx, query, entry.ID, entry.TenantID, entry.GradeName, entry.GradePoint,
		entry.MinPercentage, entry.MaxPercentage, entry.Description, entry.IsPassing, entry.CreatedAt); err != nil {
		return fmt.Errorf("insert grade scale: %w", err)
	}
	return nil
}

// Delete removes a band owned by the tenant and reports whether a row was removed.
func (r *GradeScaleRepository) Delete(ctx context.Context, tenantID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM grade_scales WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return false, fmt.Errorf("delete grade scale: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete grade scale rows: %w", err)
	}
	return affected > 0, nil
}
