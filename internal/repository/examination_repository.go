package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-results/internal/models"
)

// ExaminationRepository reads examinations and their per-class subject configuration.
type ExaminationRepository struct {
	db *sqlx.DB
}

// NewExaminationRepository constructs the repository.
func NewExaminationRepository(db *sqlx.DB) *ExaminationRepository {
	return &ExaminationRepository{db: db}
}

// FindByID loads an examination scoped to the tenant. sql.ErrNoRows is wrapped when absent.
func (r *ExaminationRepository) FindByID(ctx context.Context, q sqlx.ExtContext, tenantID, id string) (*models.Examination, error) {
	const query = `SELECT id, tenant_id, name, total_marks, passing_marks, status, created_at, updated_at
FROM examinations WHERE id = $1 AND tenant_id = $2`
	var exam models.Examination
	if err := sqlx.GetContext(ctx, q, &exam, query, id, tenantID); err != nil {
		return nil, fmt.Errorf("get examination: %w", err)
	}
	return &exam, nil
}

const examSubjectColumns = `es.id, es.examination_id, es.class_id, es.subject_id, sub.name AS subject_name,
	es.theory_marks, es.practical_marks, es.internal_marks, es.total_marks, es.passing_marks,
	es.mark_entry_status, es.updated_at`

// ListSubjectsForClass returns the exam subjects configured for one class ordered by subject name.
func (r *ExaminationRepository) ListSubjectsForClass(ctx context.Context, q sqlx.ExtContext, examID, classID string) ([]models.ExamSubject, error) {
	query := `SELECT ` + examSubjectColumns + `
FROM exam_subjects es
JOIN subjects sub ON sub.id = es.subject_id
WHERE es.examination_id = $1 AND es.class_id = $2
ORDER BY sub.name ASC, es.id ASC`
	var subjects []models.ExamSubject
	if err := sqlx.SelectContext(ctx, q, &subjects, query, examID, classID); err != nil {
		return nil, fmt.Errorf("list exam subjects: %w", err)
	}
	return subjects, nil
}

// GetSubjectForUpdate locks the exam subject row for the remainder of the transaction.
func (r *ExaminationRepository) GetSubjectForUpdate(ctx context.Context, tx *sqlx.Tx, examID, examSubjectID string) (*models.ExamSubject, error) {
	query := `SELECT ` + examSubjectColumns + `
FROM exam_subjects es
JOIN subjects sub ON sub.id = es.subject_id
WHERE es.id = $1 AND es.examination_id = $2
FOR UPDATE OF es`
	var subject models.ExamSubject
	if err := tx.GetContext(ctx, &subject, query, examSubjectID, examID); err != nil {
		return nil, fmt.Errorf("lock exam subject: %w", err)
	}
	return &subject, nil
}

// UpdateSubjectStatus writes the recounted mark entry status.
func (r *ExaminationRepository) UpdateSubjectStatus(ctx context.Context, tx *sqlx.Tx, examSubjectID string, status models.MarkEntryStatus) error {
	const query = `UPDATE exam_subjects SET mark_entry_status = $1, updated_at = $2 WHERE id = $3`
	if _, err := tx.ExecContext(ctx, query, status, time.Now().UTC(), examSubjectID); err != nil {
		return fmt.Errorf("update exam subject status: %w", err)
	}
	return nil
}
