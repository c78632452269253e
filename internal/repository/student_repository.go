package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-results/internal/models"
)

// StudentRepository exposes the student roster reads the results engine depends on.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListActiveByClass returns the active students of a class in roll order.
func (r *StudentRepository) ListActiveByClass(ctx context.Context, q sqlx.ExtContext, tenantID, classID string) ([]models.Student, error) {
	const query = `SELECT id, tenant_id, class_id, full_name, roll_number, status
FROM students
WHERE tenant_id = $1 AND class_id = $2 AND status = $3
ORDER BY roll_number ASC NULLS LAST, full_name ASC, id ASC`
	var students []models.Student
	if err := sqlx.SelectContext(ctx, q, &students, query, tenantID, classID, models.StudentActive); err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}
	return students, nil
}

// CountActiveByClass counts the students eligible for mark entry in a class.
func (r *StudentRepository) CountActiveByClass(ctx context.Context, q sqlx.ExtContext, tenantID, classID string) (int, error) {
	const query = `SELECT COUNT(*) FROM students WHERE tenant_id = $1 AND class_id = $2 AND status = $3`
	var count int
	if err := sqlx.GetContext(ctx, q, &count, query, tenantID, classID, models.StudentActive); err != nil {
		return 0, fmt.Errorf("count active students: %w", err)
	}
	return count, nil
}

// FilterActiveInClass returns the subset of ids that are active students of the class.
func (r *StudentRepository) FilterActiveInClass(ctx context.Context, q sqlx.ExtContext, tenantID, classID string, studentIDs []string) (map[string]struct{}, error) {
	found := make(map[string]struct{}, len(studentIDs))
	if len(studentIDs) == 0 {
		return found, nil
	}
	query, args, err := sqlx.In(`SELECT id FROM students WHERE tenant_id = ? AND class_id = ? AND status = ? AND id IN (?)`,
		tenantID, classID, models.StudentActive, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("build student filter: %w", err)
	}
	var ids []string
	if err := sqlx.SelectContext(ctx, q, &ids, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("filter class students: %w", err)
	}
	for _, id := range ids {
		found[id] = struct{}{}
	}
	return found, nil
}
