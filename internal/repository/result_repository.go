package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-results/internal/models"
)

// ResultRepository persists computed results.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository constructs the repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Upsert writes the result keyed by (examination_id, student_id), overwriting every derived column.
// Publication flags and created_at survive a recompute.
func (r *ResultRepository) Upsert(ctx context.Context, tx *sqlx.Tx, result *models.Result) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	result.GeneratedAt = now
	result.UpdatedAt = now
	if result.CreatedAt.IsZero() {
		result.CreatedAt = now
	}

	const query = `INSERT INTO results (
	id, examination_id, student_id, class_id, total_marks, marks_obtained, percentage, grade, grade_point,
	is_passed, total_subjects, subjects_appeared, subjects_passed, subjects_failed,
	is_published, generated_at, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, FALSE, $15, $16, $17)
ON CONFLICT (examination_id, student_id) DO UPDATE SET
	class_id = EXCLUDED.class_id,
	total_marks = EXCLUDED.total_marks,
	marks_obtained = EXCLUDED.marks_obtained,
	percentage = EXCLUDED.percentage,
	grade = EXCLUDED.grade,
	grade_point = EXCLUDED.grade_point,
	is_passed = EXCLUDED.is_passed,
	total_subjects = EXCLUDED.total_subjects,
	subjects_appeared = EXCLUDED.subjects_appeared,
	subjects_passed = EXCLUDED.subjects_passed,
	subjects_failed = EXCLUDED.subjects_failed,
	generated_at = EXCLUDED.generated_at,
	updated_at = EXCLUDED.updated_at
RETURNING id, created_at, is_published, published_at`

	row := tx.QueryRowxContext(ctx, query,
		result.ID, result.ExaminationID, result.StudentID, result.ClassID,
		result.TotalMarks, result.MarksObtained, result.Percentage, result.Grade, result.GradePoint,
		result.IsPassed, result.TotalSubjects, result.SubjectsAppeared, result.SubjectsPassed, result.SubjectsFailed,
		result.GeneratedAt, result.CreatedAt, result.UpdatedAt,
	)
	if err := row.Scan(&result.ID, &result.CreatedAt, &result.IsPublished, &result.PublishedAt); err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}

const resultColumns = `r.id, r.examination_id, r.student_id, r.class_id, r.total_marks, r.marks_obtained, r.percentage,
	r.grade, r.grade_point, r.is_passed, r.rank, r.rank_in_class, r.total_subjects, r.subjects_appeared,
	r.subjects_passed, r.subjects_failed, r.is_published, r.published_at, r.generated_at, r.created_at, r.updated_at`

// ListByClass returns the class results in ranking collection order.
func (r *ResultRepository) ListByClass(ctx context.Context, q sqlx.ExtContext, examID, classID string) ([]models.Result, error) {
	query := `SELECT ` + resultColumns + `
FROM results r
WHERE r.examination_id = $1 AND r.class_id = $2
ORDER BY r.percentage DESC, r.created_at ASC, r.id ASC`
	var results []models.Result
	if err := sqlx.SelectContext(ctx, q, &results, query, examID, classID); err != nil {
		return nil, fmt.Errorf("list class results: %w", err)
	}
	return results, nil
}

// UpdateRanks persists rank and rank_in_class for each result.
func (r *ResultRepository) UpdateRanks(ctx context.Context, tx *sqlx.Tx, results []models.Result) error {
	const query = `UPDATE results SET rank = $1, rank_in_class = $2 WHERE id = $3`
	for _, res := range results {
		if _, err := tx.ExecContext(ctx, query, res.Rank, res.RankInClass, res.ID); err != nil {
			return fmt.Errorf("update result rank %s: %w", res.ID, err)
		}
	}
	return nil
}

func scopeClause(query *strings.Builder, args []interface{}, classID string) []interface{} {
	if classID != "" {
		args = append(args, classID)
		fmt.Fprintf(query, " AND class_id = $%d", len(args))
	}
	return args
}

// ScopeCounts reports how many results and distinct classes exist for the examination scope.
func (r *ResultRepository) ScopeCounts(ctx context.Context, q sqlx.ExtContext, examID, classID string) (students int, classes int, err error) {
	query := strings.Builder{}
	query.WriteString(`SELECT COUNT(*) AS students, COUNT(DISTINCT class_id) AS classes FROM results WHERE examination_id = $1`)
	args := scopeClause(&query, []interface{}{examID}, classID)

	var row struct {
		Students int `db:"students"`
		Classes  int `db:"classes"`
	}
	if err := sqlx.GetContext(ctx, q, &row, query.String(), args...); err != nil {
		return 0, 0, fmt.Errorf("count scoped results: %w", err)
	}
	return row.Students, row.Classes, nil
}

// SetPublished flips the published flag for the scope. A nil publishedAt keeps the previous timestamp.
func (r *ResultRepository) SetPublished(ctx context.Context, tx *sqlx.Tx, examID, classID string, published bool, publishedAt *time.Time) (int64, error) {
	query := strings.Builder{}
	query.WriteString(`UPDATE results SET is_published = $1, published_at = COALESCE($2, published_at), updated_at = $3 WHERE examination_id = $4`)
	args := scopeClause(&query, []interface{}{published, publishedAt, time.Now().UTC(), examID}, classID)

	res, err := tx.ExecContext(ctx, query.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("set results published: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("set results published rows: %w", err)
	}
	return affected, nil
}

// DeleteScope removes results for the examination, optionally limited to one class.
func (r *ResultRepository) DeleteScope(ctx context.Context, tx *sqlx.Tx, examID, classID string) (int64, error) {
	query := strings.Builder{}
	query.WriteString(`DELETE FROM results WHERE examination_id = $1`)
	args := scopeClause(&query, []interface{}{examID}, classID)

	res, err := tx.ExecContext(ctx, query.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("delete results: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete results rows: %w", err)
	}
	return affected, nil
}

// ListViews returns results joined with student names for presentation, ordered by class and rank.
func (r *ResultRepository) ListViews(ctx context.Context, examID string, filter models.ResultFilter) ([]models.ResultView, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT ` + resultColumns + `, s.full_name AS student_name, s.roll_number
FROM results r
JOIN students s ON s.id = r.student_id
WHERE r.examination_id = $1`)
	args := []interface{}{examID}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		fmt.Fprintf(&query, " AND r.class_id = $%d", len(args))
	}
	switch filter.Status {
	case models.ResultPass:
		query.WriteString(" AND r.is_passed = TRUE")
	case models.ResultFail:
		query.WriteString(" AND r.is_passed = FALSE")
	}
	query.WriteString("\nORDER BY r.class_id ASC, r.rank_in_class ASC NULLS LAST, r.percentage DESC, s.full_name ASC")

	var views []models.ResultView
	if err := r.db.SelectContext(ctx, &views, query.String(), args...); err != nil {
		return nil, fmt.Errorf("list result views: %w", err)
	}
	return views, nil
}

// GetViewByStudent loads one student's result for an examination. sql.ErrNoRows is wrapped when absent.
func (r *ResultRepository) GetViewByStudent(ctx context.Context, q sqlx.ExtContext, examID, studentID string) (*models.ResultView, error) {
	query := `SELECT ` + resultColumns + `, s.full_name AS student_name, s.roll_number
FROM results r
JOIN students s ON s.id = r.student_id
WHERE r.examination_id = $1 AND r.student_id = $2`
	var view models.ResultView
	if err := sqlx.GetContext(ctx, q, &view, query, examID, studentID); err != nil {
		return nil, fmt.Errorf("get student result: %w", err)
	}
	return &view, nil
}
