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

// MarkRepository persists raw mark entries and the grades back-filled by processing.
type MarkRepository struct {
	db *sqlx.DB
}

// NewMarkRepository constructs the repository.
func NewMarkRepository(db *sqlx.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

// Upsert inserts or overwrites the entry keyed by (exam_subject_id, student_id).
// Grade columns belong to results processing and are kept on overwrite, except that an entry
// switched to absent loses its grade and grade point.
func (r *MarkRepository) Upsert(ctx context.Context, tx *sqlx.Tx, entry *models.MarkEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	entry.UpdatedAt = now
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.EnteredAt == nil {
		entry.EnteredAt = &now
	}

	const query = `INSERT INTO mark_entries (
	id, examination_id, exam_subject_id, student_id,
	theory_obtained, practical_obtained, internal_obtained, total_obtained,
	is_absent, is_passed, remarks, entered_by, entered_at, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (exam_subject_id, student_id) DO UPDATE SET
	theory_obtained = EXCLUDED.theory_obtained,
	practical_obtained = EXCLUDED.practical_obtained,
	internal_obtained = EXCLUDED.internal_obtained,
	total_obtained = EXCLUDED.total_obtained,
	is_absent = EXCLUDED.is_absent,
	is_passed = EXCLUDED.is_passed,
	grade = CASE WHEN EXCLUDED.is_absent THEN NULL ELSE mark_entries.grade END,
	grade_point = CASE WHEN EXCLUDED.is_absent THEN NULL ELSE mark_entries.grade_point END,
	remarks = EXCLUDED.remarks,
	entered_by = EXCLUDED.entered_by,
	entered_at = EXCLUDED.entered_at,
	updated_at = EXCLUDED.updated_at
RETURNING id, created_at`

	row := tx.QueryRowxContext(ctx, query,
		entry.ID, entry.ExaminationID, entry.ExamSubjectID, entry.StudentID,
		entry.TheoryObtained, entry.PracticalObtained, entry.InternalObtained, entry.TotalObtained,
		entry.IsAbsent, entry.IsPassed, entry.Remarks, entry.EnteredBy, entry.EnteredAt, entry.CreatedAt, entry.UpdatedAt,
	)
	if err := row.Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return fmt.Errorf("upsert mark entry: %w", err)
	}
	return nil
}

// CountEntered counts entries per exam subject, restricted to students currently active in the class.
func (r *MarkRepository) CountEntered(ctx context.Context, q sqlx.ExtContext, tenantID, classID string, examSubjectIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(examSubjectIDs))
	if len(examSubjectIDs) == 0 {
		return counts, nil
	}
	query, args, err := sqlx.In(`SELECT m.exam_subject_id, COUNT(*) AS entered
FROM mark_entries m
JOIN students s ON s.id = m.student_id
WHERE s.tenant_id = ? AND s.class_id = ? AND s.status = ? AND m.exam_subject_id IN (?)
GROUP BY m.exam_subject_id`, tenantID, classID, models.StudentActive, examSubjectIDs)
	if err != nil {
		return nil, fmt.Errorf("build mark count query: %w", err)
	}

	var rows []struct {
		ExamSubjectID string `db:"exam_subject_id"`
		Entered       int    `db:"entered"`
	}
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("count mark entries: %w", err)
	}
	for _, row := range rows {
		counts[row.ExamSubjectID] = row.Entered
	}
	return counts, nil
}

const markEntryColumns = `id, examination_id, exam_subject_id, student_id,
	theory_obtained, practical_obtained, internal_obtained, total_obtained,
	is_absent, is_passed, grade, grade_point, remarks, entered_by, entered_at, created_at, updated_at`

// ListForSubjects returns every entry for the given exam subjects of an examination.
func (r *MarkRepository) ListForSubjects(ctx context.Context, q sqlx.ExtContext, examID string, examSubjectIDs []string) ([]models.MarkEntry, error) {
	if len(examSubjectIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+markEntryColumns+`
FROM mark_entries
WHERE examination_id = ? AND exam_subject_id IN (?)
ORDER BY student_id ASC, exam_subject_id ASC`, examID, examSubjectIDs)
	if err != nil {
		return nil, fmt.Errorf("build mark list query: %w", err)
	}
	var entries []models.MarkEntry
	if err := sqlx.SelectContext(ctx, q, &entries, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list mark entries: %w", err)
	}
	return entries, nil
}

// ListByStudent returns one student's entries for an examination with the subject name attached.
func (r *MarkRepository) ListByStudent(ctx context.Context, q sqlx.ExtContext, examID, studentID string) ([]models.StudentSubjectMark, error) {
	const query = `SELECT m.id, m.exam_subject_id, es.subject_id, es.subject_name, es.total_marks, es.passing_marks,
	m.theory_obtained, m.practical_obtained, m.internal_obtained, m.total_obtained,
	m.is_absent, m.is_passed, m.grade, m.grade_point, m.remarks
FROM mark_entries m
JOIN exam_subjects es ON es.id = m.exam_subject_id
WHERE m.examination_id = $1 AND m.student_id = $2
ORDER BY es.subject_name ASC, m.exam_subject_id ASC`
	var marks []models.StudentSubjectMark
	if err := sqlx.SelectContext(ctx, q, &marks, query, examID, studentID); err != nil {
		return nil, fmt.Errorf("list student marks: %w", err)
	}
	return marks, nil
}

// UpdateGrades writes the per-subject grade back-fill computed during processing.
func (r *MarkRepository) UpdateGrades(ctx context.Context, tx *sqlx.Tx, updates []models.MarkGradeUpdate) error {
	const query = `UPDATE mark_entries SET grade = $1, grade_point = $2, is_passed = $3, updated_at = $4 WHERE id = $5`
	now := time.Now().UTC()
	for _, u := range updates {
		if _, err := tx.ExecContext(ctx, query, u.Grade, u.GradePoint, u.IsPassed, now, u.MarkEntryID); err != nil {
			return fmt.Errorf("update mark grade %s: %w", u.MarkEntryID, err)
		}
	}
	return nil
}

// ClearGrades nulls grade columns and resets is_passed for the examination, optionally limited to one class.
func (r *MarkRepository) ClearGrades(ctx context.Context, tx *sqlx.Tx, examID, classID string) (int64, error) {
	query := strings.Builder{}
	query.WriteString(`UPDATE mark_entries SET grade = NULL, grade_point = NULL, is_passed = FALSE, updated_at = $1
WHERE examination_id = $2`)
	args := []interface{}{time.Now().UTC(), examID}
	if classID != "" {
		args = append(args, classID)
		fmt.Fprintf(&query, ` AND exam_subject_id IN (SELECT id FROM exam_subjects WHERE examination_id = $2 AND class_id = $%d)`, len(args))
	}

	res, err := tx.ExecContext(ctx, query.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("clear mark grades: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear mark grades rows: %w", err)
	}
	return affected, nil
}
