package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-results/internal/models"
	appErrors "github.com/noah-isme/sma-exam-results/pkg/errors"
)

const warningNoGradeScale = "no grade scale configured; grades will resolve to N/A"

// IncompleteSubject reports a subject whose marks do not cover every active student.
type IncompleteSubject struct {
	ExamSubjectID string `json:"exam_subject_id"`
	SubjectName   string `json:"subject_name"`
	Entered       int    `json:"entered"`
	Expected      int    `json:"expected"`
}

// IncompleteMarksError blocks processing and carries the subjects that are short.
type IncompleteMarksError struct {
	Subjects []IncompleteSubject
}

func (e *IncompleteMarksError) Error() string {
	parts := make([]string, 0, len(e.Subjects))
	for _, s := range e.Subjects {
		parts = append(parts, fmt.Sprintf("%s (%d/%d)", s.SubjectName, s.Entered, s.Expected))
	}
	return "marks entry incomplete for: " + strings.Join(parts, ", ")
}

// Unwrap exposes the typed error so handlers render INCOMPLETE_MARKS.
func (e *IncompleteMarksError) Unwrap() error {
	return appErrors.Clone(appErrors.ErrIncompleteMarks, e.Error())
}

// Meta lists the incomplete subjects in the error envelope.
func (e *IncompleteMarksError) Meta() map[string]interface{} {
	return map[string]interface{}{"incomplete_subjects": e.Subjects}
}

// CompletenessReport describes whether a class is ready for results processing.
type CompletenessReport struct {
	ExaminationID  string              `json:"examination_id"`
	ClassID        string              `json:"class_id"`
	Ready          bool                `json:"ready"`
	ActiveStudents int                 `json:"active_students"`
	Subjects       int                 `json:"subjects"`
	Incomplete     []IncompleteSubject `json:"incomplete,omitempty"`
	Warnings       []string            `json:"warnings,omitempty"`
}

// completenessSnapshot is the data gathered by a check, reused by processing in the same transaction.
type completenessSnapshot struct {
	report   CompletenessReport
	subjects []models.ExamSubject
	students []models.Student
	scale    models.GradeScale
}

// CompletenessService gates processing on full mark coverage.
type CompletenessService struct {
	db       txProvider
	exams    examinationReader
	students studentReader
	marks    markCounter
	scales   gradeScaleReader
	logger   *zap.Logger
}

// NewCompletenessService constructs the service.
func NewCompletenessService(db txProvider, exams examinationReader, students studentReader, marks markCounter, scales gradeScaleReader, logger *zap.Logger) *CompletenessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletenessService{db: db, exams: exams, students: students, marks: marks, scales: scales, logger: logger}
}

// Validate reports readiness for (examination, class). Incompleteness is part of the report, not an error.
func (s *CompletenessService) Validate(ctx context.Context, tenantID, examID, classID string) (*CompletenessReport, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if _, err := s.exams.FindByID(ctx, s.db, tenantID, examID); err != nil {
		return nil, lookupError(err, "examination not found", "failed to load examination")
	}
	snap, err := s.check(ctx, s.db, tenantID, examID, classID)
	if err != nil {
		return nil, err
	}
	return &snap.report, nil
}

func (s *CompletenessService) check(ctx context.Context, q sqlx.ExtContext, tenantID, examID, classID string) (*completenessSnapshot, error) {
	subjects, err := s.exams.ListSubjectsForClass(ctx, q, examID, classID)
	if err != nil {
		return nil, internalError(err, "failed to load exam subjects")
	}
	if len(subjects) == 0 {
		return nil, appErrors.ErrNoSubjects
	}
	students, err := s.students.ListActiveByClass(ctx, q, tenantID, classID)
	if err != nil {
		return nil, internalError(err, "failed to load students")
	}
	if len(students) == 0 {
		return nil, appErrors.ErrNoStudents
	}

	ids := make([]string, len(subjects))
	for i, subject := range subjects {
		ids[i] = subject.ID
	}
	counts, err := s.marks.CountEntered(ctx, q, tenantID, classID, ids)
	if err != nil {
		return nil, internalError(err, "failed to count mark entries")
	}

	snap := &completenessSnapshot{
		subjects: subjects,
		students: students,
		report: CompletenessReport{
			ExaminationID:  examID,
			ClassID:        classID,
			ActiveStudents: len(students),
			Subjects:       len(subjects),
		},
	}
	for _, subject := range subjects {
		if entered := counts[subject.ID]; entered < len(students) {
			snap.report.Incomplete = append(snap.report.Incomplete, IncompleteSubject{
				ExamSubjectID: subject.ID,
				SubjectName:   subject.SubjectName,
				Entered:       entered,
				Expected:      len(students),
			})
		}
	}
	snap.report.Ready = len(snap.report.Incomplete) == 0

	snap.scale, err = s.scales.ListByTenant(ctx, q, tenantID)
	if err != nil {
		return nil, internalError(err, "failed to load grade scale")
	}
	if len(snap.scale) == 0 {
		snap.report.Warnings = append(snap.report.Warnings, warningNoGradeScale)
		s.logger.Warn("grade scale missing", zap.String("tenant_id", tenantID), zap.String("examination_id", examID))
	}
	return snap, nil
}
