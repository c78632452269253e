package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-results/internal/models"
	"github.com/noah-isme/sma-exam-results/pkg/database"
	appErrors "github.com/noah-isme/sma-exam-results/pkg/errors"
)

type examinationReader interface {
	FindByID(ctx context.Context, q sqlx.ExtContext, tenantID, id string) (*models.Examination, error)
	ListSubjectsForClass(ctx context.Context, q sqlx.ExtContext, examID, classID string) ([]models.ExamSubject, error)
}

type examSubjectLocker interface {
	GetSubjectForUpdate(ctx context.Context, tx *sqlx.Tx, examID, examSubjectID string) (*models.ExamSubject, error)
	UpdateSubjectStatus(ctx context.Context, tx *sqlx.Tx, examSubjectID string, status models.MarkEntryStatus) error
}

type markExaminationRepository interface {
	examinationReader
	examSubjectLocker
}

type studentReader interface {
	ListActiveByClass(ctx context.Context, q sqlx.ExtContext, tenantID, classID string) ([]models.Student, error)
	CountActiveByClass(ctx context.Context, q sqlx.ExtContext, tenantID, classID string) (int, error)
	FilterActiveInClass(ctx context.Context, q sqlx.ExtContext, tenantID, classID string, studentIDs []string) (map[string]struct{}, error)
}

type markCounter interface {
	CountEntered(ctx context.Context, q sqlx.ExtContext, tenantID, classID string, examSubjectIDs []string) (map[string]int, error)
}

type markWriter interface {
	markCounter
	Upsert(ctx context.Context, tx *sqlx.Tx, entry *models.MarkEntry) error
}

// MarkInput is one student's submitted marks for an exam subject.
type MarkInput struct {
	StudentID         string   `json:"student_id" validate:"required"`
	TheoryObtained    *float64 `json:"theory_obtained" validate:"omitempty,gte=0"`
	PracticalObtained *float64 `json:"practical_obtained" validate:"omitempty,gte=0"`
	InternalObtained  *float64 `json:"internal_obtained" validate:"omitempty,gte=0"`
	IsAbsent          bool     `json:"is_absent"`
	Remarks           *string  `json:"remarks" validate:"omitempty,max=500"`
}

// MarkBatchRequest submits marks for many students of one exam subject.
type MarkBatchRequest struct {
	TenantID      string      `json:"-" validate:"required"`
	ExaminationID string      `json:"-" validate:"required"`
	ExamSubjectID string      `json:"-" validate:"required"`
	EnteredBy     *string     `json:"entered_by"`
	Entries       []MarkInput `json:"entries" validate:"required,min=1,dive"`
}

// MarkBatchResult reports the saved entries and the recounted subject status.
type MarkBatchResult struct {
	ExamSubjectID string                 `json:"exam_subject_id"`
	Entries       []models.MarkEntry     `json:"entries"`
	Entered       int                    `json:"entered"`
	Eligible      int                    `json:"eligible"`
	Status        models.MarkEntryStatus `json:"mark_entry_status"`
}

// MarkService records raw marks and keeps exam subject completion status current.
type MarkService struct {
	db        txProvider
	exams     markExaminationRepository
	students  studentReader
	marks     markWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMarkService constructs the service.
func NewMarkService(db txProvider, exams markExaminationRepository, students studentReader, marks markWriter, validate *validator.Validate, logger *zap.Logger) *MarkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarkService{db: db, exams: exams, students: students, marks: marks, validator: validate, logger: logger}
}

// UpsertMark records a single student's marks.
func (s *MarkService) UpsertMark(ctx context.Context, tenantID, examID, examSubjectID string, input MarkInput, enteredBy *string) (*models.MarkEntry, models.MarkEntryStatus, error) {
	res, err := s.UpsertMarks(ctx, MarkBatchRequest{
		TenantID:      tenantID,
		ExaminationID: examID,
		ExamSubjectID: examSubjectID,
		EnteredBy:     enteredBy,
		Entries:       []MarkInput{input},
	})
	if err != nil {
		return nil, "", err
	}
	entry := res.Entries[0]
	return &entry, res.Status, nil
}

// UpsertMarks validates and writes the batch in one transaction. The exam subject row is locked
// first so concurrent submissions for the same subject recount against fresh data.
func (s *MarkService) UpsertMarks(ctx context.Context, req MarkBatchRequest) (*MarkBatchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid marks payload")
	}
	studentIDs, err := uniqueStudentIDs(req.Entries)
	if err != nil {
		return nil, err
	}

	result := &MarkBatchResult{ExamSubjectID: req.ExamSubjectID}
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := s.exams.FindByID(ctx, tx, req.TenantID, req.ExaminationID); err != nil {
			return lookupError(err, "examination not found", "failed to load examination")
		}
		subject, err := s.exams.GetSubjectForUpdate(ctx, tx, req.ExaminationID, req.ExamSubjectID)
		if err != nil {
			return lookupError(err, "exam subject not found", "failed to load exam subject")
		}
		if err := validateComponents(*subject, req.Entries); err != nil {
			return err
		}

		members, err := s.students.FilterActiveInClass(ctx, tx, req.TenantID, subject.ClassID, studentIDs)
		if err != nil {
			return internalError(err, "failed to verify students")
		}
		for _, id := range studentIDs {
			if _, ok := members[id]; !ok {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s is not an active member of the class", id))
			}
		}

		result.Entries = make([]models.MarkEntry, 0, len(req.Entries))
		for _, in := range req.Entries {
			components := models.MarkComponents{Theory: in.TheoryObtained, Practical: in.PracticalObtained, Internal: in.InternalObtained}
			total, passed := models.ComputeSubjectTotal(components, in.IsAbsent, subject.PassingMarks)
			entry := models.MarkEntry{
				ExaminationID:     req.ExaminationID,
				ExamSubjectID:     subject.ID,
				StudentID:         in.StudentID,
				TheoryObtained:    in.TheoryObtained,
				PracticalObtained: in.PracticalObtained,
				InternalObtained:  in.InternalObtained,
				TotalObtained:     total,
				IsAbsent:          in.IsAbsent,
				IsPassed:          passed,
				Remarks:           in.Remarks,
				EnteredBy:         req.EnteredBy,
			}
			if err := s.marks.Upsert(ctx, tx, &entry); err != nil {
				return internalError(err, "failed to save marks")
			}
			result.Entries = append(result.Entries, entry)
		}

		counts, err := s.marks.CountEntered(ctx, tx, req.TenantID, subject.ClassID, []string{subject.ID})
		if err != nil {
			return internalError(err, "failed to count mark entries")
		}
		eligible, err := s.students.CountActiveByClass(ctx, tx, req.TenantID, subject.ClassID)
		if err != nil {
			return internalError(err, "failed to count students")
		}
		result.Entered = counts[subject.ID]
		result.Eligible = eligible
		result.Status = subject.NextEntryStatus(result.Entered, eligible)
		if result.Status != subject.MarkEntryStatus {
			if err := s.exams.UpdateSubjectStatus(ctx, tx, subject.ID, result.Status); err != nil {
				return internalError(err, "failed to update mark entry status")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("marks saved",
		zap.String("examination_id", req.ExaminationID),
		zap.String("exam_subject_id", req.ExamSubjectID),
		zap.Int("entries", len(result.Entries)),
		zap.Int("entered", result.Entered),
		zap.Int("eligible", result.Eligible),
		zap.String("status", string(result.Status)),
	)
	return result, nil
}

func uniqueStudentIDs(entries []MarkInput) ([]string, error) {
	seen := make(map[string]struct{}, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.StudentID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate entry for student %s", e.StudentID))
		}
		seen[e.StudentID] = struct{}{}
		ids = append(ids, e.StudentID)
	}
	return ids, nil
}

// validateComponents rejects marks above the configured component maxima. A maximum of zero disables the check.
func validateComponents(subject models.ExamSubject, entries []MarkInput) error {
	check := func(studentID, name string, value *float64, max float64) error {
		if value == nil || max <= 0 || *value <= max {
			return nil
		}
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("%s marks %.2f for student %s exceed maximum %.2f", name, *value, studentID, max))
	}
	for _, e := range entries {
		if e.IsAbsent {
			continue
		}
		if err := check(e.StudentID, "theory", e.TheoryObtained, subject.TheoryMarks); err != nil {
			return err
		}
		if err := check(e.StudentID, "practical", e.PracticalObtained, subject.PracticalMarks); err != nil {
			return err
		}
		if err := check(e.StudentID, "internal", e.InternalObtained, subject.InternalMarks); err != nil {
			return err
		}
	}
	return nil
}
