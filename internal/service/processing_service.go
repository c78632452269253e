package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-results/internal/models"
	"github.com/noah-isme/sma-exam-results/pkg/database"
	appErrors "github.com/noah-isme/sma-exam-results/pkg/errors"
)

type markGradeStore interface {
	ListForSubjects(ctx context.Context, q sqlx.ExtContext, examID string, examSubjectIDs []string) ([]models.MarkEntry, error)
	UpdateGrades(ctx context.Context, tx *sqlx.Tx, updates []models.MarkGradeUpdate) error
}

type resultWriter interface {
	Upsert(ctx context.Context, tx *sqlx.Tx, result *models.Result) error
	ListByClass(ctx context.Context, q sqlx.ExtContext, examID, classID string) ([]models.Result, error)
	UpdateRanks(ctx context.Context, tx *sqlx.Tx, results []models.Result) error
}

// ProcessRequest identifies the class to (re)compute results for.
type ProcessRequest struct {
	TenantID      string `validate:"required"`
	ExaminationID string `validate:"required"`
	ClassID       string `validate:"required"`
}

// SkippedStudent is an active student with no marks for any class subject.
type SkippedStudent struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
}

// ProcessingOutcome summarises one processing run.
type ProcessingOutcome struct {
	ExaminationID   string           `json:"examination_id"`
	ClassID         string           `json:"class_id"`
	ProcessedCount  int              `json:"processed_count"`
	SkippedStudents []SkippedStudent `json:"skipped_students"`
	Warnings        []string         `json:"warnings,omitempty"`
}

// ProcessingConfig tunes the engine.
type ProcessingConfig struct {
	// PassPercentageFallback applies when an examination has no total marks.
	PassPercentageFallback float64
	// LockWait makes a concurrent run wait for the lock instead of failing fast.
	LockWait bool
}

// ProcessingService turns mark entries into graded, ranked results for a class.
type ProcessingService struct {
	db           txProvider
	locks        advisoryLocker
	exams        examinationReader
	completeness *CompletenessService
	marks        markGradeStore
	results      resultWriter
	cache        *ResultCache
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          ProcessingConfig
}

// NewProcessingService constructs the engine.
func NewProcessingService(
	db txProvider,
	locks advisoryLocker,
	exams examinationReader,
	completeness *CompletenessService,
	marks markGradeStore,
	results resultWriter,
	cache *ResultCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ProcessingConfig,
) *ProcessingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PassPercentageFallback <= 0 {
		cfg.PassPercentageFallback = 35
	}
	return &ProcessingService{
		db:           db,
		locks:        locks,
		exams:        exams,
		completeness: completeness,
		marks:        marks,
		results:      results,
		cache:        cache,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
	}
}

// Process recomputes every result of the class in one transaction. Nothing is written when any
// subject is incomplete, and a second run for the same class is serialised by an advisory lock.
func (s *ProcessingService) Process(ctx context.Context, req ProcessRequest) (*ProcessingOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid processing request")
	}

	start := time.Now()
	outcome := &ProcessingOutcome{
		ExaminationID:   req.ExaminationID,
		ClassID:         req.ClassID,
		SkippedStudents: []SkippedStudent{},
	}
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.lock(ctx, tx, req); err != nil {
			return err
		}
		exam, err := s.exams.FindByID(ctx, tx, req.TenantID, req.ExaminationID)
		if err != nil {
			return lookupError(err, "examination not found", "failed to load examination")
		}
		snap, err := s.completeness.check(ctx, tx, req.TenantID, req.ExaminationID, req.ClassID)
		if err != nil {
			return err
		}
		if !snap.report.Ready {
			return &IncompleteMarksError{Subjects: snap.report.Incomplete}
		}
		outcome.Warnings = snap.report.Warnings
		return s.computeClass(ctx, tx, *exam, snap, outcome)
	})
	s.metrics.ObserveProcessing(processingStatus(err), time.Since(start))
	if err != nil {
		return nil, err
	}

	_ = s.cache.InvalidateExamination(ctx, req.ExaminationID)
	s.logger.Info("results processed",
		zap.String("examination_id", req.ExaminationID),
		zap.String("class_id", req.ClassID),
		zap.Int("processed", outcome.ProcessedCount),
		zap.Int("skipped", len(outcome.SkippedStudents)),
		zap.Duration("duration", time.Since(start)),
	)
	return outcome, nil
}

func (s *ProcessingService) lock(ctx context.Context, tx *sqlx.Tx, req ProcessRequest) error {
	key := fmt.Sprintf("results:%s:%s", req.ExaminationID, req.ClassID)
	if s.cfg.LockWait {
		if err := s.locks.Acquire(ctx, tx, key); err != nil {
			return internalError(err, "failed to acquire processing lock")
		}
		return nil
	}
	acquired, err := s.locks.TryAcquire(ctx, tx, key)
	if err != nil {
		return internalError(err, "failed to acquire processing lock")
	}
	if !acquired {
		return appErrors.ErrProcessingInProgress
	}
	return nil
}

func (s *ProcessingService) computeClass(ctx context.Context, tx *sqlx.Tx, exam models.Examination, snap *completenessSnapshot, outcome *ProcessingOutcome) error {
	subjectIDs := make([]string, len(snap.subjects))
	for i, subject := range snap.subjects {
		subjectIDs[i] = subject.ID
	}
	marks, err := s.marks.ListForSubjects(ctx, tx, exam.ID, subjectIDs)
	if err != nil {
		return internalError(err, "failed to load mark entries")
	}
	byStudent := make(map[string][]models.MarkEntry, len(snap.students))
	for _, m := range marks {
		byStudent[m.StudentID] = append(byStudent[m.StudentID], m)
	}

	var gradeUpdates []models.MarkGradeUpdate
	for _, student := range snap.students {
		computed, ok := computeStudentResult(exam, student, snap.subjects, byStudent[student.ID], snap.scale, s.cfg.PassPercentageFallback)
		if !ok {
			outcome.SkippedStudents = append(outcome.SkippedStudents, SkippedStudent{StudentID: student.ID, Name: student.FullName})
			s.logger.Warn("student skipped, no mark entries",
				zap.String("examination_id", exam.ID),
				zap.String("student_id", student.ID))
			continue
		}
		result := computed.Result
		if err := s.results.Upsert(ctx, tx, &result); err != nil {
			return internalError(err, fmt.Sprintf("failed to save result for student %s", student.ID))
		}
		gradeUpdates = append(gradeUpdates, computed.GradeUpdates...)
		outcome.ProcessedCount++
	}
	if err := s.marks.UpdateGrades(ctx, tx, gradeUpdates); err != nil {
		return internalError(err, "failed to write subject grades")
	}

	classResults, err := s.results.ListByClass(ctx, tx, exam.ID, outcome.ClassID)
	if err != nil {
		return internalError(err, "failed to load class results")
	}
	if err := s.results.UpdateRanks(ctx, tx, AssignRanks(classResults)); err != nil {
		return internalError(err, "failed to assign ranks")
	}
	return nil
}

func processingStatus(err error) string {
	var incomplete *IncompleteMarksError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &incomplete):
		return "incomplete"
	case errors.Is(err, appErrors.ErrProcessingInProgress):
		return "conflict"
	case errors.Is(err, appErrors.ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}
