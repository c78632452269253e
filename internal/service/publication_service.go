package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-results/internal/models"
	"github.com/noah-isme/sma-exam-results/pkg/database"
	appErrors "github.com/noah-isme/sma-exam-results/pkg/errors"
)

type resultScopeStore interface {
	ScopeCounts(ctx context.Context, q sqlx.ExtContext, examID, classID string) (int, int, error)
	SetPublished(ctx context.Context, tx *sqlx.Tx, examID, classID string, published bool, publishedAt *time.Time) (int64, error)
	DeleteScope(ctx context.Context, tx *sqlx.Tx, examID, classID string) (int64, error)
}

type markGradeClearer interface {
	ClearGrades(ctx context.Context, tx *sqlx.Tx, examID, classID string) (int64, error)
}

type publicationStore interface {
	GetByExamination(ctx context.Context, q sqlx.ExtContext, examID string) (*models.Publication, error)
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, examID string) (*models.Publication, error)
	Upsert(ctx context.Context, tx *sqlx.Tx, pub *models.Publication) error
}

type publicationNotifier interface {
	Notify(ctx context.Context, event models.PublicationEvent) error
}

// PublicationRequest scopes a publish or unpublish. An empty ClassID means the whole examination.
type PublicationRequest struct {
	TenantID      string  `json:"-" validate:"required"`
	ExaminationID string  `json:"-" validate:"required"`
	ClassID       string  `json:"class_id"`
	ActorID       *string `json:"-"`
}

// ClearRequest scopes a destructive clear. Confirmed must be set by the caller.
type ClearRequest struct {
	PublicationRequest
	Confirmed bool `json:"-"`
}

// PublicationOutcome reports what a transition changed.
type PublicationOutcome struct {
	ExaminationID    string                   `json:"examination_id"`
	ClassID          string                   `json:"class_id,omitempty"`
	Status           models.PublicationStatus `json:"status"`
	AffectedStudents int                      `json:"affected_students"`
	AffectedClasses  int                      `json:"affected_classes"`
	MarksCleared     int                      `json:"marks_cleared,omitempty"`
	NoOp             bool                     `json:"no_op"`
	Warnings         []string                 `json:"warnings,omitempty"`
}

// PublicationService drives the examination publication state machine.
type PublicationService struct {
	db           txProvider
	exams        examinationReader
	results      resultScopeStore
	marks        markGradeClearer
	publications publicationStore
	notifier     publicationNotifier
	cache        *ResultCache
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewPublicationService constructs the service. notifier may be nil.
func NewPublicationService(
	db txProvider,
	exams examinationReader,
	results resultScopeStore,
	marks markGradeClearer,
	publications publicationStore,
	notifier publicationNotifier,
	cache *ResultCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *PublicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublicationService{
		db:           db,
		exams:        exams,
		results:      results,
		marks:        marks,
		publications: publications,
		notifier:     notifier,
		cache:        cache,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the publication record, or a draft when none has been written.
func (s *PublicationService) Get(ctx context.Context, tenantID, examID string) (*models.Publication, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if _, err := s.exams.FindByID(ctx, s.db, tenantID, examID); err != nil {
		return nil, lookupError(err, "examination not found", "failed to load examination")
	}
	pub, err := s.publications.GetByExamination(ctx, s.db, examID)
	if err != nil {
		return nil, internalError(err, "failed to load publication")
	}
	if pub == nil {
		pub = &models.Publication{ExaminationID: examID, Status: models.PublicationDraft}
	}
	return pub, nil
}

// Publish marks matching results visible and moves the record to PUBLISHED.
func (s *PublicationService) Publish(ctx context.Context, req PublicationRequest) (*PublicationOutcome, error) {
	return s.transition(ctx, req, models.PublicationActionPublish)
}

// Unpublish hides matching results and moves the record to UNPUBLISHED. Results are kept.
func (s *PublicationService) Unpublish(ctx context.Context, req PublicationRequest) (*PublicationOutcome, error) {
	return s.transition(ctx, req, models.PublicationActionUnpublish)
}

func (s *PublicationService) transition(ctx context.Context, req PublicationRequest, action models.PublicationAction) (*PublicationOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid publication request")
	}
	target := models.PublicationPublished
	if action == models.PublicationActionUnpublish {
		target = models.PublicationUnpublished
	}

	outcome := &PublicationOutcome{ExaminationID: req.ExaminationID, ClassID: req.ClassID}
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		pub, err := s.lockPublication(ctx, tx, req)
		if err != nil {
			return err
		}
		outcome.Status = pub.Status

		students, classes, err := s.results.ScopeCounts(ctx, tx, req.ExaminationID, req.ClassID)
		if err != nil {
			return internalError(err, "failed to count results")
		}
		if students == 0 {
			outcome.NoOp = true
			outcome.Warnings = append(outcome.Warnings, "no results found to "+string(action))
			return nil
		}
		if !pub.Status.CanTransitionTo(target) {
			return appErrors.Clone(appErrors.ErrInvalidTransition,
				"cannot "+string(action)+" results while publication is "+string(pub.Status))
		}

		now := s.now()
		var publishedAt *time.Time
		if target == models.PublicationPublished {
			publishedAt = &now
			pub.PublishedDate = &now
			pub.PublishedBy = req.ActorID
		}
		if _, err := s.results.SetPublished(ctx, tx, req.ExaminationID, req.ClassID, target == models.PublicationPublished, publishedAt); err != nil {
			return internalError(err, "failed to update results visibility")
		}
		pub.Status = target
		if err := s.publications.Upsert(ctx, tx, pub); err != nil {
			return internalError(err, "failed to save publication")
		}

		outcome.Status = target
		outcome.AffectedStudents = students
		outcome.AffectedClasses = classes
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.NoOp {
		s.logger.Warn("publication transition skipped, no results",
			zap.String("examination_id", req.ExaminationID),
			zap.String("class_id", req.ClassID),
			zap.String("action", string(action)))
		return outcome, nil
	}

	s.afterCommit(ctx, req.ExaminationID, string(action))
	s.notify(ctx, models.PublicationEvent{
		ExaminationID:    req.ExaminationID,
		ClassID:          req.ClassID,
		Action:           action,
		AffectedStudents: outcome.AffectedStudents,
		AffectedClasses:  outcome.AffectedClasses,
		OccurredAt:       s.now(),
	})
	s.logger.Info("publication updated",
		zap.String("examination_id", req.ExaminationID),
		zap.String("class_id", req.ClassID),
		zap.String("status", string(outcome.Status)),
		zap.Int("affected_students", outcome.AffectedStudents))
	return outcome, nil
}

// Clear deletes matching results, erases the grade back-fill on their mark entries and resets the
// record to DRAFT. The request must carry an explicit confirmation.
func (s *PublicationService) Clear(ctx context.Context, req ClearRequest) (*PublicationOutcome, error) {
	if !req.Confirmed {
		return nil, appErrors.Clone(appErrors.ErrConfirmationRequired, "clearing results requires explicit confirmation")
	}
	if err := s.validator.Struct(req.PublicationRequest); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid clear request")
	}

	outcome := &PublicationOutcome{ExaminationID: req.ExaminationID, ClassID: req.ClassID}
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		pub, err := s.lockPublication(ctx, tx, req.PublicationRequest)
		if err != nil {
			return err
		}
		outcome.Status = pub.Status

		students, classes, err := s.results.ScopeCounts(ctx, tx, req.ExaminationID, req.ClassID)
		if err != nil {
			return internalError(err, "failed to count results")
		}
		if students == 0 {
			outcome.NoOp = true
			outcome.Warnings = append(outcome.Warnings, "no results found to clear")
			return nil
		}

		deleted, err := s.results.DeleteScope(ctx, tx, req.ExaminationID, req.ClassID)
		if err != nil {
			return internalError(err, "failed to delete results")
		}
		cleared, err := s.marks.ClearGrades(ctx, tx, req.ExaminationID, req.ClassID)
		if err != nil {
			return internalError(err, "failed to clear subject grades")
		}
		if pub.ID != "" {
			pub.Status = models.PublicationDraft
			pub.PublishedDate = nil
			if err := s.publications.Upsert(ctx, tx, pub); err != nil {
				return internalError(err, "failed to reset publication")
			}
		}

		outcome.Status = models.PublicationDraft
		outcome.AffectedStudents = int(deleted)
		outcome.AffectedClasses = classes
		outcome.MarksCleared = int(cleared)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.NoOp {
		s.logger.Warn("clear skipped, no results",
			zap.String("examination_id", req.ExaminationID),
			zap.String("class_id", req.ClassID))
		return outcome, nil
	}
	s.afterCommit(ctx, req.ExaminationID, "clear")
	s.logger.Info("results cleared",
		zap.String("examination_id", req.ExaminationID),
		zap.String("class_id", req.ClassID),
		zap.Int("results_deleted", outcome.AffectedStudents),
		zap.Int("marks_cleared", outcome.MarksCleared))
	return outcome, nil
}

// lockPublication verifies tenant ownership and returns the locked record, or an unsaved draft.
func (s *PublicationService) lockPublication(ctx context.Context, tx *sqlx.Tx, req PublicationRequest) (*models.Publication, error) {
	if _, err := s.exams.FindByID(ctx, tx, req.TenantID, req.ExaminationID); err != nil {
		return nil, lookupError(err, "examination not found", "failed to load examination")
	}
	pub, err := s.publications.GetForUpdate(ctx, tx, req.ExaminationID)
	if err != nil {
		return nil, internalError(err, "failed to load publication")
	}
	if pub == nil {
		pub = &models.Publication{ExaminationID: req.ExaminationID, Status: models.PublicationDraft}
	}
	return pub, nil
}

func (s *PublicationService) afterCommit(ctx context.Context, examID, action string) {
	s.metrics.RecordPublication(action)
	_ = s.cache.InvalidateExamination(ctx, examID)
}

func (s *PublicationService) notify(ctx context.Context, event models.PublicationEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Warn("publication notification failed",
			zap.String("examination_id", event.ExaminationID),
			zap.String("action", string(event.Action)),
			zap.Error(err))
	}
}
