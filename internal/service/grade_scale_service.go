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

type gradeScaleReader interface {
	ListByTenant(ctx context.Context, q sqlx.ExtContext, tenantID string) (models.GradeScale, error)
}

type gradeScaleRepository interface {
	gradeScaleReader
	Create(ctx context.Context, tx *sqlx.Tx, entry *models.GradeScaleEntry) error
	Delete(ctx context.Context, tenantID, id string) (bool, error)
}

// CreateGradeScaleRequest is the payload for a single band.
type CreateGradeScaleRequest struct {
	GradeName     string  `json:"grade_name" validate:"required,max=10"`
	GradePoint    float64 `json:"grade_point" validate:"gte=0"`
	MinPercentage float64 `json:"min_percentage" validate:"gte=0,lte=100"`
	MaxPercentage float64 `json:"max_percentage" validate:"gte=0,lte=100,gtfield=MinPercentage"`
	Description   *string `json:"description"`
	IsPassing     *bool   `json:"is_passing"`
}

// GradeScaleService manages tenant grade bands.
type GradeScaleService struct {
	db        txProvider
	repo      gradeScaleRepository
	locks     advisoryLocker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeScaleService constructs the service.
func NewGradeScaleService(db txProvider, repo gradeScaleRepository, locks advisoryLocker, validate *validator.Validate, logger *zap.Logger) *GradeScaleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeScaleService{db: db, repo: repo, locks: locks, validator: validate, logger: logger}
}

// List returns the tenant scale ordered by min_percentage descending.
func (s *GradeScaleService) List(ctx context.Context, tenantID string) (models.GradeScale, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	scale, err := s.repo.ListByTenant(ctx, s.db, tenantID)
	if err != nil {
		return nil, internalError(err, "failed to list grade scale")
	}
	if scale == nil {
		scale = models.GradeScale{}
	}
	return scale, nil
}

// Create inserts a band after checking it against every existing band of the tenant.
func (s *GradeScaleService) Create(ctx context.Context, tenantID string, req CreateGradeScaleRequest) (*models.GradeScaleEntry, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade scale payload")
	}

	entry := &models.GradeScaleEntry{
		TenantID:      tenantID,
		GradeName:     req.GradeName,
		GradePoint:    req.GradePoint,
		MinPercentage: req.MinPercentage,
		MaxPercentage: req.MaxPercentage,
		Description:   req.Description,
		IsPassing:     req.IsPassing == nil || *req.IsPassing,
	}

	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		existing, err := s.lockedScale(ctx, tx, tenantID)
		if err != nil {
			return err
		}
		for _, band := range existing {
			if entry.Overlaps(band) {
				return appErrors.Clone(appErrors.ErrGradeOverlap,
					fmt.Sprintf("grade range overlaps with existing grade %s (%.2f-%.2f)", band.GradeName, band.MinPercentage, band.MaxPercentage))
			}
		}
		if err := s.repo.Create(ctx, tx, entry); err != nil {
			return internalError(err, "failed to create grade scale")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("grade band created", zap.String("tenant_id", tenantID), zap.String("grade", entry.GradeName))
	return entry, nil
}

// CreateDefault installs the standard eight-band scale for a tenant with no bands.
func (s *GradeScaleService) CreateDefault(ctx context.Context, tenantID string) (models.GradeScale, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	scale := defaultGradeScale(tenantID)

	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		existing, err := s.lockedScale(ctx, tx, tenantID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return appErrors.Clone(appErrors.ErrConflict, "grade scale already configured for tenant")
		}
		for i := range scale {
			if err := s.repo.Create(ctx, tx, &scale[i]); err != nil {
				return internalError(err, "failed to create default grade scale")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("default grade scale created", zap.String("tenant_id", tenantID), zap.Int("bands", len(scale)))
	return scale, nil
}

// Delete removes a band.
func (s *GradeScaleService) Delete(ctx context.Context, tenantID, id string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, tenantID, id)
	if err != nil {
		return internalError(err, "failed to delete grade scale")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "grade band not found")
	}
	return nil
}

func (s *GradeScaleService) lockedScale(ctx context.Context, tx *sqlx.Tx, tenantID string) (models.GradeScale, error) {
	if err := s.locks.Acquire(ctx, tx, "grade-scale:"+tenantID); err != nil {
		return nil, internalError(err, "failed to lock grade scale")
	}
	existing, err := s.repo.ListByTenant(ctx, tx, tenantID)
	if err != nil {
		return nil, internalError(err, "failed to load grade scale")
	}
	return existing, nil
}

func defaultGradeScale(tenantID string) models.GradeScale {
	band := func(name string, point, min, max float64, description string, passing bool) models.GradeScaleEntry {
		desc := description
		return models.GradeScaleEntry{
			TenantID:      tenantID,
			GradeName:     name,
			GradePoint:    point,
			MinPercentage: min,
			MaxPercentage: max,
			Description:   &desc,
			IsPassing:     passing,
		}
	}
	return models.GradeScale{
		band("A+", 10, 90, 100, "Outstanding", true),
		band("A", 9, 80, 89.99, "Excellent", true),
		band("B+", 8, 70, 79.99, "Very Good", true),
		band("B", 7, 60, 69.99, "Good", true),
		band("C+", 6, 50, 59.99, "Satisfactory", true),
		band("C", 5, 40, 49.99, "Acceptable", true),
		band("D", 4, 35, 39.99, "Pass", true),
		band("F", 0, 0, 34.99, "Fail", false),
	}
}
