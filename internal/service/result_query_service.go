package service

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-results/internal/models"
)

const (
	defaultResultsPageSize = 50
	maxResultsPageSize     = 500
)

type resultViewReader interface {
	ListViews(ctx context.Context, examID string, filter models.ResultFilter) ([]models.ResultView, error)
}

type resultQueryReader interface {
	resultViewReader
	GetViewByStudent(ctx context.Context, q sqlx.ExtContext, examID, studentID string) (*models.ResultView, error)
}

type studentMarkReader interface {
	ListByStudent(ctx context.Context, q sqlx.ExtContext, examID, studentID string) ([]models.StudentSubjectMark, error)
}

// StudentResult is one student's overall result with the per-subject grade back-fill.
type StudentResult struct {
	Result   models.ResultView           `json:"result"`
	Subjects []models.StudentSubjectMark `json:"subjects"`
}

// ResultListing is a page of results with stats over the whole filtered set.
type ResultListing struct {
	Results    []models.ResultView `json:"results"`
	Stats      models.ResultStats  `json:"stats"`
	Pagination models.Pagination   `json:"pagination"`
	CacheHit   bool                `json:"-"`
}

// ResultQueryService serves processed results for presentation.
type ResultQueryService struct {
	db      txProvider
	exams   examinationReader
	results resultQueryReader
	marks   studentMarkReader
	cache   *ResultCache
	logger  *zap.Logger
}

// NewResultQueryService constructs the query service.
func NewResultQueryService(db txProvider, exams examinationReader, results resultQueryReader, marks studentMarkReader, cache *ResultCache, logger *zap.Logger) *ResultQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultQueryService{db: db, exams: exams, results: results, marks: marks, cache: cache, logger: logger}
}

// List returns filtered results ordered by class and rank, with summary statistics.
func (s *ResultQueryService) List(ctx context.Context, tenantID, examID string, filter models.ResultFilter) (*ResultListing, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	filter.Status = models.ResultPassStatus(strings.ToUpper(string(filter.Status)))
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, validationError("status must be PASS or FAIL")
	}
	if _, err := s.exams.FindByID(ctx, s.db, tenantID, examID); err != nil {
		return nil, lookupError(err, "examination not found", "failed to load examination")
	}

	views, hit, err := s.loadViews(ctx, examID, filter)
	if err != nil {
		return nil, err
	}

	page, size := normalisePage(filter.Page, filter.PageSize)
	start := (page - 1) * size
	if start > len(views) {
		start = len(views)
	}
	end := start + size
	if end > len(views) {
		end = len(views)
	}

	return &ResultListing{
		Results:    views[start:end],
		Stats:      computeStats(views),
		Pagination: models.Pagination{Page: page, PageSize: size, TotalCount: len(views)},
		CacheHit:   hit,
	}, nil
}

// StudentDetail returns a student's overall result and subject-wise marks with grades.
func (s *ResultQueryService) StudentDetail(ctx context.Context, tenantID, examID, studentID string) (*StudentResult, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(studentID) == "" {
		return nil, validationError("studentId is required")
	}
	if _, err := s.exams.FindByID(ctx, s.db, tenantID, examID); err != nil {
		return nil, lookupError(err, "examination not found", "failed to load examination")
	}

	view, err := s.results.GetViewByStudent(ctx, s.db, examID, studentID)
	if err != nil {
		return nil, lookupError(err, "result not found for student", "failed to load student result")
	}
	subjects, err := s.marks.ListByStudent(ctx, s.db, examID, studentID)
	if err != nil {
		return nil, internalError(err, "failed to load student marks")
	}
	if subjects == nil {
		subjects = []models.StudentSubjectMark{}
	}
	return &StudentResult{Result: *view, Subjects: subjects}, nil
}

func (s *ResultQueryService) loadViews(ctx context.Context, examID string, filter models.ResultFilter) ([]models.ResultView, bool, error) {
	if cached, hit, _ := s.cache.Views(ctx, examID, filter); hit {
		return cached, true, nil
	}
	views, err := s.results.ListViews(ctx, examID, models.ResultFilter{ClassID: filter.ClassID, Status: filter.Status})
	if err != nil {
		return nil, false, internalError(err, "failed to list results")
	}
	if views == nil {
		views = []models.ResultView{}
	}
	_ = s.cache.StoreViews(ctx, examID, filter, views)
	return views, false, nil
}

func computeStats(views []models.ResultView) models.ResultStats {
	stats := models.ResultStats{Total: len(views)}
	if len(views) == 0 {
		return stats
	}
	var sum float64
	for _, v := range views {
		if v.IsPassed {
			stats.Passed++
		} else {
			stats.Failed++
		}
		sum += v.Percentage
	}
	total := float64(stats.Total)
	stats.PassPercentage = round2(float64(stats.Passed) / total * 100)
	stats.FailPercentage = round2(float64(stats.Failed) / total * 100)
	stats.AveragePercentage = round2(sum / total)
	return stats
}

func normalisePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = defaultResultsPageSize
	}
	if size > maxResultsPageSize {
		size = maxResultsPageSize
	}
	return page, size
}
