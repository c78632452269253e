package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-exam-results/internal/middleware"
	"github.com/noah-isme/sma-exam-results/internal/models"
	"github.com/noah-isme/sma-exam-results/internal/service"
	"github.com/noah-isme/sma-exam-results/pkg/response"
)

type completenessService interface {
	Validate(ctx context.Context, tenantID, examID, classID string) (*service.CompletenessReport, error)
}

type processingService interface {
	Process(ctx context.Context, req service.ProcessRequest) (*service.ProcessingOutcome, error)
}

type resultQueryService interface {
	List(ctx context.Context, tenantID, examID string, filter models.ResultFilter) (*service.ResultListing, error)
	StudentDetail(ctx context.Context, tenantID, examID, studentID string) (*service.StudentResult, error)
}

type exportService interface {
	ClassSheet(ctx context.Context, tenantID, examID, classID string, format service.ExportFormat) (*service.ExportFile, error)
}

// ResultHandler covers completeness checks, processing, listing and export.
type ResultHandler struct {
	completeness completenessService
	processing   processingService
	queries      resultQueryService
	exports      exportService
}

// NewResultHandler constructs the handler.
func NewResultHandler(completeness completenessService, processing processingService, queries resultQueryService, exports exportService) *ResultHandler {
	return &ResultHandler{completeness: completeness, processing: processing, queries: queries, exports: exports}
}

// Completeness godoc
// @Summary Check mark entry completeness
// @Tags Results
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param examId path string true "Examination ID"
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /examinations/{examId}/classes/{classId}/completeness [get]
func (h *ResultHandler) Completeness(c *gin.Context) {
	tenantID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	report, err := h.completeness.Validate(c.Request.Context(), tenantID, c.Param("examId"), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Process godoc
// @Summary Process class results
// @Description Computes grades, totals and ranks for every active student of the class in one transaction.
// @Tags Results
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param examId path string true "Examination ID"
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 504 {object} response.Envelope
// @Router /examinations/{examId}/classes/{classId}/process [post]
func (h *ResultHandler) Process(c *gin.Context) {
	tenantID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	outcome, err := h.processing.Process(c.Request.Context(), service.ProcessRequest{
		TenantID:      tenantID,
		ExaminationID: c.Param("examId"),
		ClassID:       c.Param("classId"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

// List godoc
// @Summary List examination results
// @Tags Results
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param examId path string true "Examination ID"
// @Param classId query string false "Class ID"
// @Param status query string false "PASS or FAIL"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /examinations/{examId}/results [get]
func (h *ResultHandler) List(c *gin.Context) {
	tenantID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("pageSize"))
	listing, err := h.queries.List(c.Request.Context(), tenantID, c.Param("examId"), models.ResultFilter{
		ClassID:  c.Query("classId"),
		Status:   models.ResultPassStatus(c.Query("status")),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, listing.CacheHit)
	meta := middleware.ExtractMeta(c)
	meta["stats"] = listing.Stats
	response.JSON(c, http.StatusOK, listing.Results, &listing.Pagination, meta)
}

// StudentDetail godoc
// @Summary Get a student's result with subject grades
// @Tags Results
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param examId path string true "Examination ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /examinations/{examId}/students/{studentId}/result [get]
func (h *ResultHandler) StudentDetail(c *gin.Context) {
	tenantID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	detail, err := h.queries.StudentDetail(c.Request.Context(), tenantID, c.Param("examId"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Export godoc
// @Summary Export class result sheet
// @Tags Results
// @Produce text/csv
// @Produce application/pdf
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param examId path string true "Examination ID"
// @Param classId path string true "Class ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /examinations/{examId}/classes/{classId}/results/export [get]
func (h *ResultHandler) Export(c *gin.Context) {
	tenantID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	file, err := h.exports.ClassSheet(c.Request.Context(), tenantID, c.Param("examId"), c.Param("classId"), service.ExportFormat(c.DefaultQuery("format", "csv")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
