package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-exam-results/internal/models"
	"github.com/noah-isme/sma-exam-results/internal/service"
	appErrors "github.com/noah-isme/sma-exam-results/pkg/errors"
	"github.com/noah-isme/sma-exam-results/pkg/response"
)

type gradeScaleService interface {
	List(ctx context.Context, tenantID string) (models.GradeScale, error)
	Create(ctx context.Context, tenantID string, req service.CreateGradeScaleRequest) (*models.GradeScaleEntry, error)
	CreateDefault(ctx context.Context, tenantID string) (models.GradeScale, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// GradeScaleHandler manages tenant grade bands.
type GradeScaleHandler struct {
	scales gradeScaleService
}

// NewGradeScaleHandler constructs the handler.
func NewGradeScaleHandler(scales gradeScaleService) *GradeScaleHandler {
	return &GradeScaleHandler{scales: scales}
}

// List godoc
// @Summary List grade scale
// @Tags GradeScales
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Success 200 {object} response.Envelope
// @Router /grade-scales [get]
func (h *GradeScaleHandler) List(c *gin.Context) {
	tenantID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	scale, err := h.scales.List(c.Request.Context(), tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scale, nil)
}

// Create godoc
// @Summary Create grade band
// @Description Rejects bands overlapping an existing band of the tenant.
// @Tags GradeScales
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param payload body service.CreateGradeScaleRequest true "Grade band"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grade-scales [post]
func (h *GradeScaleHandler) Create(c *gin.Context) {
	tenantID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	var req service.CreateGradeScaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	entry, err := h.scales.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// CreateDefault godoc
// @Summary Install default grade scale
// @Tags GradeScales
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /grade-scales/default [post]
func (h *GradeScaleHandler) CreateDefault(c *gin.Context) {
	tenantID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	scale, err := h.scales.CreateDefault(c.Request.Context(), tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, scale)
}

// Delete godoc
// @Summary Delete grade band
// @Tags GradeScales
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Grade band ID"
// @Success 204
// @Router /grade-scales/{id} [delete]
func (h *GradeScaleHandler) Delete(c *gin.Context) {
	tenantID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	if err := h.scales.Delete(c.Request.Context(), tenantID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
