package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-exam-results/internal/middleware"
	"github.com/noah-isme/sma-exam-results/internal/models"
	"github.com/noah-isme/sma-exam-results/internal/service"
	appErrors "github.com/noah-isme/sma-exam-results/pkg/errors"
	"github.com/noah-isme/sma-exam-results/pkg/response"
)

type publicationService interface {
	Get(ctx context.Context, tenantID, examID string) (*models.Publication, error)
	Publish(ctx context.Context, req service.PublicationRequest) (*service.PublicationOutcome, error)
	Unpublish(ctx context.Context, req service.PublicationRequest) (*service.PublicationOutcome, error)
	Clear(ctx context.Context, req service.ClearRequest) (*service.PublicationOutcome, error)
}

// publicationScope is the optional body of publish and unpublish.
type publicationScope struct {
	ClassID string `json:"class_id"`
}

// clearBody must carry confirm "yes".
type clearBody struct {
	ClassID string `json:"class_id"`
	Confirm string `json:"confirm"`
}

// PublicationHandler exposes the publication state machine.
type PublicationHandler struct {
	publications publicationService
}

// NewPublicationHandler constructs the handler.
func NewPublicationHandler(publications publicationService) *PublicationHandler {
	return &PublicationHandler{publications: publications}
}

// Get godoc
// @Summary Get publication state
// @Tags Publication
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param examId path string true "Examination ID"
// @Success 200 {object} response.Envelope
// @Router /examinations/{examId}/publication [get]
func (h *PublicationHandler) Get(c *gin.Context) {
	tenantID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	pub, err := h.publications.Get(c.Request.Context(), tenantID, c.Param("examId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pub, nil)
}

// Publish godoc
// @Summary Publish results
// @Tags Publication
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param examId path string true "Examination ID"
// @Param payload body publicationScope false "Optional class scope"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /examinations/{examId}/publish [post]
func (h *PublicationHandler) Publish(c *gin.Context) {
	h.transition(c, h.publications.Publish)
}

// Unpublish godoc
// @Summary Unpublish results
// @Tags Publication
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param examId path string true "Examination ID"
// @Param payload body publicationScope false "Optional class scope"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /examinations/{examId}/unpublish [post]
func (h *PublicationHandler) Unpublish(c *gin.Context) {
	h.transition(c, h.publications.Unpublish)
}

func (h *PublicationHandler) transition(c *gin.Context, op func(context.Context, service.PublicationRequest) (*service.PublicationOutcome, error)) {
	tenantID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	var body publicationScope
	if !bindOptionalJSON(c, &body) {
		return
	}
	outcome, err := op(c.Request.Context(), service.PublicationRequest{
		TenantID:      tenantID,
		ExaminationID: c.Param("examId"),
		ClassID:       body.ClassID,
		ActorID:       middleware.ActorID(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

// Clear godoc
// @Summary Clear results
// @Description Deletes results, erases subject grades and resets publication to DRAFT. Requires confirm "yes".
// @Tags Publication
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param examId path string true "Examination ID"
// @Param payload body clearBody true "Scope and confirmation"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /examinations/{examId}/clear [post]
func (h *PublicationHandler) Clear(c *gin.Context) {
	tenantID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	var body clearBody
	if !bindOptionalJSON(c, &body) {
		return
	}
	if !strings.EqualFold(strings.TrimSpace(body.Confirm), "yes") {
		response.Error(c, appErrors.Clone(appErrors.ErrConfirmationRequired, `set "confirm" to "yes" to clear results`))
		return
	}
	outcome, err := h.publications.Clear(c.Request.Context(), service.ClearRequest{
		PublicationRequest: service.PublicationRequest{
			TenantID:      tenantID,
			ExaminationID: c.Param("examId"),
			ClassID:       body.ClassID,
			ActorID:       middleware.ActorID(c),
		},
		Confirmed: true,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}
