package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-exam-results/internal/middleware"
	"github.com/noah-isme/sma-exam-results/internal/models"
	"github.com/noah-isme/sma-exam-results/internal/service"
	appErrors "github.com/noah-isme/sma-exam-results/pkg/errors"
	"github.com/noah-isme/sma-exam-results/pkg/response"
)

type markService interface {
	UpsertMarks(ctx context.Context, req service.MarkBatchRequest) (*service.MarkBatchResult, error)
	UpsertMark(ctx context.Context, tenantID, examID, examSubjectID string, input service.MarkInput, enteredBy *string) (*models.MarkEntry, models.MarkEntryStatus, error)
}

type markEntryResponse struct {
	Entry           *models.MarkEntry      `json:"entry"`
	MarkEntryStatus models.MarkEntryStatus `json:"mark_entry_status"`
}

// MarkHandler accepts raw mark entry.
type MarkHandler struct {
	marks markService
}

// NewMarkHandler constructs the handler.
func NewMarkHandler(marks markService) *MarkHandler {
	return &MarkHandler{marks: marks}
}

// Upsert godoc
// @Summary Enter marks for an exam subject
// @Description Creates or replaces marks per student and recounts the subject's entry status.
// @Tags Marks
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param examId path string true "Examination ID"
// @Param subjectId path string true "Exam subject ID"
// @Param payload body service.MarkBatchRequest true "Marks"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /examinations/{examId}/subjects/{subjectId}/marks [post]
func (h *MarkHandler) Upsert(c *gin.Context) {
	tenantID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	var req service.MarkBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	req.TenantID = tenantID
	req.ExaminationID = c.Param("examId")
	req.ExamSubjectID = c.Param("subjectId")
	if actor := middleware.ActorID(c); actor != nil {
		req.EnteredBy = actor
	}

	result, err := h.marks.UpsertMarks(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// UpsertOne godoc
// @Summary Enter marks for one student
// @Description Creates or replaces a single student's marks for an exam subject. The student comes from the path.
// @Tags Marks
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param examId path string true "Examination ID"
// @Param subjectId path string true "Exam subject ID"
// @Param studentId path string true "Student ID"
// @Param payload body service.MarkInput true "Marks"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /examinations/{examId}/subjects/{subjectId}/marks/{studentId} [put]
func (h *MarkHandler) UpsertOne(c *gin.Context) {
	tenantID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	var input service.MarkInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	input.StudentID = c.Param("studentId")

	entry, status, err := h.marks.UpsertMark(c.Request.Context(), tenantID, c.Param("examId"), c.Param("subjectId"), input, middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, markEntryResponse{Entry: entry, MarkEntryStatus: status}, nil)
}
