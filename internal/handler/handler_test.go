package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-exam-results/internal/middleware"
	"github.com/noah-isme/sma-exam-results/internal/models"
	"github.com/noah-isme/sma-exam-results/internal/service"
	appErrors "github.com/noah-isme/sma-exam-results/pkg/errors"
)

type publicationServiceMock struct {
	lastRequest service.PublicationRequest
	lastClear   *service.ClearRequest
	outcome     *service.PublicationOutcome
	err         error
}

func (m *publicationServiceMock) Get(ctx context.Context, tenantID, examID string) (*models.Publication, error) {
	return &models.Publication{ExaminationID: examID, Status: models.PublicationDraft}, m.err
}

func (m *publicationServiceMock) Publish(ctx context.Context, req service.PublicationRequest) (*service.PublicationOutcome, error) {
	m.lastRequest = req
	return m.outcome, m.err
}

func (m *publicationServiceMock) Unpublish(ctx context.Context, req service.PublicationRequest) (*service.PublicationOutcome, error) {
	m.lastRequest = req
	return m.outcome, m.err
}

func (m *publicationServiceMock) Clear(ctx context.Context, req service.ClearRequest) (*service.PublicationOutcome, error) {
	m.lastClear = &req
	return m.outcome, m.err
}

type processingServiceMock struct {
	err error
}

func (m *processingServiceMock) Process(ctx context.Context, req service.ProcessRequest) (*service.ProcessingOutcome, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &service.ProcessingOutcome{ExaminationID: req.ExaminationID, ClassID: req.ClassID, ProcessedCount: 2}, nil
}

type queryServiceMock struct {
	filter    models.ResultFilter
	studentID string
	err       error
}

func (m *queryServiceMock) StudentDetail(ctx context.Context, tenantID, examID, studentID string) (*service.StudentResult, error) {
	m.studentID = studentID
	if m.err != nil {
		return nil, m.err
	}
	grade, point := "B", 3.0
	return &service.StudentResult{
		Result: models.ResultView{Result: models.Result{ExaminationID: examID, StudentID: studentID, Percentage: 72}, StudentName: "Asha"},
		Subjects: []models.StudentSubjectMark{
			{SubjectName: "Mathematics", TotalObtained: 72, IsPassed: true, Grade: &grade, GradePoint: &point},
			{SubjectName: "Science", IsAbsent: true},
		},
	}, nil
}

func (m *queryServiceMock) List(ctx context.Context, tenantID, examID string, filter models.ResultFilter) (*service.ResultListing, error) {
	m.filter = filter
	return &service.ResultListing{
		Results:    []models.ResultView{{StudentName: "Asha"}},
		Stats:      models.ResultStats{Total: 1, Passed: 1, PassPercentage: 100},
		Pagination: models.Pagination{Page: 1, PageSize: 50, TotalCount: 1},
		CacheHit:   true,
	}, nil
}

type exportServiceMock struct{}

func (exportServiceMock) ClassSheet(ctx context.Context, tenantID, examID, classID string, format service.ExportFormat) (*service.ExportFile, error) {
	if format != service.ExportCSV {
		return nil, appErrors.ErrUnsupportedFormat
	}
	return &service.ExportFile{Filename: "results.csv", ContentType: "text/csv", Data: []byte("Rank\n1\n")}, nil
}

type markServiceMock struct {
	req       service.MarkBatchRequest
	single    service.MarkInput
	subjectID string
	enteredBy *string
}

func (m *markServiceMock) UpsertMark(ctx context.Context, tenantID, examID, examSubjectID string, input service.MarkInput, enteredBy *string) (*models.MarkEntry, models.MarkEntryStatus, error) {
	m.single = input
	m.subjectID = examSubjectID
	m.enteredBy = enteredBy
	return &models.MarkEntry{ID: "mark-1", ExaminationID: examID, ExamSubjectID: examSubjectID, StudentID: input.StudentID}, models.MarkEntryInProgress, nil
}

func (m *markServiceMock) UpsertMarks(ctx context.Context, req service.MarkBatchRequest) (*service.MarkBatchResult, error) {
	m.req = req
	return &service.MarkBatchResult{ExamSubjectID: req.ExamSubjectID, Status: models.MarkEntryCompleted}, nil
}

func newTestRouter(register func(r gin.IRoutes)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api", middleware.WithResponseMeta(), middleware.Tenant())
	register(api)
	return r
}

func doRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderTenantID, "tenant-1")
	req.Header.Set(middleware.HeaderActorID, "admin-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestPublicationHandlerPublishPassesScope(t *testing.T) {
	svc := &publicationServiceMock{outcome: &service.PublicationOutcome{Status: models.PublicationPublished, AffectedStudents: 2}}
	h := NewPublicationHandler(svc)
	r := newTestRouter(func(api gin.IRoutes) { api.POST("/examinations/:examId/publish", h.Publish) })

	w := doRequest(r, http.MethodPost, "/api/examinations/exam-1/publish", map[string]string{"class_id": "class-1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tenant-1", svc.lastRequest.TenantID)
	assert.Equal(t, "exam-1", svc.lastRequest.ExaminationID)
	assert.Equal(t, "class-1", svc.lastRequest.ClassID)
	require.NotNil(t, svc.lastRequest.ActorID)
	assert.Equal(t, "admin-1", *svc.lastRequest.ActorID)

	w = doRequest(r, http.MethodPost, "/api/examinations/exam-1/publish", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.lastRequest.ClassID)
}

func TestPublicationHandlerMapsInvalidTransition(t *testing.T) {
	svc := &publicationServiceMock{err: appErrors.Clone(appErrors.ErrInvalidTransition, "cannot unpublish")}
	h := NewPublicationHandler(svc)
	r := newTestRouter(func(api gin.IRoutes) { api.POST("/examinations/:examId/unpublish", h.Unpublish) })

	w := doRequest(r, http.MethodPost, "/api/examinations/exam-1/unpublish", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPublicationHandlerClearNeedsYes(t *testing.T) {
	svc := &publicationServiceMock{outcome: &service.PublicationOutcome{Status: models.PublicationDraft}}
	h := NewPublicationHandler(svc)
	r := newTestRouter(func(api gin.IRoutes) { api.POST("/examinations/:examId/clear", h.Clear) })

	w := doRequest(r, http.MethodPost, "/api/examinations/exam-1/clear", map[string]string{"confirm": "no"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.lastClear)

	w = doRequest(r, http.MethodPost, "/api/examinations/exam-1/clear", map[string]string{"confirm": "yes", "class_id": "class-1"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastClear)
	assert.True(t, svc.lastClear.Confirmed)
	assert.Equal(t, "class-1", svc.lastClear.ClassID)
}

func TestResultHandlerProcessIncomplete(t *testing.T) {
	incomplete := &service.IncompleteMarksError{Subjects: []service.IncompleteSubject{{SubjectName: "Science", Entered: 29, Expected: 30}}}
	h := NewResultHandler(nil, &processingServiceMock{err: incomplete}, nil, nil)
	r := newTestRouter(func(api gin.IRoutes) { api.POST("/examinations/:examId/classes/:classId/process", h.Process) })

	w := doRequest(r, http.MethodPost, "/api/examinations/exam-1/classes/class-1/process", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeEnvelope(t, w)
	assert.Equal(t, "INCOMPLETE_MARKS", body["error"].(map[string]interface{})["code"])
	assert.Contains(t, body["meta"], "incomplete_subjects")
}

func TestResultHandlerProcessConflict(t *testing.T) {
	h := NewResultHandler(nil, &processingServiceMock{err: appErrors.ErrProcessingInProgress}, nil, nil)
	r := newTestRouter(func(api gin.IRoutes) { api.POST("/examinations/:examId/classes/:classId/process", h.Process) })

	w := doRequest(r, http.MethodPost, "/api/examinations/exam-1/classes/class-1/process", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestResultHandlerListAddsStatsMeta(t *testing.T) {
	queries := &queryServiceMock{}
	h := NewResultHandler(nil, nil, queries, nil)
	r := newTestRouter(func(api gin.IRoutes) { api.GET("/examinations/:examId/results", h.List) })

	w := doRequest(r, http.MethodGet, "/api/examinations/exam-1/results?classId=class-1&status=PASS&page=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ResultFilter{ClassID: "class-1", Status: models.ResultPass, Page: 2}, queries.filter)

	body := decodeEnvelope(t, w)
	meta := body["meta"].(map[string]interface{})
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "stats")
	assert.Contains(t, body, "pagination")
}

func TestResultHandlerExport(t *testing.T) {
	h := NewResultHandler(nil, nil, nil, exportServiceMock{})
	r := newTestRouter(func(api gin.IRoutes) {
		api.GET("/examinations/:examId/classes/:classId/results/export", h.Export)
	})

	w := doRequest(r, http.MethodGet, "/api/examinations/exam-1/classes/class-1/results/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "results.csv")

	w = doRequest(r, http.MethodGet, "/api/examinations/exam-1/classes/class-1/results/export?format=xlsx", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarkHandlerFillsPathAndActor(t *testing.T) {
	marks := &markServiceMock{}
	h := NewMarkHandler(marks)
	r := newTestRouter(func(api gin.IRoutes) { api.POST("/examinations/:examId/subjects/:subjectId/marks", h.Upsert) })

	theory := 41.5
	w := doRequest(r, http.MethodPost, "/api/examinations/exam-1/subjects/es-1/marks", map[string]interface{}{
		"entries": []service.MarkInput{{StudentID: "stu-1", TheoryObtained: &theory}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tenant-1", marks.req.TenantID)
	assert.Equal(t, "exam-1", marks.req.ExaminationID)
	assert.Equal(t, "es-1", marks.req.ExamSubjectID)
	require.NotNil(t, marks.req.EnteredBy)
	assert.Equal(t, "admin-1", *marks.req.EnteredBy)
	require.Len(t, marks.req.Entries, 1)
	assert.Equal(t, 41.5, *marks.req.Entries[0].TheoryObtained)
}

func TestMarkHandlerUpsertOneTakesStudentFromPath(t *testing.T) {
	marks := &markServiceMock{}
	h := NewMarkHandler(marks)
	r := newTestRouter(func(api gin.IRoutes) {
		api.PUT("/examinations/:examId/subjects/:subjectId/marks/:studentId", h.UpsertOne)
	})

	theory := 55.0
	w := doRequest(r, http.MethodPut, "/api/examinations/exam-1/subjects/es-1/marks/stu-7", map[string]interface{}{
		"student_id":      "stu-other",
		"theory_obtained": theory,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stu-7", marks.single.StudentID)
	assert.Equal(t, "es-1", marks.subjectID)
	require.NotNil(t, marks.single.TheoryObtained)
	assert.Equal(t, 55.0, *marks.single.TheoryObtained)
	require.NotNil(t, marks.enteredBy)
	assert.Equal(t, "admin-1", *marks.enteredBy)

	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, string(models.MarkEntryInProgress), data["mark_entry_status"])
	assert.Equal(t, "stu-7", data["entry"].(map[string]interface{})["student_id"])
}

func TestResultHandlerStudentDetail(t *testing.T) {
	queries := &queryServiceMock{}
	h := NewResultHandler(nil, nil, queries, nil)
	r := newTestRouter(func(api gin.IRoutes) { api.GET("/examinations/:examId/students/:studentId/result", h.StudentDetail) })

	w := doRequest(r, http.MethodGet, "/api/examinations/exam-1/students/stu-1/result", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stu-1", queries.studentID)

	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Asha", data["result"].(map[string]interface{})["student_name"])
	subjects := data["subjects"].([]interface{})
	require.Len(t, subjects, 2)
	first := subjects[0].(map[string]interface{})
	assert.Equal(t, "B", first["grade"])
	assert.Equal(t, 3.0, first["grade_point"])
	second := subjects[1].(map[string]interface{})
	assert.Equal(t, true, second["is_absent"])
	assert.Nil(t, second["grade"])
	assert.Nil(t, second["grade_point"])

	queries.err = appErrors.Clone(appErrors.ErrNotFound, "result not found for student")
	w = doRequest(r, http.MethodGet, "/api/examinations/exam-1/students/stu-9/result", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := NewMetricsHandler(service.NewMetricsService(), map[string]Pinger{
		"postgres": pingerFunc(func(ctx context.Context) error { return nil }),
	})
	r := gin.New()
	r.GET("/ready", healthy.Ready)
	r.GET("/health", healthy.Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	failing := NewMetricsHandler(nil, map[string]Pinger{
		"redis": pingerFunc(func(ctx context.Context) error { return errors.New("dial tcp: refused") }),
	})
	r = gin.New()
	r.GET("/ready", failing.Ready)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
