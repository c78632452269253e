package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-exam-results/internal/models"
	appErrors "github.com/noah-isme/sma-exam-results/pkg/errors"
)

type memoryCache struct {
	values  map[string][]models.ResultView
	deleted []string
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	v, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*[]models.ResultView)) = v
	return nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.values[key] = value.([]models.ResultView)
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	m.values = map[string][]models.ResultView{}
	return nil
}

func newQueryFixture(t *testing.T) (*ResultQueryService, *classFixture, *memoryCache) {
	db, _ := newTxProviderMock(t)
	fx := newClassFixture()
	fx.results.rows = []models.Result{
		{ID: "r1", ExaminationID: testExam, StudentID: "stu-1", ClassID: testClass, Percentage: 75, IsPassed: true},
		{ID: "r2", ExaminationID: testExam, StudentID: "stu-2", ClassID: testClass, Percentage: 30, IsPassed: false},
		{ID: "r3", ExaminationID: testExam, StudentID: "stu-5", ClassID: testClass, Percentage: 50, IsPassed: true},
	}
	store := &memoryCache{values: map[string][]models.ResultView{}}
	cache := NewResultCache(store, nil, time.Minute, nil, true)
	return NewResultQueryService(db, fx.exams, fx.results, fx.marks, cache, nil), fx, store
}

func TestResultQueryListStats(t *testing.T) {
	svc, _, _ := newQueryFixture(t)

	listing, err := svc.List(context.Background(), testTenant, testExam, models.ResultFilter{ClassID: testClass})
	require.NoError(t, err)
	assert.Len(t, listing.Results, 3)
	assert.Equal(t, models.ResultStats{
		Total:             3,
		Passed:            2,
		Failed:            1,
		PassPercentage:    66.67,
		FailPercentage:    33.33,
		AveragePercentage: 51.67,
	}, listing.Stats)
	assert.Equal(t, "Asha", listing.Results[0].StudentName)
}

func TestResultQueryFiltersAndPaginates(t *testing.T) {
	svc, _, _ := newQueryFixture(t)

	listing, err := svc.List(context.Background(), testTenant, testExam, models.ResultFilter{Status: "pass", Page: 2, PageSize: 1})
	require.NoError(t, err)
	require.Len(t, listing.Results, 1)
	assert.Equal(t, 50.0, listing.Results[0].Percentage)
	assert.Equal(t, 2, listing.Stats.Total)
	assert.Equal(t, models.Pagination{Page: 2, PageSize: 1, TotalCount: 2}, listing.Pagination)

	listing, err = svc.List(context.Background(), testTenant, testExam, models.ResultFilter{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, listing.Results)
}

func TestResultQueryServesFromCache(t *testing.T) {
	svc, fx, store := newQueryFixture(t)
	ctx := context.Background()

	_, err := svc.List(ctx, testTenant, testExam, models.ResultFilter{ClassID: testClass})
	require.NoError(t, err)
	assert.Contains(t, store.values, "results:exam-1:class-1:any")

	fx.results.rows = nil
	listing, err := svc.List(ctx, testTenant, testExam, models.ResultFilter{ClassID: testClass})
	require.NoError(t, err)
	assert.Len(t, listing.Results, 3)
	assert.True(t, listing.CacheHit)
}

func TestResultQueryRejectsBadStatus(t *testing.T) {
	svc, _, _ := newQueryFixture(t)

	_, err := svc.List(context.Background(), testTenant, testExam, models.ResultFilter{Status: "maybe"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.List(context.Background(), "tenant-2", testExam, models.ResultFilter{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestResultQueryStudentDetailIncludesSubjectGrades(t *testing.T) {
	svc, fx, _ := newQueryFixture(t)
	fx.marks.subjectNames = map[string]string{"es-math": "Mathematics", "es-sci": "Science"}
	fx.enter("es-math", "stu-1", 72)
	fx.marks.entries = append(fx.marks.entries, models.MarkEntry{ID: "es-sci-stu-1", ExaminationID: testExam, ExamSubjectID: "es-sci", StudentID: "stu-1", IsAbsent: true})
	fx.enter("es-math", "stu-2", 20)
	require.NoError(t, fx.marks.UpdateGrades(context.Background(), nil, []models.MarkGradeUpdate{
		{MarkEntryID: "es-math-stu-1", Grade: "B", GradePoint: 3, IsPassed: true},
	}))

	detail, err := svc.StudentDetail(context.Background(), testTenant, testExam, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "r1", detail.Result.ID)
	assert.Equal(t, "Asha", detail.Result.StudentName)
	require.Len(t, detail.Subjects, 2)

	mathematics := detail.Subjects[0]
	assert.Equal(t, "Mathematics", mathematics.SubjectName)
	require.NotNil(t, mathematics.Grade)
	assert.Equal(t, "B", *mathematics.Grade)
	assert.Equal(t, 3.0, *mathematics.GradePoint)
	assert.True(t, mathematics.IsPassed)

	sci := detail.Subjects[1]
	assert.True(t, sci.IsAbsent)
	assert.Nil(t, sci.Grade)
	assert.Nil(t, sci.GradePoint)
}

func TestResultQueryStudentDetailNotFound(t *testing.T) {
	svc, _, _ := newQueryFixture(t)

	_, err := svc.StudentDetail(context.Background(), testTenant, testExam, "stu-9")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.StudentDetail(context.Background(), "other-tenant", testExam, "stu-1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestResultQueryStudentDetailWithoutMarks(t *testing.T) {
	svc, _, _ := newQueryFixture(t)

	detail, err := svc.StudentDetail(context.Background(), testTenant, testExam, "stu-5")
	require.NoError(t, err)
	assert.NotNil(t, detail.Subjects)
	assert.Empty(t, detail.Subjects)
}
