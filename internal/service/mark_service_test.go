package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-exam-results/internal/models"
	appErrors "github.com/noah-isme/sma-exam-results/pkg/errors"
)

const (
	testTenant = "tenant-1"
	testExam   = "exam-1"
	testClass  = "class-1"
)

type classFixture struct {
	exams    *fakeExams
	students *fakeStudents
	marks    *fakeMarks
	scales   *fakeScales
	results  *fakeResults
}

func newClassFixture() *classFixture {
	exams := &fakeExams{
		exam: &models.Examination{ID: testExam, TenantID: testTenant, Name: "Mid Term", TotalMarks: 200, PassingMarks: 70},
		subjects: []models.ExamSubject{
			{ID: "es-math", ExaminationID: testExam, ClassID: testClass, SubjectName: "Mathematics", TheoryMarks: 80, PracticalMarks: 20, TotalMarks: 100, PassingMarks: 35, MarkEntryStatus: models.MarkEntryPending},
			{ID: "es-sci", ExaminationID: testExam, ClassID: testClass, SubjectName: "Science", TheoryMarks: 100, TotalMarks: 100, PassingMarks: 35, MarkEntryStatus: models.MarkEntryPending},
		},
	}
	students := &fakeStudents{students: []models.Student{
		{ID: "stu-1", TenantID: testTenant, ClassID: testClass, FullName: "Asha", Status: models.StudentActive},
		{ID: "stu-2", TenantID: testTenant, ClassID: testClass, FullName: "Bima", Status: models.StudentActive},
		{ID: "stu-3", TenantID: testTenant, ClassID: testClass, FullName: "Citra", Status: models.StudentDeparted},
	}}
	scale := defaultGradeScale(testTenant)
	return &classFixture{
		exams:    exams,
		students: students,
		marks:    &fakeMarks{students: students},
		scales:   &fakeScales{scale: scale},
		results:  &fakeResults{names: map[string]string{"stu-1": "Asha", "stu-2": "Bima"}},
	}
}

func (f *classFixture) enter(subjectID, studentID string, theory float64) {
	f.marks.entries = append(f.marks.entries, models.MarkEntry{
		ID:             subjectID + "-" + studentID,
		ExaminationID:  testExam,
		ExamSubjectID:  subjectID,
		StudentID:      studentID,
		TheoryObtained: floatPtr(theory),
		TotalObtained:  theory,
		IsPassed:       theory >= 35,
	})
}

func newMarkServiceFixture(t *testing.T) (*MarkService, *classFixture, sqlmock.Sqlmock) {
	db, mock := newTxProviderMock(t)
	fx := newClassFixture()
	return NewMarkService(db, fx.exams, fx.students, fx.marks, nil, nil), fx, mock
}

func TestMarkServiceUpsertMarksRecountsStatus(t *testing.T) {
	svc, fx, mock := newMarkServiceFixture(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectCommit()
	res, err := svc.UpsertMarks(ctx, MarkBatchRequest{
		TenantID:      testTenant,
		ExaminationID: testExam,
		ExamSubjectID: "es-math",
		EnteredBy:     strPtr("teacher-1"),
		Entries: []MarkInput{
			{StudentID: "stu-1", TheoryObtained: floatPtr(60), PracticalObtained: floatPtr(15)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Entered)
	assert.Equal(t, 2, res.Eligible)
	assert.Equal(t, models.MarkEntryInProgress, res.Status)
	assert.Equal(t, 75.0, res.Entries[0].TotalObtained)
	assert.True(t, res.Entries[0].IsPassed)

	mock.ExpectBegin()
	mock.ExpectCommit()
	entry, status, err := svc.UpsertMark(ctx, testTenant, testExam, "es-math", MarkInput{StudentID: "stu-2", IsAbsent: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MarkEntryCompleted, status)
	assert.Zero(t, entry.TotalObtained)
	assert.False(t, entry.IsPassed)
	assert.Equal(t, models.MarkEntryCompleted, fx.exams.statusUpdates["es-math"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkServiceUpsertMarksReplacesExistingEntry(t *testing.T) {
	svc, fx, mock := newMarkServiceFixture(t)
	fx.enter("es-sci", "stu-1", 20)

	mock.ExpectBegin()
	mock.ExpectCommit()
	res, err := svc.UpsertMarks(context.Background(), MarkBatchRequest{
		TenantID:      testTenant,
		ExaminationID: testExam,
		ExamSubjectID: "es-sci",
		Entries:       []MarkInput{{StudentID: "stu-1", TheoryObtained: floatPtr(55)}},
	})
	require.NoError(t, err)
	require.Len(t, fx.marks.entries, 1)
	assert.Equal(t, 55.0, fx.marks.entries[0].TotalObtained)
	assert.Equal(t, 1, res.Entered)
}

func TestMarkServiceRejectsDuplicateStudents(t *testing.T) {
	svc, _, mock := newMarkServiceFixture(t)

	_, err := svc.UpsertMarks(context.Background(), MarkBatchRequest{
		TenantID:      testTenant,
		ExaminationID: testExam,
		ExamSubjectID: "es-math",
		Entries:       []MarkInput{{StudentID: "stu-1"}, {StudentID: "stu-1"}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkServiceRejectsMarksAboveMaximum(t *testing.T) {
	svc, fx, mock := newMarkServiceFixture(t)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := svc.UpsertMarks(context.Background(), MarkBatchRequest{
		TenantID:      testTenant,
		ExaminationID: testExam,
		ExamSubjectID: "es-math",
		Entries:       []MarkInput{{StudentID: "stu-1", PracticalObtained: floatPtr(25)}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, fx.marks.entries)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkServiceRejectsInactiveStudent(t *testing.T) {
	svc, fx, mock := newMarkServiceFixture(t)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := svc.UpsertMarks(context.Background(), MarkBatchRequest{
		TenantID:      testTenant,
		ExaminationID: testExam,
		ExamSubjectID: "es-math",
		Entries:       []MarkInput{{StudentID: "stu-3", TheoryObtained: floatPtr(40)}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, fx.marks.entries)
}

func TestMarkServiceUnknownExaminationForTenant(t *testing.T) {
	svc, _, mock := newMarkServiceFixture(t)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := svc.UpsertMarks(context.Background(), MarkBatchRequest{
		TenantID:      "tenant-2",
		ExaminationID: testExam,
		ExamSubjectID: "es-math",
		Entries:       []MarkInput{{StudentID: "stu-1", TheoryObtained: floatPtr(40)}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestMarkServiceLastSubmissionCompletesSubject(t *testing.T) {
	svc, fx, mock := newMarkServiceFixture(t)
	fx.students.students = nil
	for i := 1; i <= 30; i++ {
		fx.students.students = append(fx.students.students, models.Student{
			ID: fmt.Sprintf("s-%02d", i), TenantID: testTenant, ClassID: testClass, Status: models.StudentActive,
		})
	}
	for i := 1; i <= 29; i++ {
		fx.enter("es-sci", fmt.Sprintf("s-%02d", i), 50)
	}
	fx.exams.subjects[1].MarkEntryStatus = models.MarkEntryInProgress

	mock.ExpectBegin()
	mock.ExpectCommit()
	res, err := svc.UpsertMarks(context.Background(), MarkBatchRequest{
		TenantID:      testTenant,
		ExaminationID: testExam,
		ExamSubjectID: "es-sci",
		Entries:       []MarkInput{{StudentID: "s-29", TheoryObtained: floatPtr(51)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 29, res.Entered)
	assert.Equal(t, models.MarkEntryInProgress, res.Status)
	assert.NotContains(t, fx.exams.statusUpdates, "es-sci")

	mock.ExpectBegin()
	mock.ExpectCommit()
	res, err = svc.UpsertMarks(context.Background(), MarkBatchRequest{
		TenantID:      testTenant,
		ExaminationID: testExam,
		ExamSubjectID: "es-sci",
		Entries:       []MarkInput{{StudentID: "s-30", TheoryObtained: floatPtr(42)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 30, res.Entered)
	assert.Equal(t, 30, res.Eligible)
	assert.Equal(t, models.MarkEntryCompleted, res.Status)
	assert.Equal(t, models.MarkEntryCompleted, fx.exams.statusUpdates["es-sci"])
	require.NoError(t, mock.ExpectationsWereMet())
}
