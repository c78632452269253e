package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-exam-results/internal/models"
)

type txProviderMock struct {
	*sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{DB: sqlxdb}, mock
}

func floatPtr(v float64) *float64 { return &v }

func strPtr(v string) *string { return &v }

type fakeExams struct {
	exam          *models.Examination
	subjects      []models.ExamSubject
	statusUpdates map[string]models.MarkEntryStatus
}

func (f *fakeExams) FindByID(ctx context.Context, q sqlx.ExtContext, tenantID, id string) (*models.Examination, error) {
	if f.exam == nil || f.exam.ID != id || f.exam.TenantID != tenantID {
		return nil, fmt.Errorf("find examination: %w", sql.ErrNoRows)
	}
	exam := *f.exam
	return &exam, nil
}

func (f *fakeExams) ListSubjectsForClass(ctx context.Context, q sqlx.ExtContext, examID, classID string) ([]models.ExamSubject, error) {
	var out []models.ExamSubject
	for _, s := range f.subjects {
		if s.ExaminationID == examID && s.ClassID == classID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeExams) GetSubjectForUpdate(ctx context.Context, tx *sqlx.Tx, examID, examSubjectID string) (*models.ExamSubject, error) {
	for _, s := range f.subjects {
		if s.ID == examSubjectID && s.ExaminationID == examID {
			subject := s
			return &subject, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeExams) UpdateSubjectStatus(ctx context.Context, tx *sqlx.Tx, examSubjectID string, status models.MarkEntryStatus) error {
	if f.statusUpdates == nil {
		f.statusUpdates = map[string]models.MarkEntryStatus{}
	}
	f.statusUpdates[examSubjectID] = status
	for i := range f.subjects {
		if f.subjects[i].ID == examSubjectID {
			f.subjects[i].MarkEntryStatus = status
		}
	}
	return nil
}

type fakeStudents struct {
	students []models.Student
}

func (f *fakeStudents) ListActiveByClass(ctx context.Context, q sqlx.ExtContext, tenantID, classID string) ([]models.Student, error) {
	var out []models.Student
	for _, s := range f.students {
		if s.TenantID == tenantID && s.ClassID == classID && s.Status == models.StudentActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStudents) CountActiveByClass(ctx context.Context, q sqlx.ExtContext, tenantID, classID string) (int, error) {
	active, _ := f.ListActiveByClass(ctx, q, tenantID, classID)
	return len(active), nil
}

func (f *fakeStudents) FilterActiveInClass(ctx context.Context, q sqlx.ExtContext, tenantID, classID string, studentIDs []string) (map[string]struct{}, error) {
	active, _ := f.ListActiveByClass(ctx, q, tenantID, classID)
	members := map[string]struct{}{}
	for _, s := range active {
		for _, id := range studentIDs {
			if s.ID == id {
				members[id] = struct{}{}
			}
		}
	}
	return members, nil
}

type fakeMarks struct {
	students     *fakeStudents
	subjectNames map[string]string
	entries      []models.MarkEntry
	gradeUpdates []models.MarkGradeUpdate
	clearCalls   int
	cleared      int64
}

func (f *fakeMarks) Upsert(ctx context.Context, tx *sqlx.Tx, entry *models.MarkEntry) error {
	for i, existing := range f.entries {
		if existing.ExamSubjectID == entry.ExamSubjectID && existing.StudentID == entry.StudentID {
			entry.ID = existing.ID
			f.entries[i] = *entry
			return nil
		}
	}
	entry.ID = fmt.Sprintf("mark-%d", len(f.entries)+1)
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeMarks) CountEntered(ctx context.Context, q sqlx.ExtContext, tenantID, classID string, examSubjectIDs []string) (map[string]int, error) {
	active := map[string]bool{}
	if f.students != nil {
		list, _ := f.students.ListActiveByClass(ctx, q, tenantID, classID)
		for _, s := range list {
			active[s.ID] = true
		}
	}
	counts := map[string]int{}
	for _, e := range f.entries {
		for _, id := range examSubjectIDs {
			if e.ExamSubjectID == id && active[e.StudentID] {
				counts[id]++
			}
		}
	}
	return counts, nil
}

func (f *fakeMarks) ListForSubjects(ctx context.Context, q sqlx.ExtContext, examID string, examSubjectIDs []string) ([]models.MarkEntry, error) {
	var out []models.MarkEntry
	for _, e := range f.entries {
		for _, id := range examSubjectIDs {
			if e.ExamSubjectID == id {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func (f *fakeMarks) ListByStudent(ctx context.Context, q sqlx.ExtContext, examID, studentID string) ([]models.StudentSubjectMark, error) {
	var out []models.StudentSubjectMark
	for _, e := range f.entries {
		if e.ExaminationID != examID || e.StudentID != studentID {
			continue
		}
		out = append(out, models.StudentSubjectMark{
			MarkEntryID:    e.ID,
			ExamSubjectID:  e.ExamSubjectID,
			SubjectName:    f.subjectNames[e.ExamSubjectID],
			TheoryObtained: e.TheoryObtained,
			TotalObtained:  e.TotalObtained,
			IsAbsent:       e.IsAbsent,
			IsPassed:       e.IsPassed,
			Grade:          e.Grade,
			GradePoint:     e.GradePoint,
		})
	}
	return out, nil
}

func (f *fakeMarks) UpdateGrades(ctx context.Context, tx *sqlx.Tx, updates []models.MarkGradeUpdate) error {
	f.gradeUpdates = append(f.gradeUpdates, updates...)
	for _, u := range updates {
		for i := range f.entries {
			if f.entries[i].ID == u.MarkEntryID {
				grade, point := u.Grade, u.GradePoint
				f.entries[i].Grade = &grade
				f.entries[i].GradePoint = &point
				f.entries[i].IsPassed = u.IsPassed
			}
		}
	}
	return nil
}

func (f *fakeMarks) ClearGrades(ctx context.Context, tx *sqlx.Tx, examID, classID string) (int64, error) {
	f.clearCalls++
	n := f.cleared
	for i := range f.entries {
		if f.entries[i].Grade != nil {
			f.entries[i].Grade = nil
			f.entries[i].GradePoint = nil
			f.entries[i].IsPassed = false
			n++
		}
	}
	return n, nil
}

type fakeScales struct {
	scale   models.GradeScale
	created int
}

func (f *fakeScales) ListByTenant(ctx context.Context, q sqlx.ExtContext, tenantID string) (models.GradeScale, error) {
	var out models.GradeScale
	for _, e := range f.scale {
		if e.TenantID == tenantID {
			out = append(out, e)
		}
	}
	return out.Descending(), nil
}

func (f *fakeScales) Create(ctx context.Context, tx *sqlx.Tx, entry *models.GradeScaleEntry) error {
	f.created++
	entry.ID = fmt.Sprintf("band-%d", len(f.scale)+1)
	f.scale = append(f.scale, *entry)
	return nil
}

func (f *fakeScales) Delete(ctx context.Context, tenantID, id string) (bool, error) {
	for i, e := range f.scale {
		if e.ID == id && e.TenantID == tenantID {
			f.scale = append(f.scale[:i], f.scale[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakeLocks struct {
	busy     bool
	acquired []string
	blocking int
	waitErr  error
}

func (f *fakeLocks) TryAcquire(ctx context.Context, tx *sqlx.Tx, key string) (bool, error) {
	if f.busy {
		return false, nil
	}
	f.acquired = append(f.acquired, key)
	return true, nil
}

func (f *fakeLocks) Acquire(ctx context.Context, tx *sqlx.Tx, key string) error {
	f.blocking++
	if f.waitErr != nil {
		return f.waitErr
	}
	f.acquired = append(f.acquired, key)
	return nil
}

type fakeResults struct {
	rows     []models.Result
	names    map[string]string
	upserts  int
	setCalls int
	deleted  int
}

func (f *fakeResults) Upsert(ctx context.Context, tx *sqlx.Tx, result *models.Result) error {
	f.upserts++
	for i, existing := range f.rows {
		if existing.ExaminationID == result.ExaminationID && existing.StudentID == result.StudentID {
			result.ID = existing.ID
			result.IsPublished = existing.IsPublished
			result.PublishedAt = existing.PublishedAt
			result.CreatedAt = existing.CreatedAt
			f.rows[i] = *result
			return nil
		}
	}
	result.ID = fmt.Sprintf("result-%d", len(f.rows)+1)
	result.CreatedAt = time.Date(2024, 1, 1, 0, 0, len(f.rows), 0, time.UTC)
	f.rows = append(f.rows, *result)
	return nil
}

func (f *fakeResults) ListByClass(ctx context.Context, q sqlx.ExtContext, examID, classID string) ([]models.Result, error) {
	var out []models.Result
	for _, r := range f.rows {
		if r.ExaminationID == examID && r.ClassID == classID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Percentage > out[j].Percentage })
	return out, nil
}

func (f *fakeResults) UpdateRanks(ctx context.Context, tx *sqlx.Tx, results []models.Result) error {
	for _, ranked := range results {
		for i := range f.rows {
			if f.rows[i].ID == ranked.ID {
				f.rows[i].Rank = ranked.Rank
				f.rows[i].RankInClass = ranked.RankInClass
			}
		}
	}
	return nil
}

func (f *fakeResults) inScope(r models.Result, examID, classID string) bool {
	return r.ExaminationID == examID && (classID == "" || r.ClassID == classID)
}

func (f *fakeResults) ScopeCounts(ctx context.Context, q sqlx.ExtContext, examID, classID string) (int, int, error) {
	classes := map[string]struct{}{}
	students := 0
	for _, r := range f.rows {
		if f.inScope(r, examID, classID) {
			students++
			classes[r.ClassID] = struct{}{}
		}
	}
	return students, len(classes), nil
}

func (f *fakeResults) SetPublished(ctx context.Context, tx *sqlx.Tx, examID, classID string, published bool, publishedAt *time.Time) (int64, error) {
	f.setCalls++
	var n int64
	for i := range f.rows {
		if f.inScope(f.rows[i], examID, classID) {
			f.rows[i].IsPublished = published
			if publishedAt != nil {
				f.rows[i].PublishedAt = publishedAt
			}
			n++
		}
	}
	return n, nil
}

func (f *fakeResults) DeleteScope(ctx context.Context, tx *sqlx.Tx, examID, classID string) (int64, error) {
	kept := f.rows[:0]
	var n int64
	for _, r := range f.rows {
		if f.inScope(r, examID, classID) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	f.deleted += int(n)
	return n, nil
}

func (f *fakeResults) ListViews(ctx context.Context, examID string, filter models.ResultFilter) ([]models.ResultView, error) {
	var out []models.ResultView
	for _, r := range f.rows {
		if !f.inScope(r, examID, filter.ClassID) {
			continue
		}
		if filter.Status != "" && r.PassStatus() != filter.Status {
			continue
		}
		out = append(out, models.ResultView{Result: r, StudentName: f.names[r.StudentID]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Percentage > out[j].Percentage })
	return out, nil
}

func (f *fakeResults) GetViewByStudent(ctx context.Context, q sqlx.ExtContext, examID, studentID string) (*models.ResultView, error) {
	for _, r := range f.rows {
		if r.ExaminationID == examID && r.StudentID == studentID {
			return &models.ResultView{Result: r, StudentName: f.names[r.StudentID]}, nil
		}
	}
	return nil, fmt.Errorf("get student result: %w", sql.ErrNoRows)
}

type fakePublications struct {
	pub     *models.Publication
	upserts int
}

func (f *fakePublications) GetByExamination(ctx context.Context, q sqlx.ExtContext, examID string) (*models.Publication, error) {
	if f.pub == nil || f.pub.ExaminationID != examID {
		return nil, nil
	}
	pub := *f.pub
	return &pub, nil
}

func (f *fakePublications) GetForUpdate(ctx context.Context, tx *sqlx.Tx, examID string) (*models.Publication, error) {
	return f.GetByExamination(ctx, tx, examID)
}

func (f *fakePublications) Upsert(ctx context.Context, tx *sqlx.Tx, pub *models.Publication) error {
	f.upserts++
	if pub.ID == "" {
		pub.ID = "pub-1"
	}
	stored := *pub
	f.pub = &stored
	return nil
}

type fakeNotifier struct {
	events []models.PublicationEvent
}

func (f *fakeNotifier) Notify(ctx context.Context, event models.PublicationEvent) error {
	f.events = append(f.events, event)
	return nil
}
