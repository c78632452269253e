package models

import "time"

// MarkEntryStatus tracks how far mark entry has progressed for one exam subject.
type MarkEntryStatus string

const (
	MarkEntryPending    MarkEntryStatus = "PENDING"
	MarkEntryInProgress MarkEntryStatus = "IN_PROGRESS"
	MarkEntryCompleted  MarkEntryStatus = "COMPLETED"
	MarkEntryVerified   MarkEntryStatus = "VERIFIED"
	MarkEntryPublished  MarkEntryStatus = "PUBLISHED"
)

// IsValid reports whether the status is one of the known values.
func (s MarkEntryStatus) IsValid() bool {
	switch s {
	case MarkEntryPending, MarkEntryInProgress, MarkEntryCompleted, MarkEntryVerified, MarkEntryPublished:
		return true
	}
	return false
}

// Examination is one assessment event. Its lifecycle status is owned elsewhere.
type Examination struct {
	ID           string    `db:"id" json:"id"`
	TenantID     string    `db:"tenant_id" json:"tenant_id"`
	Name         string    `db:"name" json:"name"`
	TotalMarks   int       `db:"total_marks" json:"total_marks"`
	PassingMarks int       `db:"passing_marks" json:"passing_marks"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// PassPercentage converts the examination pass mark into a percentage. The
// fallback applies when the examination carries no total.
func (e Examination) PassPercentage(fallback float64) float64 {
	if e.TotalMarks <= 0 {
		return fallback
	}
	return float64(e.PassingMarks) / float64(e.TotalMarks) * 100
}

// ExamSubject configures one subject of an examination for one class.
type ExamSubject struct {
	ID              string          `db:"id" json:"id"`
	ExaminationID   string          `db:"examination_id" json:"examination_id"`
	ClassID         string          `db:"class_id" json:"class_id"`
	SubjectID       string          `db:"subject_id" json:"subject_id"`
	SubjectName     string          `db:"subject_name" json:"subject_name"`
	TheoryMarks     float64         `db:"theory_marks" json:"theory_marks"`
	PracticalMarks  float64         `db:"practical_marks" json:"practical_marks"`
	InternalMarks   float64         `db:"internal_marks" json:"internal_marks"`
	TotalMarks      float64         `db:"total_marks" json:"total_marks"`
	PassingMarks    float64         `db:"passing_marks" json:"passing_marks"`
	MarkEntryStatus MarkEntryStatus `db:"mark_entry_status" json:"mark_entry_status"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// NextEntryStatus derives the status after a recount of entered marks against eligible students.
// Verified and Published are set by other workflows and are left alone here.
func (s ExamSubject) NextEntryStatus(entered, eligible int) MarkEntryStatus {
	switch {
	case eligible > 0 && entered >= eligible:
		return MarkEntryCompleted
	case entered > 0 && entered < eligible:
		return MarkEntryInProgress
	default:
		return s.MarkEntryStatus
	}
}
