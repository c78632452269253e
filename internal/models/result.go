package models

import "time"

// ResultPassStatus is the presentation form of a result's pass flag.
type ResultPassStatus string

const (
	ResultPass ResultPassStatus = "PASS"
	ResultFail ResultPassStatus = "FAIL"
)

// IsValid reports whether the status is PASS or FAIL.
func (s ResultPassStatus) IsValid() bool {
	return s == ResultPass || s == ResultFail
}

// Result is one student's aggregated outcome for an examination.
type Result struct {
	ID               string     `db:"id" json:"id"`
	ExaminationID    string     `db:"examination_id" json:"examination_id"`
	StudentID        string     `db:"student_id" json:"student_id"`
	ClassID          string     `db:"class_id" json:"class_id"`
	TotalMarks       float64    `db:"total_marks" json:"total_marks"`
	MarksObtained    float64    `db:"marks_obtained" json:"marks_obtained"`
	Percentage       float64    `db:"percentage" json:"percentage"`
	Grade            string     `db:"grade" json:"grade"`
	GradePoint       float64    `db:"grade_point" json:"grade_point"`
	IsPassed         bool       `db:"is_passed" json:"is_passed"`
	Rank             *int       `db:"rank" json:"rank,omitempty"`
	RankInClass      *int       `db:"rank_in_class" json:"rank_in_class,omitempty"`
	TotalSubjects    int        `db:"total_subjects" json:"total_subjects"`
	SubjectsAppeared int        `db:"subjects_appeared" json:"subjects_appeared"`
	SubjectsPassed   int        `db:"subjects_passed" json:"subjects_passed"`
	SubjectsFailed   int        `db:"subjects_failed" json:"subjects_failed"`
	IsPublished      bool       `db:"is_published" json:"is_published"`
	PublishedAt      *time.Time `db:"published_at" json:"published_at,omitempty"`
	GeneratedAt      time.Time  `db:"generated_at" json:"generated_at"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// PassStatus maps the pass flag to its closed variant.
func (r Result) PassStatus() ResultPassStatus {
	if r.IsPassed {
		return ResultPass
	}
	return ResultFail
}

// ResultView joins a result with the student columns needed for listings and exports.
type ResultView struct {
	Result
	StudentName string  `db:"student_name" json:"student_name"`
	RollNumber  *string `db:"roll_number" json:"roll_number,omitempty"`
}

// ResultFilter scopes result listings.
type ResultFilter struct {
	ClassID  string
	Status   ResultPassStatus
	Page     int
	PageSize int
}

// ResultStats summarises a listing.
type ResultStats struct {
	Total             int     `json:"total"`
	Passed            int     `json:"passed"`
	Failed            int     `json:"failed"`
	PassPercentage    float64 `json:"pass_percentage"`
	FailPercentage    float64 `json:"fail_percentage"`
	AveragePercentage float64 `json:"average_percentage"`
}
