package models

import "time"

// MarkEntry is one student's recorded marks for one exam subject.
type MarkEntry struct {
	ID                string     `db:"id" json:"id"`
	ExaminationID     string     `db:"examination_id" json:"examination_id"`
	ExamSubjectID     string     `db:"exam_subject_id" json:"exam_subject_id"`
	StudentID         string     `db:"student_id" json:"student_id"`
	TheoryObtained    *float64   `db:"theory_obtained" json:"theory_obtained,omitempty"`
	PracticalObtained *float64   `db:"practical_obtained" json:"practical_obtained,omitempty"`
	InternalObtained  *float64   `db:"internal_obtained" json:"internal_obtained,omitempty"`
	TotalObtained     float64    `db:"total_obtained" json:"total_obtained"`
	IsAbsent          bool       `db:"is_absent" json:"is_absent"`
	IsPassed          bool       `db:"is_passed" json:"is_passed"`
	Grade             *string    `db:"grade" json:"grade,omitempty"`
	GradePoint        *float64   `db:"grade_point" json:"grade_point,omitempty"`
	Remarks           *string    `db:"remarks" json:"remarks,omitempty"`
	EnteredBy         *string    `db:"entered_by" json:"entered_by,omitempty"`
	EnteredAt         *time.Time `db:"entered_at" json:"entered_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentSubjectMark is one subject line of a student's result detail.
type StudentSubjectMark struct {
	MarkEntryID       string   `db:"id" json:"mark_entry_id"`
	ExamSubjectID     string   `db:"exam_subject_id" json:"exam_subject_id"`
	SubjectID         string   `db:"subject_id" json:"subject_id"`
	SubjectName       string   `db:"subject_name" json:"subject_name"`
	TotalMarks        float64  `db:"total_marks" json:"total_marks"`
	PassingMarks      float64  `db:"passing_marks" json:"passing_marks"`
	TheoryObtained    *float64 `db:"theory_obtained" json:"theory_obtained,omitempty"`
	PracticalObtained *float64 `db:"practical_obtained" json:"practical_obtained,omitempty"`
	InternalObtained  *float64 `db:"internal_obtained" json:"internal_obtained,omitempty"`
	TotalObtained     float64  `db:"total_obtained" json:"total_obtained"`
	IsAbsent          bool     `db:"is_absent" json:"is_absent"`
	IsPassed          bool     `db:"is_passed" json:"is_passed"`
	Grade             *string  `db:"grade" json:"grade"`
	GradePoint        *float64 `db:"grade_point" json:"grade_point"`
	Remarks           *string  `db:"remarks" json:"remarks,omitempty"`
}

// MarkComponents carries raw submitted marks. Nil components count as zero.
type MarkComponents struct {
	Theory    *float64
	Practical *float64
	Internal  *float64
}

// ComputeSubjectTotal derives total_obtained and is_passed for one subject.
// An absent student always totals zero and never passes.
func ComputeSubjectTotal(c MarkComponents, absent bool, passingMarks float64) (float64, bool) {
	if absent {
		return 0, false
	}
	var total float64
	for _, v := range []*float64{c.Theory, c.Practical, c.Internal} {
		if v != nil {
			total += *v
		}
	}
	return total, total >= passingMarks
}

// MarkGradeUpdate is the grade back-fill written to a mark entry during processing.
type MarkGradeUpdate struct {
	MarkEntryID string  `db:"id"`
	Grade       string  `db:"grade"`
	GradePoint  float64 `db:"grade_point"`
	IsPassed    bool    `db:"is_passed"`
}
