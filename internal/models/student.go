package models

// StudentStatus is the enrolment state of a student.
type StudentStatus string

const (
	StudentActive    StudentStatus = "ACTIVE"
	StudentInactive  StudentStatus = "INACTIVE"
	StudentGraduated StudentStatus = "GRADUATED"
	StudentDeparted  StudentStatus = "DEPARTED"
)

// IsValid reports whether the status is a known value.
func (s StudentStatus) IsValid() bool {
	switch s {
	case StudentActive, StudentInactive, StudentGraduated, StudentDeparted:
		return true
	}
	return false
}

// Student is the read-only projection of a learner used by the results engine.
type Student struct {
	ID         string        `db:"id" json:"id"`
	TenantID   string        `db:"tenant_id" json:"tenant_id"`
	ClassID    string        `db:"class_id" json:"class_id"`
	FullName   string        `db:"full_name" json:"full_name"`
	RollNumber *string       `db:"roll_number" json:"roll_number,omitempty"`
	Status     StudentStatus `db:"status" json:"status"`
}
