package models

import "time"

// PublicationStatus is the visibility state of an examination's results.
type PublicationStatus string

const (
	PublicationDraft       PublicationStatus = "DRAFT"
	PublicationScheduled   PublicationStatus = "SCHEDULED"
	PublicationPublished   PublicationStatus = "PUBLISHED"
	PublicationUnpublished PublicationStatus = "UNPUBLISHED"
)

// IsValid reports whether the status is a known value.
func (s PublicationStatus) IsValid() bool {
	switch s {
	case PublicationDraft, PublicationScheduled, PublicationPublished, PublicationUnpublished:
		return true
	}
	return false
}

var publicationTransitions = map[PublicationStatus][]PublicationStatus{
	PublicationDraft:       {PublicationPublished, PublicationUnpublished},
	PublicationScheduled:   {PublicationPublished, PublicationUnpublished},
	PublicationPublished:   {PublicationPublished, PublicationUnpublished},
	PublicationUnpublished: {PublicationPublished, PublicationUnpublished},
}

// CanTransitionTo reports whether publish/unpublish may move the record to next.
// Resetting to draft happens only through a clear and is always allowed.
func (s PublicationStatus) CanTransitionTo(next PublicationStatus) bool {
	if next == PublicationDraft {
		return true
	}
	for _, allowed := range publicationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Publication is the examination-scoped visibility record.
type Publication struct {
	ID            string            `db:"id" json:"id"`
	ExaminationID string            `db:"examination_id" json:"examination_id"`
	Status        PublicationStatus `db:"status" json:"status"`
	ScheduledDate *time.Time        `db:"scheduled_date" json:"scheduled_date,omitempty"`
	PublishedDate *time.Time        `db:"published_date" json:"published_date,omitempty"`
	PublishedBy   *string           `db:"published_by" json:"published_by,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// PublicationAction names the transition carried by a publication event.
type PublicationAction string

const (
	PublicationActionPublish   PublicationAction = "publish"
	PublicationActionUnpublish PublicationAction = "unpublish"
)

// PublicationEvent reports affected counts to the notification collaborator.
type PublicationEvent struct {
	ExaminationID    string            `json:"examination_id"`
	ClassID          string            `json:"class_id,omitempty"`
	Action           PublicationAction `json:"action"`
	AffectedStudents int               `json:"affected_students"`
	AffectedClasses  int               `json:"affected_classes"`
	OccurredAt       time.Time         `json:"occurred_at"`
}
