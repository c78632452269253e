package models

import (
	"sort"
	"time"
)

// GradeScaleEntry is one tenant-scoped percentage band.
type GradeScaleEntry struct {
	ID            string    `db:"id" json:"id"`
	TenantID      string    `db:"tenant_id" json:"tenant_id"`
	GradeName     string    `db:"grade_name" json:"grade_name"`
	GradePoint    float64   `db:"grade_point" json:"grade_point"`
	MinPercentage float64   `db:"min_percentage" json:"min_percentage"`
	MaxPercentage float64   `db:"max_percentage" json:"max_percentage"`
	Description   *string   `db:"description" json:"description,omitempty"`
	IsPassing     bool      `db:"is_passing" json:"is_passing"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Contains reports whether the percentage falls inside the inclusive band.
func (e GradeScaleEntry) Contains(percentage float64) bool {
	return e.MinPercentage <= percentage && percentage <= e.MaxPercentage
}

// Overlaps reports whether two inclusive bands share any percentage.
func (e GradeScaleEntry) Overlaps(other GradeScaleEntry) bool {
	return !(e.MaxPercentage < other.MinPercentage || e.MinPercentage > other.MaxPercentage)
}

// GradeScale is the set of bands configured for a tenant.
type GradeScale []GradeScaleEntry

// Descending returns a copy ordered by min_percentage, highest first.
func (s GradeScale) Descending() GradeScale {
	out := make(GradeScale, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MinPercentage > out[j].MinPercentage
	})
	return out
}
