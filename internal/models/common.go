package models

import "time"

// Priority levels shared by projects, tasks and notifications.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ValidPriority reports whether p is one of the known priority values.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Tracking records which user created and last modified a row. Always set
// from the request actor, never inferred.
type Tracking struct {
	CreatedByID *uint64 `json:"created_by_id"`
	UpdatedByID *uint64 `json:"updated_by_id"`
}

// SoftDelete marks rows as deleted without removing them. Default queries
// exclude soft-deleted rows through the database.NotDeleted scope.
type SoftDelete struct {
	IsDeleted   bool       `gorm:"not null;default:false;index" json:"-"`
	DeletedAt   *time.Time `json:"-"`
	DeletedByID *uint64    `json:"-"`
}

// MarkDeleted stamps the soft-delete fields.
func (s *SoftDelete) MarkDeleted(actorID uint64, at time.Time) {
	s.IsDeleted = true
	s.DeletedAt = &at
	s.DeletedByID = &actorID
}
