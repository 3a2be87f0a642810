package models

import "time"

type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "planning"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// ValidProjectStatus reports whether s is one of the known project statuses.
func ValidProjectStatus(s ProjectStatus) bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusActive, ProjectStatusOnHold,
		ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

type Project struct {
	ID          uint64        `gorm:"primarykey" json:"id"`
	Name        string        `gorm:"type:varchar(255);not null" json:"name"`
	Description string        `gorm:"type:text" json:"description"`
	Status      ProjectStatus `gorm:"type:varchar(20);not null;default:'planning'" json:"status"`
	Priority    Priority      `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	StartDate   *time.Time    `json:"start_date"`
	EndDate     *time.Time    `json:"end_date"`

	// Progress is recomputed from completed tasks by a periodic job, not
	// maintained inline.
	Progress int `gorm:"not null;default:0" json:"progress"`

	IsPublic bool `gorm:"not null;default:false" json:"is_public"`

	Tracking
	SoftDelete
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Members []ProjectMember `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
	Tasks   []Task          `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
}

type MemberRole string

const (
	MemberRoleMember  MemberRole = "member"
	MemberRoleManager MemberRole = "manager"
	MemberRoleAdmin   MemberRole = "admin"
)

// ValidMemberRole reports whether r is one of the known membership roles.
func ValidMemberRole(r MemberRole) bool {
	switch r {
	case MemberRoleMember, MemberRoleManager, MemberRoleAdmin:
		return true
	}
	return false
}

type ProjectMember struct {
	ID        uint64     `gorm:"primarykey" json:"id"`
	ProjectID uint64     `gorm:"not null;uniqueIndex:idx_project_user" json:"project_id"`
	UserID    uint64     `gorm:"not null;uniqueIndex:idx_project_user" json:"user_id"`
	Role      MemberRole `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	IsActive  bool       `gorm:"not null;default:true" json:"is_active"`
	JoinedAt  time.Time  `json:"joined_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	User    User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// Capability accessors are pure functions of role, computed at read time
// rather than persisted, so they can never go stale.

func (m *ProjectMember) CanEditProject() bool {
	return m.Role == MemberRoleAdmin || m.Role == MemberRoleManager
}

func (m *ProjectMember) CanManageMembers() bool {
	return m.Role == MemberRoleAdmin || m.Role == MemberRoleManager
}

func (m *ProjectMember) CanDeleteProject() bool {
	return m.Role == MemberRoleAdmin
}

type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusDeclined InvitationStatus = "declined"
	InvitationStatusExpired  InvitationStatus = "expired"
)

type ProjectInvitation struct {
	ID           uint64           `gorm:"primarykey" json:"id"`
	ProjectID    uint64           `gorm:"not null;uniqueIndex:idx_project_invitee" json:"project_id"`
	InviterID    uint64           `gorm:"not null" json:"inviter_id"`
	InviteeEmail string           `gorm:"type:varchar(255);not null;uniqueIndex:idx_project_invitee" json:"invitee_email"`
	InviteeID    *uint64          `json:"invitee_id"`
	Role         MemberRole       `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	Status       InvitationStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Message      string           `gorm:"type:text" json:"message"`
	Token        string           `gorm:"type:varchar(50);uniqueIndex;not null" json:"-"`
	ExpiresAt    time.Time        `gorm:"not null" json:"expires_at"`
	RespondedAt  *time.Time       `json:"responded_at"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Inviter User    `gorm:"foreignKey:InviterID" json:"inviter,omitempty"`
}

// IsExpired is a derived read; the periodic sweep persists it as a status
// change for pendings that lapsed.
func (i *ProjectInvitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
