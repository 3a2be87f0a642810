package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	UserRoleMember     UserRole = "member"
	UserRoleTeamLeader UserRole = "team_leader"
	UserRoleAdmin      UserRole = "admin"
)

// ValidUserRole reports whether r is one of the known user roles.
func ValidUserRole(r UserRole) bool {
	switch r {
	case UserRoleMember, UserRoleTeamLeader, UserRoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uint64   `gorm:"primarykey" json:"id"`
	Email        string   `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Username     string   `gorm:"type:varchar(150);not null" json:"username"`
	FirstName    string   `gorm:"type:varchar(150)" json:"first_name"`
	LastName     string   `gorm:"type:varchar(150)" json:"last_name"`
	PhoneNumber  string   `gorm:"type:varchar(17)" json:"phone_number"`
	PasswordHash string   `gorm:"type:varchar(255);not null" json:"-"`
	Role         UserRole `gorm:"type:varchar(20);not null;default:'member'" json:"role"`

	// Legacy admin escalation flags; IsAdminUser folds them into role.
	IsStaff     bool `gorm:"not null;default:false" json:"is_staff"`
	IsSuperuser bool `gorm:"not null;default:false" json:"is_superuser"`

	IsActive           bool       `gorm:"not null;default:true" json:"is_active"`
	EmailNotifications bool       `gorm:"not null;default:true" json:"email_notifications"`
	PushNotifications  bool       `gorm:"not null;default:true" json:"push_notifications"`
	Timezone           string     `gorm:"type:varchar(50);default:'UTC'" json:"timezone"`
	LastLoginAt        *time.Time `json:"last_login_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	// Relations
	Memberships   []ProjectMember `gorm:"foreignKey:UserID" json:"-"`
	AssignedTasks []Task          `gorm:"foreignKey:AssigneeID" json:"-"`
}

// IsAdminUser reports platform-wide admin capability: admin role or either
// legacy escalation flag.
func (u *User) IsAdminUser() bool {
	return u.Role == UserRoleAdmin || u.IsStaff || u.IsSuperuser
}

func (u *User) IsTeamLeader() bool {
	return u.Role == UserRoleTeamLeader
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
