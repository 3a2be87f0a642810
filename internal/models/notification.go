package models

import "time"

type NotificationType string

const (
	NotificationTaskAssigned      NotificationType = "task_assigned"
	NotificationTaskDue           NotificationType = "task_due"
	NotificationTaskCompleted     NotificationType = "task_completed"
	NotificationProjectInvitation NotificationType = "project_invitation"
	NotificationProjectUpdate     NotificationType = "project_update"
	NotificationDiscussionReply   NotificationType = "discussion_reply"
	NotificationMention           NotificationType = "mention"
	NotificationSystem            NotificationType = "system"
	NotificationAnnouncement      NotificationType = "announcement"
)

// Notification is one message addressed to a recipient. The delivery flags
// are idempotence markers: a delivery job sends at most once per flag even
// when the at-least-once queue retries it.
type Notification struct {
	ID          uint64           `gorm:"primarykey" json:"id"`
	RecipientID uint64           `gorm:"not null;index:idx_recipient_read" json:"recipient_id"`
	SenderID    *uint64          `json:"sender_id"`
	Type        NotificationType `gorm:"column:notification_type;type:varchar(20);not null;index" json:"notification_type"`
	Title       string           `gorm:"type:varchar(255);not null" json:"title"`
	Message     string           `gorm:"type:text;not null" json:"message"`
	Priority    Priority         `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`

	// Optional links to the entity the notification is about.
	ProjectID    *uint64 `json:"project_id"`
	TaskID       *uint64 `json:"task_id"`
	DiscussionID *uint64 `json:"discussion_id"`

	IsRead bool       `gorm:"not null;default:false;index:idx_recipient_read" json:"is_read"`
	ReadAt *time.Time `json:"read_at"`

	EmailSent bool `gorm:"not null;default:false" json:"email_sent"`
	SMSSent   bool `gorm:"column:sms_sent;not null;default:false" json:"sms_sent"`
	PushSent  bool `gorm:"not null;default:false" json:"push_sent"`

	ActionURL string    `gorm:"type:varchar(500)" json:"action_url"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Recipient User  `gorm:"foreignKey:RecipientID" json:"-"`
	Sender    *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}
