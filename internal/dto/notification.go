package dto

import (
	"time"

	"github.com/synergysphere/api/internal/models"
)

// NotificationDTO represents a notification in API responses
type NotificationDTO struct {
	ID           uint64                  `json:"id"`
	Type         models.NotificationType `json:"notification_type"`
	Title        string                  `json:"title"`
	Message      string                  `json:"message"`
	Priority     models.Priority         `json:"priority"`
	Sender       *UserDTO                `json:"sender,omitempty"`
	ProjectID    *uint64                 `json:"project_id"`
	TaskID       *uint64                 `json:"task_id"`
	DiscussionID *uint64                 `json:"discussion_id"`
	IsRead       bool                    `json:"is_read"`
	ReadAt       *time.Time              `json:"read_at"`
	ActionURL    string                  `json:"action_url,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
}

// NotificationListResponse represents a paginated list of notifications
type NotificationListResponse struct {
	Notifications []NotificationDTO `json:"notifications"`
	Page          int               `json:"page"`
	PageSize      int               `json:"page_size"`
	TotalCount    int64             `json:"total_count"`
	TotalPages    int               `json:"total_pages"`
}

// ToNotificationDTO converts a Notification model to NotificationDTO
func ToNotificationDTO(notification models.Notification) NotificationDTO {
	d := NotificationDTO{
		ID:           notification.ID,
		Type:         notification.Type,
		Title:        notification.Title,
		Message:      notification.Message,
		Priority:     notification.Priority,
		ProjectID:    notification.ProjectID,
		TaskID:       notification.TaskID,
		DiscussionID: notification.DiscussionID,
		IsRead:       notification.IsRead,
		ReadAt:       notification.ReadAt,
		ActionURL:    notification.ActionURL,
		CreatedAt:    notification.CreatedAt,
	}
	if notification.Sender != nil {
		sender := ToUserDTO(*notification.Sender)
		d.Sender = &sender
	}
	return d
}

// ToNotificationListResponse builds the paginated notification payload
func ToNotificationListResponse(notifications []models.Notification, page, pageSize int, total int64) NotificationListResponse {
	items := make([]NotificationDTO, len(notifications))
	for i, notification := range notifications {
		items[i] = ToNotificationDTO(notification)
	}
	return NotificationListResponse{
		Notifications: items,
		Page:          page,
		PageSize:      pageSize,
		TotalCount:    total,
		TotalPages:    totalPages(total, pageSize),
	}
}
