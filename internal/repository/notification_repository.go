package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/synergysphere/api/internal/database"
	"github.com/synergysphere/api/internal/models"
)

// GormNotificationRepository is a GORM implementation of
// NotificationRepository
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Create creates a notification
func (r *GormNotificationRepository) Create(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

// FindByID finds a notification by ID
func (r *GormNotificationRepository) FindByID(id uint64) (*models.Notification, error) {
	var notification models.Notification
	if err := r.db.First(&notification, id).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

// List retrieves a recipient's notifications, newest first
func (r *GormNotificationRepository) List(filter NotificationFilter) ([]models.Notification, int64, error) {
	var notifications []models.Notification

	query := r.db.Model(&models.Notification{}).
		Where("recipient_id = ?", filter.RecipientID)
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if filter.Type != nil {
		query = query.Where("notification_type = ?", *filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at DESC")
	query = query.Scopes(database.Paginate(filter.Page, filter.PageSize))

	if err := query.Preload("Sender").Find(&notifications).Error; err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

// MarkRead marks one of the recipient's notifications as read. The
// recipient filter keeps users from flipping each other's rows.
func (r *GormNotificationRepository) MarkRead(id, recipientID uint64, at time.Time) (bool, error) {
	result := r.db.Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ? AND is_read = ?", id, recipientID, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return result.RowsAffected > 0, result.Error
}

// MarkAllRead marks all of the recipient's unread notifications as read
func (r *GormNotificationRepository) MarkAllRead(recipientID uint64, at time.Time) (int64, error) {
	result := r.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return result.RowsAffected, result.Error
}

// UnreadCount counts the recipient's unread notifications
func (r *GormNotificationRepository) UnreadCount(recipientID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// PendingEmail lists notifications not yet delivered by email, oldest
// first so batches drain in order
func (r *GormNotificationRepository) PendingEmail(limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.Where("email_sent = ?", false).
		Order("created_at ASC").
		Limit(limit).
		Preload("Recipient").
		Find(&notifications).Error
	return notifications, err
}

// MarkEmailSent flips the email delivery marker
func (r *GormNotificationRepository) MarkEmailSent(ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.Notification{}).
		Where("id IN ?", ids).
		Update("email_sent", true).Error
}

// MarkSMSSent flips the SMS delivery marker
func (r *GormNotificationRepository) MarkSMSSent(id uint64) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ?", id).
		Update("sms_sent", true).Error
}

// MarkPushSent flips the push delivery marker
func (r *GormNotificationRepository) MarkPushSent(id uint64) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ?", id).
		Update("push_sent", true).Error
}
