package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/synergysphere/api/internal/models"
	"github.com/synergysphere/api/internal/repository"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// Enqueuer hands delivery work to the background queue. Enqueue failures
// never fail the triggering request; the periodic pending-email sweep
// picks up anything that was missed.
type Enqueuer interface {
	EnqueueEmailDelivery(notificationID uint64) error
	EnqueueSMSDelivery(notificationID uint64) error
	EnqueuePushDelivery(notificationID uint64) error
}

// NotificationService creates, lists and marks notifications. It is the
// only component that writes notification rows; every other service hands
// it a Notification and lets it fan out delivery.
type NotificationService struct {
	notifRepo repository.NotificationRepository
	enqueuer  Enqueuer
	cache     *redis.Client
	logger    *zap.SugaredLogger
}

// NewNotificationService creates a new NotificationService. cache and
// enqueuer may be nil; both degrade to synchronous, uncached behavior.
func NewNotificationService(notifRepo repository.NotificationRepository, enqueuer Enqueuer, cache *redis.Client, logger *zap.SugaredLogger) *NotificationService {
	return &NotificationService{
		notifRepo: notifRepo,
		enqueuer:  enqueuer,
		cache:     cache,
		logger:    logger,
	}
}

// Dispatch persists a notification and schedules its delivery channels.
// The caller's request succeeds as soon as the row is written.
func (s *NotificationService) Dispatch(ctx context.Context, n *models.Notification) error {
	if err := s.notifRepo.Create(n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	s.invalidateUnreadCount(ctx, n.RecipientID)

	if s.enqueuer == nil {
		return nil
	}
	if err := s.enqueuer.EnqueueEmailDelivery(n.ID); err != nil {
		s.logger.Warnw("failed to enqueue email delivery", "notification_id", n.ID, "error", err)
	}
	if err := s.enqueuer.EnqueueSMSDelivery(n.ID); err != nil {
		s.logger.Warnw("failed to enqueue sms delivery", "notification_id", n.ID, "error", err)
	}
	if err := s.enqueuer.EnqueuePushDelivery(n.ID); err != nil {
		s.logger.Warnw("failed to enqueue push delivery", "notification_id", n.ID, "error", err)
	}
	return nil
}

// List returns a recipient's notifications, newest first
func (s *NotificationService) List(filter repository.NotificationFilter) ([]models.Notification, int64, error) {
	notifications, total, err := s.notifRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

// MarkRead marks one notification as read for its recipient
func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID uint64) error {
	changed, err := s.notifRepo.MarkRead(id, recipientID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !changed {
		// Already read is a no-op; a row that is missing or belongs to
		// another recipient reads as not found either way.
		n, err := s.notifRepo.FindByID(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotificationNotFound
			}
			return err
		}
		if n.RecipientID != recipientID {
			return ErrNotificationNotFound
		}
		return nil
	}

	s.invalidateUnreadCount(ctx, recipientID)
	return nil
}

// MarkAllRead marks every unread notification of a recipient as read and
// returns how many were touched
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID uint64) (int64, error) {
	count, err := s.notifRepo.MarkAllRead(recipientID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	if count > 0 {
		s.invalidateUnreadCount(ctx, recipientID)
	}
	return count, nil
}

// UnreadCount returns the recipient's unread total, served from cache
// when warm
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID uint64) (int64, error) {
	key := unreadCountKey(recipientID)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key).Int64()
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, redis.Nil) {
			s.logger.Warnw("unread count cache read failed", "recipient_id", recipientID, "error", err)
		}
	}

	count, err := s.notifRepo.UnreadCount(recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, count, 5*time.Minute).Err(); err != nil {
			s.logger.Warnw("unread count cache write failed", "recipient_id", recipientID, "error", err)
		}
	}
	return count, nil
}

func (s *NotificationService) invalidateUnreadCount(ctx context.Context, recipientID uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, unreadCountKey(recipientID)).Err(); err != nil {
		s.logger.Warnw("unread count cache invalidation failed", "recipient_id", recipientID, "error", err)
	}
}

func unreadCountKey(recipientID uint64) string {
	return fmt.Sprintf("notifications:unread:%d", recipientID)
}
