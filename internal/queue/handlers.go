package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/synergysphere/api/internal/constants"
	"github.com/synergysphere/api/internal/models"
	"github.com/synergysphere/api/internal/repository"
	"github.com/synergysphere/api/internal/services"
)

// Handlers executes background tasks. Every handler is idempotent: the
// delivery markers on the notification row stop a retried task from
// sending twice.
type Handlers struct {
	notifRepo repository.NotificationRepository
	userRepo  repository.UserRepository
	taskRepo  repository.TaskRepository

	taskSvc    *services.TaskService
	projectSvc *services.ProjectService
	notifSvc   *services.NotificationService

	mailer Mailer
	sms    SMSSender
	logger *zap.SugaredLogger
}

// NewHandlers creates the background task handlers
func NewHandlers(
	notifRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	taskRepo repository.TaskRepository,
	taskSvc *services.TaskService,
	projectSvc *services.ProjectService,
	notifSvc *services.NotificationService,
	mailer Mailer,
	sms SMSSender,
	logger *zap.SugaredLogger,
) *Handlers {
	return &Handlers{
		notifRepo:  notifRepo,
		userRepo:   userRepo,
		taskRepo:   taskRepo,
		taskSvc:    taskSvc,
		projectSvc: projectSvc,
		notifSvc:   notifSvc,
		mailer:     mailer,
		sms:        sms,
		logger:     logger,
	}
}

// HandleEmailDelivery sends one notification by email, at most once
func (h *Handlers) HandleEmailDelivery(ctx context.Context, t *asynq.Task) error {
	notification, err := h.loadDeliveryTarget(t)
	if err != nil || notification == nil {
		return err
	}
	if notification.EmailSent {
		return nil
	}

	recipient, err := h.userRepo.FindByID(notification.RecipientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to find recipient: %w", err)
	}
	if !recipient.EmailNotifications || recipient.Email == "" {
		// Respect the opt-out but mark the row so the batch sweep does
		// not keep picking it up.
		return h.notifRepo.MarkEmailSent([]uint64{notification.ID})
	}

	if err := h.mailer.Send(recipient.Email, notification.Title, notification.Message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return h.notifRepo.MarkEmailSent([]uint64{notification.ID})
}

// HandleSMSDelivery sends one notification by SMS, at most once. Only
// high and critical priority notifications go out as texts.
func (h *Handlers) HandleSMSDelivery(ctx context.Context, t *asynq.Task) error {
	notification, err := h.loadDeliveryTarget(t)
	if err != nil || notification == nil {
		return err
	}
	if notification.SMSSent {
		return nil
	}
	if notification.Priority != models.PriorityHigh && notification.Priority != models.PriorityCritical {
		return h.notifRepo.MarkSMSSent(notification.ID)
	}

	recipient, err := h.userRepo.FindByID(notification.RecipientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to find recipient: %w", err)
	}
	if recipient.PhoneNumber == "" {
		return h.notifRepo.MarkSMSSent(notification.ID)
	}

	if err := h.sms.Send(recipient.PhoneNumber, notification.Message); err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	return h.notifRepo.MarkSMSSent(notification.ID)
}

// HandlePushDelivery records the push delivery of one notification, at
// most once
func (h *Handlers) HandlePushDelivery(ctx context.Context, t *asynq.Task) error {
	notification, err := h.loadDeliveryTarget(t)
	if err != nil || notification == nil {
		return err
	}
	if notification.PushSent {
		return nil
	}

	recipient, err := h.userRepo.FindByID(notification.RecipientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to find recipient: %w", err)
	}
	if recipient.PushNotifications {
		h.logger.Infow("push", "recipient_id", recipient.ID, "title", notification.Title)
	}
	return h.notifRepo.MarkPushSent(notification.ID)
}

// HandleEmailBatch drains notifications whose enqueue-time delivery was
// lost. MarkEmailSent keeps the batch idempotent.
func (h *Handlers) HandleEmailBatch(ctx context.Context, t *asynq.Task) error {
	pending, err := h.notifRepo.PendingEmail(constants.NotificationEmailBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list pending emails: %w", err)
	}

	sent := make([]uint64, 0, len(pending))
	for _, notification := range pending {
		recipient := notification.Recipient
		if !recipient.EmailNotifications || recipient.Email == "" {
			sent = append(sent, notification.ID)
			continue
		}
		if err := h.mailer.Send(recipient.Email, notification.Title, notification.Message); err != nil {
			h.logger.Errorw("batch email failed", "notification_id", notification.ID, "error", err)
			continue
		}
		sent = append(sent, notification.ID)
	}
	return h.notifRepo.MarkEmailSent(sent)
}

// HandleProgressRecompute recomputes one project's progress
func (h *Handlers) HandleProgressRecompute(ctx context.Context, t *asynq.Task) error {
	var payload ProgressPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	err := h.taskSvc.RecomputeProjectProgress(payload.ProjectID)
	if errors.Is(err, services.ErrProjectNotFound) {
		return nil
	}
	return err
}

// HandleProgressSweep recomputes every live project's progress
func (h *Handlers) HandleProgressSweep(ctx context.Context, t *asynq.Task) error {
	return h.taskSvc.RecomputeAllProgress()
}

// HandleInvitationSweep expires stale pending invitations
func (h *Handlers) HandleInvitationSweep(ctx context.Context, t *asynq.Task) error {
	count, err := h.projectSvc.SweepExpiredInvitations()
	if err != nil {
		return err
	}
	if count > 0 {
		h.logger.Infow("expired invitations", "count", count)
	}
	return nil
}

// HandleDailyDigest notifies assignees about tasks coming due
func (h *Handlers) HandleDailyDigest(ctx context.Context, t *asynq.Task) error {
	now := time.Now()
	tasks, err := h.taskRepo.DueBetween(now, now.AddDate(0, 0, constants.DueSoonDays))
	if err != nil {
		return fmt.Errorf("failed to list due tasks: %w", err)
	}

	for _, task := range tasks {
		if task.AssigneeID == nil {
			continue
		}
		n := &models.Notification{
			RecipientID: *task.AssigneeID,
			Type:        models.NotificationTaskDue,
			Title:       "Task due soon",
			Message:     fmt.Sprintf("The task %q is due on %s", task.Title, task.DueDate.Format("2006-01-02")),
			Priority:    models.PriorityHigh,
			ProjectID:   &task.ProjectID,
			TaskID:      &task.ID,
			ActionURL:   fmt.Sprintf("/tasks/%d", task.ID),
		}
		if err := h.notifSvc.Dispatch(ctx, n); err != nil {
			h.logger.Errorw("digest notification failed", "task_id", task.ID, "error", err)
		}
	}
	return nil
}

// loadDeliveryTarget resolves the notification a delivery task refers to.
// A nil notification with nil error means the row is gone and the task
// should be dropped.
func (h *Handlers) loadDeliveryTarget(t *asynq.Task) (*models.Notification, error) {
	var payload DeliveryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	notification, err := h.notifRepo.FindByID(payload.NotificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}
	return notification, nil
}
