// Package queue holds the background side of the API: delivery of
// notifications over email, SMS and push, plus the periodic maintenance
// jobs. Work is carried by asynq over Redis, so every handler must be
// safe under at-least-once delivery.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type names. Delivery tasks carry a notification ID; sweeps carry
// nothing.
const (
	TypeEmailDelivery     = "notification:email"
	TypeSMSDelivery       = "notification:sms"
	TypePushDelivery      = "notification:push"
	TypeEmailBatch        = "notification:email_batch"
	TypeProgressRecompute = "project:recompute_progress"
	TypeProgressSweep     = "project:recompute_all"
	TypeInvitationSweep   = "invitation:sweep"
	TypeDailyDigest       = "report:daily_digest"
)

// DeliveryPayload identifies the notification a delivery task is about.
type DeliveryPayload struct {
	NotificationID uint64 `json:"notification_id"`
}

// ProgressPayload identifies the project whose progress is recomputed.
type ProgressPayload struct {
	ProjectID uint64 `json:"project_id"`
}

func newDeliveryTask(taskType string, notificationID uint64) (*asynq.Task, error) {
	payload, err := json.Marshal(DeliveryPayload{NotificationID: notificationID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(taskType, payload), nil
}

func newProgressTask(projectID uint64) (*asynq.Task, error) {
	payload, err := json.Marshal(ProgressPayload{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeProgressRecompute, payload), nil
}
