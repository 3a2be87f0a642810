package queue

import (
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Client enqueues background work. It satisfies the enqueuer interfaces
// the services accept, keeping them unaware of asynq.
type Client struct {
	client *asynq.Client
}

// NewClient creates a queue client talking to the given Redis address
func NewClient(redisAddr string) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}),
	}
}

// Close releases the underlying connections
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueEmailDelivery schedules the email delivery of a notification
func (c *Client) EnqueueEmailDelivery(notificationID uint64) error {
	task, err := newDeliveryTask(TypeEmailDelivery, notificationID)
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, asynq.MaxRetry(5), asynq.Timeout(30*time.Second))
	return err
}

// EnqueueSMSDelivery schedules the SMS delivery of a notification
func (c *Client) EnqueueSMSDelivery(notificationID uint64) error {
	task, err := newDeliveryTask(TypeSMSDelivery, notificationID)
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, asynq.MaxRetry(5), asynq.Timeout(30*time.Second))
	return err
}

// EnqueuePushDelivery schedules the push delivery of a notification
func (c *Client) EnqueuePushDelivery(notificationID uint64) error {
	task, err := newDeliveryTask(TypePushDelivery, notificationID)
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, asynq.MaxRetry(5), asynq.Timeout(30*time.Second))
	return err
}

// EnqueueProgressRecompute schedules a progress recompute for one project.
// Tasks for the same project within a short window collapse into one run.
func (c *Client) EnqueueProgressRecompute(projectID uint64) error {
	task, err := newProgressTask(projectID)
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task,
		asynq.MaxRetry(3),
		asynq.TaskID(fmt.Sprintf("%s:%d", TypeProgressRecompute, projectID)),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}
