// Package notify dispatches best-effort client emails and staff alerts
// through a redis-backed task queue. Nothing in here may fail a booking or
// cancellation: enqueue errors are logged and dropped.
package notify

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"gymbook/internal/models"
)

// AsynqNotifier enqueues notification tasks after the triggering transaction
// has committed. It satisfies service.Notifier.
type AsynqNotifier struct {
	client *asynq.Client
	logger *zerolog.Logger
}

// NewAsynqNotifier creates a queue-backed notifier.
func NewAsynqNotifier(client *asynq.Client, logger *zerolog.Logger) *AsynqNotifier {
	return &AsynqNotifier{client: client, logger: logger}
}

// BookingCancelled enqueues the cancellation email.
func (n *AsynqNotifier) BookingCancelled(ctx context.Context, client *models.ClientAccount, booking *models.Booking, refunded bool) {
	n.enqueue(ctx, TypeBookingCancelled, BookingCancelledPayload{
		ClientID:     client.ID,
		ClientName:   client.Name,
		ClientEmail:  client.Email,
		Reference:    booking.Reference,
		ScheduleDate: booking.ScheduleDate,
		StartTime:    booking.StartTime,
		Refunded:     refunded,
	})
}

// WaitlistPromoted enqueues the promotion email and staff alert.
func (n *AsynqNotifier) WaitlistPromoted(ctx context.Context, client *models.ClientAccount, booking *models.Booking) {
	n.enqueue(ctx, TypeWaitlistPromoted, WaitlistPromotedPayload{
		ClientID:     client.ID,
		ClientName:   client.Name,
		ClientEmail:  client.Email,
		Reference:    booking.Reference,
		ScheduleDate: booking.ScheduleDate,
		StartTime:    booking.StartTime,
	})
}

// ClassReminder enqueues the upcoming-class reminder email.
func (n *AsynqNotifier) ClassReminder(ctx context.Context, client *models.ClientAccount, booking *models.Booking) {
	n.enqueue(ctx, TypeClassReminder, ClassReminderPayload{
		ClientID:     client.ID,
		ClientName:   client.Name,
		ClientEmail:  client.Email,
		Reference:    booking.Reference,
		ScheduleDate: booking.ScheduleDate,
		StartTime:    booking.StartTime,
	})
}

func (n *AsynqNotifier) enqueue(ctx context.Context, taskType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error().Err(err).Str("task", taskType).Msg("marshal notification payload")
		return
	}
	task := asynq.NewTask(taskType, data)
	if _, err := n.client.EnqueueContext(ctx, task, asynq.Queue(Queue), asynq.MaxRetry(3)); err != nil {
		n.logger.Error().Err(err).Str("task", taskType).Msg("enqueue notification")
	}
}
