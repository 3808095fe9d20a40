package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Worker consumes the notification queue and delivers emails and staff
// alerts. Runs in-process next to the HTTP API.
type Worker struct {
	server *asynq.Server
	email  *EmailSender
	staff  *StaffNotifier
	logger *zerolog.Logger
}

// NewWorker builds the queue consumer.
func NewWorker(redisOpt asynq.RedisClientOpt, email *EmailSender, staff *StaffNotifier, logger *zerolog.Logger) *Worker {
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{Queue: 1},
	})
	return &Worker{server: server, email: email, staff: staff, logger: logger}
}

// Start runs the worker until Shutdown is called.
func (w *Worker) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeBookingCancelled, w.handleBookingCancelled)
	mux.HandleFunc(TypeWaitlistPromoted, w.handleWaitlistPromoted)
	mux.HandleFunc(TypeClassReminder, w.handleClassReminder)
	return w.server.Start(mux)
}

// Shutdown drains in-flight tasks and stops the worker.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleBookingCancelled(ctx context.Context, t *asynq.Task) error {
	var p BookingCancelledPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	subject := "Your class booking was cancelled"
	body := fmt.Sprintf(
		"Hi %s,\n\nYour booking %s for %s at %s has been cancelled.\n",
		p.ClientName, p.Reference, p.ScheduleDate, p.StartTime,
	)
	if p.Refunded {
		body += "The session has been returned to your balance.\n"
	} else {
		body += "Because the cancellation was too close to class start, the session was not returned.\n"
	}
	return w.email.Send(ctx, p.ClientEmail, subject, body)
}

func (w *Worker) handleWaitlistPromoted(ctx context.Context, t *asynq.Task) error {
	var p WaitlistPromotedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	w.staff.Alert(fmt.Sprintf(
		"Waitlist promotion: %s now holds a seat on %s at %s (booking %s)",
		p.ClientName, p.ScheduleDate, p.StartTime, p.Reference,
	))

	subject := "A spot opened up - you're booked!"
	body := fmt.Sprintf(
		"Hi %s,\n\nA spot opened up in the class on %s at %s and you were next on the waitlist.\nYour booking reference is %s. One session was deducted from your balance.\n",
		p.ClientName, p.ScheduleDate, p.StartTime, p.Reference,
	)
	return w.email.Send(ctx, p.ClientEmail, subject, body)
}

func (w *Worker) handleClassReminder(ctx context.Context, t *asynq.Task) error {
	var p ClassReminderPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	subject := "Reminder: your class is coming up"
	body := fmt.Sprintf(
		"Hi %s,\n\nThis is a reminder that your class on %s starts at %s.\nYour booking reference is %s. If you cannot make it, cancel early to free the seat for someone on the waitlist.\n",
		p.ClientName, p.ScheduleDate, p.StartTime, p.Reference,
	)
	return w.email.Send(ctx, p.ClientEmail, subject, body)
}
