package notify

// Task types routed through the notification queue.
const (
	TypeBookingCancelled = "notify:booking_cancelled"
	TypeWaitlistPromoted = "notify:waitlist_promoted"
	TypeClassReminder    = "notify:class_reminder"
)

// Queue is the asynq queue notifications are enqueued on.
const Queue = "notifications"

// BookingCancelledPayload carries everything the worker needs to render the
// cancellation email without touching the store.
type BookingCancelledPayload struct {
	ClientID     int64  `json:"client_id"`
	ClientName   string `json:"client_name"`
	ClientEmail  string `json:"client_email"`
	Reference    string `json:"reference"`
	ScheduleDate string `json:"schedule_date"`
	StartTime    string `json:"start_time"`
	Refunded     bool   `json:"refunded"`
}

// WaitlistPromotedPayload carries the promotion notification content.
type WaitlistPromotedPayload struct {
	ClientID     int64  `json:"client_id"`
	ClientName   string `json:"client_name"`
	ClientEmail  string `json:"client_email"`
	Reference    string `json:"reference"`
	ScheduleDate string `json:"schedule_date"`
	StartTime    string `json:"start_time"`
}

// ClassReminderPayload carries the upcoming-class reminder content.
type ClassReminderPayload struct {
	ClientID     int64  `json:"client_id"`
	ClientName   string `json:"client_name"`
	ClientEmail  string `json:"client_email"`
	Reference    string `json:"reference"`
	ScheduleDate string `json:"schedule_date"`
	StartTime    string `json:"start_time"`
}
