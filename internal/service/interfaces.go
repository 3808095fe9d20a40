package service

import (
	"context"

	"gymbook/internal/models"
)

// Store is the transactional persistence collaborator. WithTx runs fn inside
// a single write transaction; every Store call made from fn joins it, so a
// service's mutations are all-or-nothing.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetClient(ctx context.Context, clientID int64) (*models.ClientAccount, error)
	DebitSession(ctx context.Context, clientID int64) error
	RefundSession(ctx context.Context, clientID int64) error

	GetSlot(ctx context.Context, scheduleID int64) (*models.ScheduleSlot, error)
	ListSlotsForDate(ctx context.Context, date string, weekday int) ([]models.ScheduleSlot, error)

	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBookingForClient(ctx context.Context, bookingID, clientID int64) (*models.Booking, error)
	DeleteBooking(ctx context.Context, bookingID int64) error
	CountScheduledBookings(ctx context.Context, scheduleID int64, date string) (int, error)
	HasScheduledBooking(ctx context.Context, clientID, scheduleID int64, date string) (bool, error)
	ListUpcomingBookings(ctx context.Context, clientID int64, fromDate string) ([]models.Booking, error)

	GetWaitlistEntry(ctx context.Context, clientID, scheduleID int64, date string) (*models.WaitlistEntry, error)
	NextWaitlistPosition(ctx context.Context, scheduleID int64, date string) (int, error)
	CreateWaitlistEntry(ctx context.Context, e *models.WaitlistEntry) error
	ListWaitlist(ctx context.Context, scheduleID int64, date string, limit int) ([]models.WaitlistEntry, error)
	DeleteWaitlistEntry(ctx context.Context, id int64) error
	RemoveFromWaitlist(ctx context.Context, clientID, scheduleID int64, date string) (bool, error)
	CountWaitlist(ctx context.Context, scheduleID int64, date string) (int, error)
}

// Notifier dispatches best-effort notifications after a mutation commits.
// Implementations must never block the caller on delivery; failures are
// logged, not returned.
type Notifier interface {
	BookingCancelled(ctx context.Context, client *models.ClientAccount, booking *models.Booking, refunded bool)
	WaitlistPromoted(ctx context.Context, client *models.ClientAccount, booking *models.Booking)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) BookingCancelled(context.Context, *models.ClientAccount, *models.Booking, bool) {
}

func (NopNotifier) WaitlistPromoted(context.Context, *models.ClientAccount, *models.Booking) {}
