package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gymbook/internal/clock"
	"gymbook/internal/metrics"
	"gymbook/internal/models"
)

// BookingService admits clients into capacity-constrained class slots.
type BookingService struct {
	store  Store
	clock  clock.Clock
	loc    *time.Location
	logger *zerolog.Logger
}

// NewBookingService creates a booking service.
func NewBookingService(store Store, clk clock.Clock, loc *time.Location, logger *zerolog.Logger) *BookingService {
	if loc == nil {
		loc = time.Local
	}
	return &BookingService{store: store, clock: clk, loc: loc, logger: logger}
}

// CreateBookingInput carries the fields of a booking request.
type CreateBookingInput struct {
	CompanyID    int64
	ClientID     int64
	ScheduleID   int64
	ScheduleDate string
	StartTime    string
	EndTime      string
}

// BookingResult is returned on success: the updated ledger snapshot plus the
// client's forward-looking booking list.
type BookingResult struct {
	Client   *models.ClientAccount
	Bookings []models.Booking
}

// CreateBooking validates eligibility, admits the client if the slot has
// capacity, and debits one session -- all inside one transaction. The
// preconditions fail fast in a fixed order, each with its own error.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*BookingResult, error) {
	if in.CompanyID == 0 || in.ClientID == 0 || in.ScheduleID == 0 ||
		in.ScheduleDate == "" || in.StartTime == "" || in.EndTime == "" {
		return nil, fmt.Errorf("%w: company_id, client_id, schedule_id, schedule_date, start_time and end_time are required", models.ErrValidation)
	}
	if !models.ValidDate(in.ScheduleDate) {
		return nil, fmt.Errorf("%w: schedule_date must be YYYY-MM-DD", models.ErrValidation)
	}
	startTime, err := models.NormalizeTimeOfDay(in.StartTime)
	if err != nil {
		return nil, err
	}
	endTime, err := models.NormalizeTimeOfDay(in.EndTime)
	if err != nil {
		return nil, err
	}
	slotStart, err := models.SlotStart(in.ScheduleDate, startTime, s.loc)
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		Reference:    uuid.New().String(),
		CompanyID:    in.CompanyID,
		ClientID:     in.ClientID,
		ScheduleID:   in.ScheduleID,
		ScheduleDate: in.ScheduleDate,
		StartTime:    startTime,
		EndTime:      endTime,
		Status:       models.StatusScheduled,
		IsGymSession: true,
	}

	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		client, err := s.store.GetClient(ctx, in.ClientID)
		if err != nil {
			return err
		}
		if client.SessionsRemaining <= 0 {
			return models.ErrNoSessionsRemaining
		}
		if !slotStart.After(s.clock.Now()) {
			return models.ErrPastSlot
		}

		booked, err := s.store.HasScheduledBooking(ctx, in.ClientID, in.ScheduleID, in.ScheduleDate)
		if err != nil {
			return err
		}
		if booked {
			return models.ErrDuplicateBooking
		}

		slot, err := s.store.GetSlot(ctx, in.ScheduleID)
		if err != nil {
			return err
		}

		count, err := s.store.CountScheduledBookings(ctx, in.ScheduleID, in.ScheduleDate)
		if err != nil {
			return err
		}
		if count >= slot.MaxCapacity {
			return &models.SlotFullError{Capacity: slot.MaxCapacity, CurrentBookings: count}
		}

		if err := s.store.CreateBooking(ctx, booking); err != nil {
			return err
		}

		// A booking and a waitlist entry for the same slot and date are
		// mutually exclusive: the admitted client leaves the queue.
		entry, err := s.store.GetWaitlistEntry(ctx, in.ClientID, in.ScheduleID, in.ScheduleDate)
		if err != nil {
			return err
		}
		if entry != nil {
			if err := s.store.DeleteWaitlistEntry(ctx, entry.ID); err != nil {
				return err
			}
		}

		return s.store.DebitSession(ctx, in.ClientID)
	})
	if err != nil {
		metrics.IncBookingRejected(rejectReason(err))
		return nil, err
	}

	metrics.IncBookingCreated("direct")
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("client_id", in.ClientID).
		Int64("schedule_id", in.ScheduleID).
		Str("schedule_date", in.ScheduleDate).
		Msg("booking created")

	return s.snapshot(ctx, in.ClientID)
}

// snapshot reads the post-commit ledger and forward-looking booking list.
func (s *BookingService) snapshot(ctx context.Context, clientID int64) (*BookingResult, error) {
	client, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	today := s.clock.Now().In(s.loc).Format(models.DateLayout)
	bookings, err := s.store.ListUpcomingBookings(ctx, clientID, today)
	if err != nil {
		return nil, err
	}
	return &BookingResult{Client: client, Bookings: bookings}, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, models.ErrNoSessionsRemaining):
		return "no_sessions"
	case errors.Is(err, models.ErrPastSlot):
		return "past_slot"
	case errors.Is(err, models.ErrDuplicateBooking):
		return "duplicate"
	case errors.Is(err, models.ErrSlotNotFound), errors.Is(err, models.ErrClientNotFound):
		return "not_found"
	default:
		if _, ok := models.IsSlotFull(err); ok {
			return "slot_full"
		}
		return "store_error"
	}
}
