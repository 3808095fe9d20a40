package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gymbook/internal/clock"
	"gymbook/internal/metrics"
	"gymbook/internal/models"
)

// promotionScanLimit caps how many waitlist entries one cancellation will
// scan past while looking for an eligible client.
const promotionScanLimit = 10

// CancellationService deletes bookings, grants time-windowed refunds and
// promotes waitlisted clients into freed seats.
type CancellationService struct {
	store        Store
	notifier     Notifier
	clock        clock.Clock
	loc          *time.Location
	refundCutoff time.Duration
	logger       *zerolog.Logger
}

// NewCancellationService creates a cancellation service. refundCutoff is how
// long before class start a cancellation still earns a refund.
func NewCancellationService(
	store Store,
	notifier Notifier,
	clk clock.Clock,
	loc *time.Location,
	refundCutoff time.Duration,
	logger *zerolog.Logger,
) *CancellationService {
	if loc == nil {
		loc = time.Local
	}
	if refundCutoff <= 0 {
		refundCutoff = 2 * time.Hour
	}
	return &CancellationService{
		store:        store,
		notifier:     notifier,
		clock:        clk,
		loc:          loc,
		refundCutoff: refundCutoff,
		logger:       logger,
	}
}

// CancelResult reports the cancellation outcome.
type CancelResult struct {
	Refunded bool
	Client   *models.ClientAccount
	Bookings []models.Booking
}

// promotion records who got the freed seat, for post-commit notification.
type promotion struct {
	client  *models.ClientAccount
	booking *models.Booking
}

// CancelBooking deletes the client's booking, refunds the session when the
// cancellation lands outside the refund cutoff, and hands the freed seat to
// the first eligible waitlisted client. The booking is deleted before the
// promotion runs so the capacity check can observe the freed seat; the
// promotion runs before the refund so the ledger mutation comes last. All of
// it commits or rolls back as one transaction.
func (s *CancellationService) CancelBooking(ctx context.Context, bookingID, clientID int64) (*CancelResult, error) {
	var (
		cancelled *models.Booking
		refunded  bool
		promoted  *promotion
	)

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		booking, err := s.store.GetBookingForClient(ctx, bookingID, clientID)
		if err != nil {
			return err
		}
		cancelled = booking

		slotStart, err := booking.StartInstant(s.loc)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		refunded = slotStart.Sub(now) > s.refundCutoff
		isFuture := slotStart.After(now)

		if _, err := s.store.GetClient(ctx, clientID); err != nil {
			return err
		}

		if err := s.store.DeleteBooking(ctx, booking.ID); err != nil {
			return err
		}

		if isFuture {
			promoted, err = s.promoteNext(ctx, booking.ScheduleID, booking.ScheduleDate)
			if err != nil {
				return err
			}
		}

		if refunded {
			if err := s.store.RefundSession(ctx, clientID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncBookingCancelled(refunded)
	s.logger.Info().
		Int64("booking_id", bookingID).
		Int64("client_id", clientID).
		Bool("refunded", refunded).
		Msg("booking cancelled")

	notifyCtx := context.WithoutCancel(ctx)
	client, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	go s.notifier.BookingCancelled(notifyCtx, client, cancelled, refunded)

	if promoted != nil {
		metrics.IncBookingCreated("promotion")
		s.logger.Info().
			Int64("booking_id", promoted.booking.ID).
			Int64("client_id", promoted.client.ID).
			Msg("waitlisted client promoted")
		go s.notifier.WaitlistPromoted(notifyCtx, promoted.client, promoted.booking)
	}

	today := s.clock.Now().In(s.loc).Format(models.DateLayout)
	bookings, err := s.store.ListUpcomingBookings(ctx, clientID, today)
	if err != nil {
		return nil, err
	}
	return &CancelResult{Refunded: refunded, Client: client, Bookings: bookings}, nil
}

// promoteNext scans the waitlist in position order and promotes the first
// client who still has sessions remaining. Entries whose balance dropped to
// zero are evicted in passing. At most one client is promoted per call: a
// cancellation frees exactly one seat, and filling more would overbook
// against seats freed by concurrent cancellations.
func (s *CancellationService) promoteNext(ctx context.Context, scheduleID int64, date string) (*promotion, error) {
	slot, err := s.store.GetSlot(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountScheduledBookings(ctx, scheduleID, date)
	if err != nil {
		return nil, err
	}
	if count >= slot.MaxCapacity {
		return nil, nil
	}

	entries, err := s.store.ListWaitlist(ctx, scheduleID, date, promotionScanLimit)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		client, err := s.store.GetClient(ctx, entry.ClientID)
		if err != nil {
			return nil, err
		}

		if client.SessionsRemaining <= 0 {
			// The client can no longer be served; drop the entry and
			// keep scanning. Cleanup, not a failed promotion.
			if err := s.store.DeleteWaitlistEntry(ctx, entry.ID); err != nil {
				return nil, err
			}
			metrics.IncWaitlistEvicted()
			s.logger.Info().
				Int64("client_id", entry.ClientID).
				Int("position", entry.Position).
				Msg("waitlist entry evicted, no sessions remaining")
			continue
		}

		booking := &models.Booking{
			Reference:    uuid.New().String(),
			CompanyID:    entry.CompanyID,
			ClientID:     entry.ClientID,
			ScheduleID:   entry.ScheduleID,
			ScheduleDate: entry.ScheduleDate,
			StartTime:    entry.StartTime,
			EndTime:      entry.EndTime,
			Status:       models.StatusScheduled,
			IsGymSession: true,
		}
		if err := s.store.CreateBooking(ctx, booking); err != nil {
			// A stale entry for a client who somehow already holds the
			// seat must not sink the cancellation. Drop it and keep
			// scanning.
			if errors.Is(err, models.ErrDuplicateBooking) {
				if err := s.store.DeleteWaitlistEntry(ctx, entry.ID); err != nil {
					return nil, err
				}
				metrics.IncWaitlistEvicted()
				s.logger.Warn().
					Int64("client_id", entry.ClientID).
					Int("position", entry.Position).
					Msg("waitlist entry evicted, client already booked")
				continue
			}
			return nil, err
		}
		if err := s.store.DebitSession(ctx, entry.ClientID); err != nil {
			return nil, err
		}
		if err := s.store.DeleteWaitlistEntry(ctx, entry.ID); err != nil {
			return nil, err
		}

		client.SessionsUsed++
		client.SessionsRemaining--
		return &promotion{client: client, booking: booking}, nil
	}
	return nil, nil
}
