package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"gymbook/internal/metrics"
	"gymbook/internal/models"
)

// WaitlistService queues clients for full slots. Joining costs nothing and
// reserves nothing; the ledger is only touched at promotion time.
type WaitlistService struct {
	store  Store
	logger *zerolog.Logger
}

// NewWaitlistService creates a waitlist service.
func NewWaitlistService(store Store, logger *zerolog.Logger) *WaitlistService {
	return &WaitlistService{store: store, logger: logger}
}

// JoinWaitlistInput carries the fields of a join request.
type JoinWaitlistInput struct {
	CompanyID    int64
	ClientID     int64
	ScheduleID   int64
	ScheduleDate string
	StartTime    string
	EndTime      string
}

// JoinWaitlistResult reports the assigned (or pre-existing) position.
type JoinWaitlistResult struct {
	Position int
	Entry    *models.WaitlistEntry
	Created  bool
}

// JoinWaitlist appends the client to the slot's waitlist. A client who
// already holds a booking for the slot is rejected; a client already on the
// waitlist gets their existing position back unchanged (idempotent).
func (s *WaitlistService) JoinWaitlist(ctx context.Context, in JoinWaitlistInput) (*JoinWaitlistResult, error) {
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

	var result JoinWaitlistResult
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		booked, err := s.store.HasScheduledBooking(ctx, in.ClientID, in.ScheduleID, in.ScheduleDate)
		if err != nil {
			return err
		}
		if booked {
			return models.ErrDuplicateBooking
		}

		existing, err := s.store.GetWaitlistEntry(ctx, in.ClientID, in.ScheduleID, in.ScheduleDate)
		if err != nil {
			return err
		}
		if existing != nil {
			result = JoinWaitlistResult{Position: existing.Position, Entry: existing}
			return nil
		}

		position, err := s.store.NextWaitlistPosition(ctx, in.ScheduleID, in.ScheduleDate)
		if err != nil {
			return err
		}

		entry := &models.WaitlistEntry{
			CompanyID:    in.CompanyID,
			ClientID:     in.ClientID,
			ScheduleID:   in.ScheduleID,
			ScheduleDate: in.ScheduleDate,
			StartTime:    startTime,
			EndTime:      endTime,
			Position:     position,
		}
		if err := s.store.CreateWaitlistEntry(ctx, entry); err != nil {
			return err
		}
		result = JoinWaitlistResult{Position: position, Entry: entry, Created: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Created {
		metrics.IncWaitlistJoined()
		s.logger.Info().
			Int64("client_id", in.ClientID).
			Int64("schedule_id", in.ScheduleID).
			Str("schedule_date", in.ScheduleDate).
			Int("position", result.Position).
			Msg("client joined waitlist")
	}
	return &result, nil
}

// LeaveWaitlist removes the client's entry. Later entries keep their
// original positions. Returns false when the client was not waitlisted.
func (s *WaitlistService) LeaveWaitlist(ctx context.Context, clientID, scheduleID int64, scheduleDate string) (bool, error) {
	if clientID == 0 || scheduleID == 0 || scheduleDate == "" {
		return false, fmt.Errorf("%w: client_id, schedule_id and schedule_date are required", models.ErrValidation)
	}
	removed, err := s.store.RemoveFromWaitlist(ctx, clientID, scheduleID, scheduleDate)
	if err != nil {
		return false, err
	}
	if removed {
		s.logger.Info().
			Int64("client_id", clientID).
			Int64("schedule_id", scheduleID).
			Str("schedule_date", scheduleDate).
			Msg("client left waitlist")
	}
	return removed, nil
}
