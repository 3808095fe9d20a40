// Package remind sends upcoming-class reminders. A background loop scans
// bookings whose slot starts within the lead window and enqueues one
// reminder email per booking.
package remind

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gymbook/internal/clock"
	"gymbook/internal/metrics"
	"gymbook/internal/models"
)

// Store is the slice of the database the reminder loop reads and writes.
type Store interface {
	ListBookingsNeedingReminder(ctx context.Context, from, to string) ([]models.Booking, error)
	GetClient(ctx context.Context, clientID int64) (*models.ClientAccount, error)
	MarkReminderSent(ctx context.Context, bookingID int64) error
}

// Notifier delivers the reminder, best-effort.
type Notifier interface {
	ClassReminder(ctx context.Context, client *models.ClientAccount, booking *models.Booking)
}

// Config tunes the reminder loop.
type Config struct {
	// LeadTime is how long before class start the reminder goes out.
	LeadTime time.Duration
	// CheckInterval is how often the loop scans for due reminders.
	CheckInterval time.Duration
}

// Service runs the reminder loop.
type Service struct {
	store    Store
	notifier Notifier
	clock    clock.Clock
	loc      *time.Location
	cfg      Config
	logger   *zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewService creates a reminder service.
func NewService(store Store, notifier Notifier, clk clock.Clock, loc *time.Location, cfg Config, logger *zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if cfg.LeadTime <= 0 {
		cfg.LeadTime = 24 * time.Hour
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 15 * time.Minute
	}
	return &Service{
		store:    store,
		notifier: notifier,
		clock:    clk,
		loc:      loc,
		cfg:      cfg,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the scan loop. Idempotent.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info().
		Dur("lead_time", s.cfg.LeadTime).
		Dur("check_interval", s.cfg.CheckInterval).
		Msg("reminder loop started")

	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop halts the loop and waits for an in-flight scan to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info().Msg("reminder loop stopped")
}

func (s *Service) loop(ctx context.Context) {
	defer s.wg.Done()

	s.CheckNow(ctx)

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.CheckNow(ctx)
		}
	}
}

// CheckNow runs one scan synchronously. The loop calls it on every tick;
// tests call it directly.
func (s *Service) CheckNow(ctx context.Context) {
	now := s.clock.Now().In(s.loc)
	horizon := now.Add(s.cfg.LeadTime)
	from := now.Format(models.DateLayout)
	to := horizon.Format(models.DateLayout)

	bookings, err := s.store.ListBookingsNeedingReminder(ctx, from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("scan bookings for reminders")
		return
	}

	var sent int
	for i := range bookings {
		booking := &bookings[i]
		start, err := booking.StartInstant(s.loc)
		if err != nil {
			s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("bad slot time on booking")
			continue
		}
		// Remind inside the lead window only; skip classes that already
		// started and classes still too far out.
		if start.Before(now) || start.After(horizon) {
			continue
		}

		client, err := s.store.GetClient(ctx, booking.ClientID)
		if err != nil {
			s.logger.Error().Err(err).Int64("client_id", booking.ClientID).Msg("load client for reminder")
			continue
		}

		// Mark first: a reminder that never arrives beats one that
		// arrives twice.
		if err := s.store.MarkReminderSent(ctx, booking.ID); err != nil {
			s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("mark reminder sent")
			continue
		}
		s.notifier.ClassReminder(ctx, client, booking)
		metrics.IncReminderSent()
		sent++
	}

	if sent > 0 {
		s.logger.Info().Int("sent", sent).Int("scanned", len(bookings)).Msg("class reminders dispatched")
	}
}
