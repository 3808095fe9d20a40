package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"gymbook/internal/models"
)

// AvailabilityCache is a read-through cache for availability summaries.
// A nil cache disables caching.
type AvailabilityCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// SlotAvailability is one slot's occupancy summary for a date.
type SlotAvailability struct {
	Slot          models.ScheduleSlot `json:"slot"`
	Booked        int                 `json:"booked"`
	SpotsLeft     int                 `json:"spots_left"`
	WaitlistDepth int                 `json:"waitlist_depth"`
}

// AvailabilityService serves the read-only slot listing the booking UI shows.
// Results may be up to cacheTTL stale; the admission decision itself never
// reads from here.
type AvailabilityService struct {
	store    Store
	cache    AvailabilityCache
	cacheTTL time.Duration
	loc      *time.Location
	logger   *zerolog.Logger
}

// NewAvailabilityService creates an availability service.
func NewAvailabilityService(store Store, cache AvailabilityCache, cacheTTL time.Duration, loc *time.Location, logger *zerolog.Logger) *AvailabilityService {
	if loc == nil {
		loc = time.Local
	}
	return &AvailabilityService{store: store, cache: cache, cacheTTL: cacheTTL, loc: loc, logger: logger}
}

// SlotsForDate returns occupancy summaries for every slot running on date.
func (s *AvailabilityService) SlotsForDate(ctx context.Context, date string) ([]SlotAvailability, error) {
	if !models.ValidDate(date) {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", models.ErrValidation)
	}

	cacheKey := "availability:" + date
	if s.cache != nil {
		var cached []SlotAvailability
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			s.logger.Warn().Err(err).Str("date", date).Msg("availability cache read failed")
		} else if hit {
			return cached, nil
		}
	}

	day, err := time.ParseInLocation(models.DateLayout, date, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", models.ErrValidation)
	}

	slots, err := s.store.ListSlotsForDate(ctx, date, int(day.Weekday()))
	if err != nil {
		return nil, err
	}

	result := make([]SlotAvailability, 0, len(slots))
	for _, slot := range slots {
		booked, err := s.store.CountScheduledBookings(ctx, slot.ID, date)
		if err != nil {
			return nil, err
		}
		depth, err := s.store.CountWaitlist(ctx, slot.ID, date)
		if err != nil {
			return nil, err
		}
		spotsLeft := slot.MaxCapacity - booked
		if spotsLeft < 0 {
			spotsLeft = 0
		}
		result = append(result, SlotAvailability{
			Slot:          slot,
			Booked:        booked,
			SpotsLeft:     spotsLeft,
			WaitlistDepth: depth,
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, result, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("date", date).Msg("availability cache write failed")
		}
	}
	return result, nil
}
