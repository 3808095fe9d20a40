package remind

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymbook/internal/clock"
	"gymbook/internal/database"
	"gymbook/internal/models"
)

var testLogger = zerolog.New(io.Discard)

type fakeNotifier struct {
	mu    sync.Mutex
	calls []int64 // booking IDs
}

func (f *fakeNotifier) ClassReminder(_ context.Context, _ *models.ClientAccount, booking *models.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, booking.ID)
}

func (f *fakeNotifier) bookingIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.calls...)
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), &testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedBookingAt(t *testing.T, db *database.DB, date, startTime string) *models.Booking {
	t.Helper()
	ctx := context.Background()
	c := &models.ClientAccount{CompanyID: 1, Name: "Client", Email: "c@example.com", TotalSessions: 5, SessionsRemaining: 5}
	require.NoError(t, db.CreateClient(ctx, c))
	slot := &models.ScheduleSlot{
		CompanyID:    1,
		Name:         "Class",
		MaxCapacity:  10,
		ScheduleDate: date,
		StartTime:    startTime,
		EndTime:      "23:59:59",
	}
	require.NoError(t, db.CreateSlot(ctx, slot))
	b := &models.Booking{
		Reference:    uuid.New().String(),
		CompanyID:    1,
		ClientID:     c.ID,
		ScheduleID:   slot.ID,
		ScheduleDate: date,
		StartTime:    startTime,
		EndTime:      "23:59:59",
		Status:       models.StatusScheduled,
	}
	require.NoError(t, db.CreateBooking(ctx, b))
	return b
}

func TestCheckNowSendsInsideLeadWindow(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	now := time.Date(2030, 1, 15, 8, 0, 0, 0, time.UTC)
	svc := NewService(db, notifier, clock.Fixed{T: now}, time.UTC,
		Config{LeadTime: 24 * time.Hour}, &testLogger)

	due := seedBookingAt(t, db, "2030-01-15", "20:00:00")    // 12h out
	farOut := seedBookingAt(t, db, "2030-01-16", "10:00:00") // 26h out
	started := seedBookingAt(t, db, "2030-01-15", "07:00:00")

	svc.CheckNow(context.Background())

	assert.Equal(t, []int64{due.ID}, notifier.bookingIDs())
	_ = farOut
	_ = started
}

func TestCheckNowSendsOnce(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	now := time.Date(2030, 1, 15, 8, 0, 0, 0, time.UTC)
	svc := NewService(db, notifier, clock.Fixed{T: now}, time.UTC,
		Config{LeadTime: 24 * time.Hour}, &testLogger)

	booking := seedBookingAt(t, db, "2030-01-15", "20:00:00")

	svc.CheckNow(context.Background())
	svc.CheckNow(context.Background())

	assert.Equal(t, []int64{booking.ID}, notifier.bookingIDs())
}

func TestCheckNowPicksUpFarBookingLater(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	booking := seedBookingAt(t, db, "2030-01-16", "10:00:00")

	early := time.Date(2030, 1, 15, 8, 0, 0, 0, time.UTC)
	svc := NewService(db, notifier, clock.Fixed{T: early}, time.UTC,
		Config{LeadTime: 24 * time.Hour}, &testLogger)
	svc.CheckNow(context.Background())
	assert.Empty(t, notifier.bookingIDs())

	// Six hours later the booking is inside the lead window.
	later := early.Add(6 * time.Hour)
	svc = NewService(db, notifier, clock.Fixed{T: later}, time.UTC,
		Config{LeadTime: 24 * time.Hour}, &testLogger)
	svc.CheckNow(context.Background())
	assert.Equal(t, []int64{booking.ID}, notifier.bookingIDs())
}

func TestStartStop(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	svc := NewService(db, notifier, clock.Real{}, time.UTC,
		Config{LeadTime: 24 * time.Hour, CheckInterval: time.Hour}, &testLogger)

	svc.Start(context.Background())
	svc.Start(context.Background()) // second start is a no-op
	svc.Stop()
	svc.Stop()
}
