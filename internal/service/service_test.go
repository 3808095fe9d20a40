package service

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"gymbook/internal/database"
	"gymbook/internal/models"
)

// Fixed test timeline: every test books the 09:00 class on 2030-01-15 and
// pins "now" somewhere on the same morning.
const (
	testDate      = "2030-01-15"
	testStartTime = "09:00:00"
	testEndTime   = "10:00:00"
)

var testSlotStart = time.Date(2030, 1, 15, 9, 0, 0, 0, time.UTC)

var testLogger = zerolog.New(io.Discard)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), &testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedClient(t *testing.T, db *database.DB, remaining int) *models.ClientAccount {
	t.Helper()
	c := &models.ClientAccount{
		CompanyID:         1,
		Name:              "Test Client",
		Email:             "client@example.com",
		TotalSessions:     remaining,
		SessionsRemaining: remaining,
	}
	require.NoError(t, db.CreateClient(context.Background(), c))
	return c
}

func seedSlot(t *testing.T, db *database.DB, capacity int) *models.ScheduleSlot {
	t.Helper()
	s := &models.ScheduleSlot{
		CompanyID:    1,
		Name:         "Morning HIIT",
		MaxCapacity:  capacity,
		ScheduleDate: testDate,
		StartTime:    testStartTime,
		EndTime:      testEndTime,
	}
	require.NoError(t, db.CreateSlot(context.Background(), s))
	return s
}

func bookingInput(clientID, scheduleID int64) CreateBookingInput {
	return CreateBookingInput{
		CompanyID:    1,
		ClientID:     clientID,
		ScheduleID:   scheduleID,
		ScheduleDate: testDate,
		StartTime:    testStartTime,
		EndTime:      testEndTime,
	}
}

func waitlistInput(clientID, scheduleID int64) JoinWaitlistInput {
	return JoinWaitlistInput{
		CompanyID:    1,
		ClientID:     clientID,
		ScheduleID:   scheduleID,
		ScheduleDate: testDate,
		StartTime:    testStartTime,
		EndTime:      testEndTime,
	}
}

// recordingNotifier captures the fire-and-forget notification calls, which
// arrive on separate goroutines.
type recordingNotifier struct {
	cancelled chan cancelledNotification
	promoted  chan promotedNotification
}

type cancelledNotification struct {
	clientID int64
	refunded bool
}

type promotedNotification struct {
	clientID  int64
	bookingID int64
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		cancelled: make(chan cancelledNotification, 8),
		promoted:  make(chan promotedNotification, 8),
	}
}

func (n *recordingNotifier) BookingCancelled(_ context.Context, client *models.ClientAccount, _ *models.Booking, refunded bool) {
	n.cancelled <- cancelledNotification{clientID: client.ID, refunded: refunded}
}

func (n *recordingNotifier) WaitlistPromoted(_ context.Context, client *models.ClientAccount, booking *models.Booking) {
	n.promoted <- promotedNotification{clientID: client.ID, bookingID: booking.ID}
}

func (n *recordingNotifier) waitCancelled(t *testing.T) cancelledNotification {
	t.Helper()
	select {
	case c := <-n.cancelled:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cancellation notification")
		return cancelledNotification{}
	}
}

func (n *recordingNotifier) waitPromoted(t *testing.T) promotedNotification {
	t.Helper()
	select {
	case p := <-n.promoted:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for promotion notification")
		return promotedNotification{}
	}
}
