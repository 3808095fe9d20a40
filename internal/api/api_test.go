package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gymbook/internal/clock"
	"gymbook/internal/database"
	"gymbook/internal/models"
	"gymbook/internal/report"
	"gymbook/internal/service"
)

const (
	testAdminKey  = "test-admin-key"
	testDate      = "2030-01-15"
	testStartTime = "09:00:00"
	testEndTime   = "10:00:00"
)

// testNow is three hours before the test class starts, inside booking hours
// and outside the refund cutoff.
var testNow = time.Date(2030, 1, 15, 6, 0, 0, 0, time.UTC)

var testLogger = zerolog.New(io.Discard)

type testEnv struct {
	db      *database.DB
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), &testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clk := clock.Fixed{T: testNow}
	bookings := service.NewBookingService(db, clk, time.UTC, &testLogger)
	cancellation := service.NewCancellationService(db, service.NopNotifier{}, clk, time.UTC, 2*time.Hour, &testLogger)
	waitlist := service.NewWaitlistService(db, &testLogger)
	availability := service.NewAvailabilityService(db, nil, 0, time.UTC, &testLogger)
	srv := NewHTTPServer("", bookings, cancellation, waitlist, availability, db, report.NewExporter(db), testAdminKey, &testLogger)

	return &testEnv{db: db, handler: srv.Handler()}
}

func (e *testEnv) seedClient(t *testing.T, remaining int) *models.ClientAccount {
	t.Helper()
	c := &models.ClientAccount{
		CompanyID:         1,
		Name:              "Test Client",
		Email:             "client@example.com",
		TotalSessions:     remaining,
		SessionsRemaining: remaining,
	}
	require.NoError(t, e.db.CreateClient(context.Background(), c))
	return c
}

func (e *testEnv) seedSlot(t *testing.T, capacity int) *models.ScheduleSlot {
	t.Helper()
	s := &models.ScheduleSlot{
		CompanyID:    1,
		Name:         "Morning HIIT",
		MaxCapacity:  capacity,
		ScheduleDate: testDate,
		StartTime:    testStartTime,
		EndTime:      testEndTime,
	}
	require.NoError(t, e.db.CreateSlot(context.Background(), s))
	return s
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func bookingBody(clientID, scheduleID int64) map[string]any {
	return map[string]any{
		"companyId":    1,
		"clientId":     clientID,
		"scheduleId":   scheduleID,
		"scheduleDate": testDate,
		"startTime":    testStartTime,
		"endTime":      testEndTime,
	}
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest))
}

func TestCreateBookingEndpoint(t *testing.T) {
	env := newTestEnv(t)
	client := env.seedClient(t, 5)
	slot := env.seedSlot(t, 10)

	w := env.do(t, http.MethodPost, "/api/bookings", bookingBody(client.ID, slot.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp BookingResponse
	decodeJSON(t, w, &resp)
	assert.Equal(t, 4, resp.Client.SessionsRemaining)
	require.Len(t, resp.Bookings, 1)
	assert.Equal(t, models.StatusScheduled, resp.Bookings[0].Status)
}

func TestCreateBookingEndpointRejectsGet(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/bookings", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestCreateBookingEndpointUnknownField(t *testing.T) {
	env := newTestEnv(t)
	body := bookingBody(1, 1)
	body["surprise"] = true
	w := env.do(t, http.MethodPost, "/api/bookings", body, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateBookingEndpointValidation(t *testing.T) {
	env := newTestEnv(t)
	body := bookingBody(1, 1)
	body["scheduleDate"] = ""
	w := env.do(t, http.MethodPost, "/api/bookings", body, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateBookingEndpointSlotFull(t *testing.T) {
	env := newTestEnv(t)
	first := env.seedClient(t, 5)
	second := env.seedClient(t, 5)
	slot := env.seedSlot(t, 1)

	w := env.do(t, http.MethodPost, "/api/bookings", bookingBody(first.ID, slot.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/bookings", bookingBody(second.ID, slot.ID), nil)
	require.Equal(t, http.StatusConflict, w.Code)

	var resp struct {
		Error           string `json:"error"`
		IsFull          bool   `json:"isFull"`
		Capacity        int    `json:"capacity"`
		CurrentBookings int    `json:"currentBookings"`
	}
	decodeJSON(t, w, &resp)
	assert.True(t, resp.IsFull)
	assert.Equal(t, 1, resp.Capacity)
	assert.Equal(t, 1, resp.CurrentBookings)
	assert.NotEmpty(t, resp.Error)
}

func TestCreateBookingEndpointNoSessions(t *testing.T) {
	env := newTestEnv(t)
	client := env.seedClient(t, 0)
	slot := env.seedSlot(t, 10)

	w := env.do(t, http.MethodPost, "/api/bookings", bookingBody(client.ID, slot.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCancelBookingEndpoint(t *testing.T) {
	env := newTestEnv(t)
	client := env.seedClient(t, 5)
	slot := env.seedSlot(t, 10)

	w := env.do(t, http.MethodPost, "/api/bookings", bookingBody(client.ID, slot.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var created BookingResponse
	decodeJSON(t, w, &created)
	require.Len(t, created.Bookings, 1)

	path := fmt.Sprintf("/api/bookings/%d/cancel", created.Bookings[0].ID)
	w = env.do(t, http.MethodPost, path, map[string]any{"clientId": client.ID}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp CancelResponse
	decodeJSON(t, w, &resp)
	assert.True(t, resp.Refunded)
	assert.Equal(t, 5, resp.Client.SessionsRemaining)
	assert.Empty(t, resp.Bookings)
}

func TestCancelBookingEndpointNotFound(t *testing.T) {
	env := newTestEnv(t)
	client := env.seedClient(t, 5)

	w := env.do(t, http.MethodPost, "/api/bookings/999/cancel", map[string]any{"clientId": client.ID}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelBookingEndpointBadPath(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/bookings/abc/cancel", map[string]any{"clientId": 1}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/bookings/1/refund", map[string]any{"clientId": 1}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJoinWaitlistEndpoint(t *testing.T) {
	env := newTestEnv(t)
	client := env.seedClient(t, 5)
	slot := env.seedSlot(t, 1)

	w := env.do(t, http.MethodPost, "/api/waitlist", bookingBody(client.ID, slot.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp WaitlistResponse
	decodeJSON(t, w, &resp)
	assert.Equal(t, 1, resp.Position)
	require.NotNil(t, resp.Entry)
	assert.Equal(t, client.ID, resp.Entry.ClientID)
}

func TestLeaveWaitlistEndpoint(t *testing.T) {
	env := newTestEnv(t)
	client := env.seedClient(t, 5)
	slot := env.seedSlot(t, 1)

	w := env.do(t, http.MethodPost, "/api/waitlist", bookingBody(client.ID, slot.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	leave := map[string]any{"clientId": client.ID, "scheduleId": slot.ID, "scheduleDate": testDate}
	w = env.do(t, http.MethodPost, "/api/waitlist/leave", leave, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Second leave finds nothing.
	w = env.do(t, http.MethodPost, "/api/waitlist/leave", leave, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSlotsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	client := env.seedClient(t, 5)
	slot := env.seedSlot(t, 3)

	w := env.do(t, http.MethodPost, "/api/bookings", bookingBody(client.ID, slot.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/slots?date="+testDate, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Date  string                     `json:"date"`
		Slots []service.SlotAvailability `json:"slots"`
	}
	decodeJSON(t, w, &resp)
	assert.Equal(t, testDate, resp.Date)
	require.Len(t, resp.Slots, 1)
	assert.Equal(t, 1, resp.Slots[0].Booked)
	assert.Equal(t, 2, resp.Slots[0].SpotsLeft)
}

func TestSlotsEndpointRequiresDate(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/slots", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreditEndpointRequiresKey(t *testing.T) {
	env := newTestEnv(t)
	client := env.seedClient(t, 0)

	body := map[string]any{"sessions": 10, "paymentRef": "pay-1"}
	path := fmt.Sprintf("/api/clients/%d/credit", client.ID)

	w := env.do(t, http.MethodPost, path, body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, path, body, map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreditEndpointIdempotent(t *testing.T) {
	env := newTestEnv(t)
	client := env.seedClient(t, 0)
	headers := map[string]string{"X-API-Key": testAdminKey}
	body := map[string]any{"sessions": 10, "paymentRef": "pay-1"}
	path := fmt.Sprintf("/api/clients/%d/credit", client.ID)

	w := env.do(t, http.MethodPost, path, body, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Applied bool                  `json:"applied"`
		Client  *models.ClientAccount `json:"client"`
	}
	decodeJSON(t, w, &resp)
	assert.True(t, resp.Applied)
	assert.Equal(t, 10, resp.Client.SessionsRemaining)

	// A replayed webhook is acknowledged but not applied twice.
	w = env.do(t, http.MethodPost, path, body, headers)
	require.Equal(t, http.StatusOK, w.Code)
	decodeJSON(t, w, &resp)
	assert.False(t, resp.Applied)
	assert.Equal(t, 10, resp.Client.SessionsRemaining)
}

func TestBookingsReportEndpoint(t *testing.T) {
	env := newTestEnv(t)
	client := env.seedClient(t, 5)
	slot := env.seedSlot(t, 10)
	w := env.do(t, http.MethodPost, "/api/bookings", bookingBody(client.ID, slot.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	path := "/api/reports/bookings?from=2030-01-01&to=2030-01-31"
	w = env.do(t, http.MethodGet, path, nil, map[string]string{"X-API-Key": testAdminKey})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "bookings_2030-01-01_2030-01-31.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Reference", rows[0][1])
}

func TestBookingsReportEndpointBadRange(t *testing.T) {
	env := newTestEnv(t)
	headers := map[string]string{"X-API-Key": testAdminKey}

	w := env.do(t, http.MethodGet, "/api/reports/bookings?from=2030-02-01&to=2030-01-01", nil, headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/reports/bookings?from=bogus&to=2030-01-01", nil, headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
