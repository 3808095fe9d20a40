package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"gymbook/internal/metrics"
	"gymbook/internal/models"
	"gymbook/internal/service"
)

// BookingRequest is the request body for POST /api/bookings.
type BookingRequest struct {
	CompanyID    int64  `json:"companyId"`
	ClientID     int64  `json:"clientId"`
	ScheduleID   int64  `json:"scheduleId"`
	ScheduleDate string `json:"scheduleDate"` // YYYY-MM-DD
	StartTime    string `json:"startTime"`    // HH:MM:SS or ISO timestamp
	EndTime      string `json:"endTime"`
}

// BookingResponse is returned on successful booking creation.
type BookingResponse struct {
	Client   *models.ClientAccount `json:"client"`
	Bookings []models.Booking      `json:"bookings"`
}

// handleCreateBooking books a seat in a class slot.
// POST /api/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_booking")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req BookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.bookings.CreateBooking(r.Context(), service.CreateBookingInput{
		CompanyID:    req.CompanyID,
		ClientID:     req.ClientID,
		ScheduleID:   req.ScheduleID,
		ScheduleDate: req.ScheduleDate,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BookingResponse{
		Client:   result.Client,
		Bookings: result.Bookings,
	})
}

// CancelRequest is the request body for POST /api/bookings/{id}/cancel.
type CancelRequest struct {
	ClientID int64 `json:"clientId"`
}

// CancelResponse reports whether a refund was granted.
type CancelResponse struct {
	Refunded bool                  `json:"refunded"`
	Client   *models.ClientAccount `json:"client"`
	Bookings []models.Booking      `json:"bookings"`
}

// handleCancelBooking cancels a booking, refunding the session when the
// cancellation is early enough.
// POST /api/bookings/{id}/cancel
func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel_booking")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	// Path is /api/bookings/{id}/cancel
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 || parts[3] != "cancel" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	bookingID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || bookingID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var req CancelRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ClientID == 0 {
		writeError(w, http.StatusBadRequest, "clientId is required")
		return
	}

	result, err := s.cancellation.CancelBooking(r.Context(), bookingID, req.ClientID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CancelResponse{
		Refunded: result.Refunded,
		Client:   result.Client,
		Bookings: result.Bookings,
	})
}
