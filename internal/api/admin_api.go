package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"gymbook/internal/metrics"
	"gymbook/internal/models"
)

// handleSlots lists per-slot occupancy for a date.
// GET /api/slots?date=YYYY-MM-DD
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date query parameter is required")
		return
	}

	slots, err := s.availability.SlotsForDate(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":  date,
		"slots": slots,
	})
}

// CreditRequest is the request body for POST /api/clients/{id}/credit. The
// payment collaborator posts here after capturing a purchase.
type CreditRequest struct {
	Sessions   int    `json:"sessions"`
	PaymentRef string `json:"paymentRef"`
}

// handleCreditClient credits purchased sessions to a client's ledger.
// Idempotent per paymentRef.
// POST /api/clients/{id}/credit
func (s *HTTPServer) handleCreditClient(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("credit_client")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	if !s.requireAdminKey(w, r) {
		return
	}

	// Path is /api/clients/{id}/credit
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 || parts[3] != "credit" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	clientID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || clientID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}

	var req CreditRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Sessions <= 0 || req.PaymentRef == "" {
		writeError(w, http.StatusBadRequest, "sessions and paymentRef are required")
		return
	}

	applied, err := s.credits.CreditSessions(r.Context(), clientID, req.Sessions, req.PaymentRef)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	client, err := s.credits.GetClient(r.Context(), clientID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"applied": applied,
		"client":  client,
	})
}

// handleBookingsReport streams an xlsx of bookings in a date range.
// GET /api/reports/bookings?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleBookingsReport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_report")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}
	if !s.requireAdminKey(w, r) {
		return
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if !models.ValidDate(from) || !models.ValidDate(to) {
		writeError(w, http.StatusBadRequest, "from and to must be YYYY-MM-DD")
		return
	}
	if from > to {
		writeError(w, http.StatusBadRequest, "from must be before or equal to to")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="bookings_`+from+`_`+to+`.xlsx"`)
	if err := s.reports.WriteBookings(r.Context(), w, from, to); err != nil {
		s.logger.Error().Err(err).Msg("write bookings report")
	}
}
