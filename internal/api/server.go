package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"gymbook/internal/models"
	"gymbook/internal/report"
	"gymbook/internal/service"
)

// HTTPServer exposes the booking core as a JSON API.
type HTTPServer struct {
	server       *http.Server
	bookings     *service.BookingService
	cancellation *service.CancellationService
	waitlist     *service.WaitlistService
	availability *service.AvailabilityService
	credits      CreditStore
	reports      *report.Exporter
	adminAPIKey  string
	logger       *zerolog.Logger
}

// CreditStore ingests session purchases from the payment collaborator.
type CreditStore interface {
	CreditSessions(ctx context.Context, clientID int64, sessions int, paymentRef string) (bool, error)
	GetClient(ctx context.Context, clientID int64) (*models.ClientAccount, error)
}

// NewHTTPServer wires the API routes.
func NewHTTPServer(
	addr string,
	bookings *service.BookingService,
	cancellation *service.CancellationService,
	waitlist *service.WaitlistService,
	availability *service.AvailabilityService,
	credits CreditStore,
	reports *report.Exporter,
	adminAPIKey string,
	logger *zerolog.Logger,
) *HTTPServer {
	s := &HTTPServer{
		bookings:     bookings,
		cancellation: cancellation,
		waitlist:     waitlist,
		availability: availability,
		credits:      credits,
		reports:      reports,
		adminAPIKey:  adminAPIKey,
		logger:       logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/bookings", s.handleCreateBooking)
	mux.HandleFunc("/api/bookings/", s.handleCancelBooking)
	mux.HandleFunc("/api/waitlist", s.handleJoinWaitlist)
	mux.HandleFunc("/api/waitlist/leave", s.handleLeaveWaitlist)
	mux.HandleFunc("/api/slots", s.handleSlots)
	mux.HandleFunc("/api/clients/", s.handleCreditClient)
	mux.HandleFunc("/api/reports/bookings", s.handleBookingsReport)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until the listener fails or Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the error taxonomy onto HTTP statuses: validation
// 400, absent entities 404, state conflicts 409 (slot-full with capacity
// context so the caller can offer the waitlist), everything else 500.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	if sfErr, ok := models.IsSlotFull(err); ok {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":           sfErr.Error(),
			"isFull":          true,
			"capacity":        sfErr.Capacity,
			"currentBookings": sfErr.CurrentBookings,
		})
		return
	}

	switch {
	case errors.Is(err, models.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrClientNotFound),
		errors.Is(err, models.ErrSlotNotFound),
		errors.Is(err, models.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrNoSessionsRemaining),
		errors.Is(err, models.ErrPastSlot),
		errors.Is(err, models.ErrDuplicateBooking):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *HTTPServer) requireAdminKey(w http.ResponseWriter, r *http.Request) bool {
	if s.adminAPIKey == "" || r.Header.Get("X-API-Key") != s.adminAPIKey {
		writeError(w, http.StatusUnauthorized, "invalid or missing API key")
		return false
	}
	return true
}
