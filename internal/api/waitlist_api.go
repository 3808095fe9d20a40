package api

import (
	"encoding/json"
	"net/http"

	"gymbook/internal/metrics"
	"gymbook/internal/models"
	"gymbook/internal/service"
)

// WaitlistRequest is the request body for POST /api/waitlist.
type WaitlistRequest struct {
	CompanyID    int64  `json:"companyId"`
	ClientID     int64  `json:"clientId"`
	ScheduleID   int64  `json:"scheduleId"`
	ScheduleDate string `json:"scheduleDate"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
}

// WaitlistResponse reports the client's position in line.
type WaitlistResponse struct {
	Position int                   `json:"position"`
	Entry    *models.WaitlistEntry `json:"entry,omitempty"`
}

// handleJoinWaitlist queues the client for a full slot.
// POST /api/waitlist
func (s *HTTPServer) handleJoinWaitlist(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("join_waitlist")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req WaitlistRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.waitlist.JoinWaitlist(r.Context(), service.JoinWaitlistInput{
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

	writeJSON(w, http.StatusOK, WaitlistResponse{
		Position: result.Position,
		Entry:    result.Entry,
	})
}

// LeaveWaitlistRequest is the request body for POST /api/waitlist/leave.
type LeaveWaitlistRequest struct {
	ClientID     int64  `json:"clientId"`
	ScheduleID   int64  `json:"scheduleId"`
	ScheduleDate string `json:"scheduleDate"`
}

// handleLeaveWaitlist removes the client's waitlist entry.
// POST /api/waitlist/leave
func (s *HTTPServer) handleLeaveWaitlist(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("leave_waitlist")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req LeaveWaitlistRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	removed, err := s.waitlist.LeaveWaitlist(r.Context(), req.ClientID, req.ScheduleID, req.ScheduleDate)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "waitlist entry not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}
