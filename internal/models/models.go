package models

import "time"

// Booking statuses.
const (
	StatusScheduled = "scheduled"
	StatusCancelled = "cancelled"
)

// ClientAccount holds the per-client session ledger. The ledger is the only
// thing that gates booking eligibility: a client with zero remaining sessions
// cannot book and cannot be promoted from a waitlist.
type ClientAccount struct {
	ID                int64  `json:"id"`
	CompanyID         int64  `json:"company_id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	TotalSessions     int    `json:"total_sessions"`
	SessionsUsed      int    `json:"sessions_used"`
	SessionsRemaining int    `json:"sessions_remaining"`
}

// ScheduleSlot is a recurring or one-off class definition. Read-only for the
// booking core; schedule management owns creation and edits.
type ScheduleSlot struct {
	ID          int64  `json:"id"`
	CompanyID   int64  `json:"company_id"`
	Name        string `json:"name"`
	MaxCapacity int    `json:"max_capacity"`
	// DayOfWeek is set for recurring slots (0=Sunday..6=Saturday),
	// ScheduleDate for one-off slots. Exactly one of the two is meaningful.
	DayOfWeek    *int   `json:"day_of_week,omitempty"`
	ScheduleDate string `json:"schedule_date,omitempty"` // YYYY-MM-DD
	StartTime    string `json:"start_time"`              // HH:MM:SS
	EndTime      string `json:"end_time"`                // HH:MM:SS
}

// Booking is a confirmed reservation of one seat in a slot on a date.
type Booking struct {
	ID           int64     `json:"id"`
	Reference    string    `json:"reference"`
	CompanyID    int64     `json:"company_id"`
	ClientID     int64     `json:"client_id"`
	ScheduleID   int64     `json:"schedule_id"`
	ScheduleDate string    `json:"schedule_date"` // YYYY-MM-DD
	StartTime    string    `json:"start_time"`    // HH:MM:SS
	EndTime      string    `json:"end_time"`      // HH:MM:SS
	Status       string    `json:"status"`
	IsGymSession bool      `json:"is_gym_session"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StartInstant returns the absolute start time of the booked slot.
func (b *Booking) StartInstant(loc *time.Location) (time.Time, error) {
	return SlotStart(b.ScheduleDate, b.StartTime, loc)
}

// WaitlistEntry is one client waiting for a seat in a full slot. Position is
// a 1-based insertion ordinal per (schedule_id, schedule_date); it is never
// renumbered when earlier entries leave, so gaps are normal and promotion
// order is simply ascending position.
type WaitlistEntry struct {
	ID           int64     `json:"id"`
	CompanyID    int64     `json:"company_id"`
	ClientID     int64     `json:"client_id"`
	ScheduleID   int64     `json:"schedule_id"`
	ScheduleDate string    `json:"schedule_date"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	Position     int       `json:"position"`
	CreatedAt    time.Time `json:"created_at"`
}
