package models

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("missing or malformed input")
	ErrClientNotFound      = errors.New("client not found")
	ErrSlotNotFound        = errors.New("schedule slot not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrNoSessionsRemaining = errors.New("no sessions remaining")
	ErrPastSlot            = errors.New("cannot book a slot that already started")
	ErrDuplicateBooking    = errors.New("client already has a booking for this slot")
)

// SlotFullError reports a failed capacity admission together with the
// capacity context, so callers can offer the waitlist.
type SlotFullError struct {
	Capacity        int
	CurrentBookings int
}

func (e *SlotFullError) Error() string {
	return fmt.Sprintf("slot is full (%d/%d booked)", e.CurrentBookings, e.Capacity)
}

// IsSlotFull checks if the error is a SlotFullError.
func IsSlotFull(err error) (*SlotFullError, bool) {
	var sfErr *SlotFullError
	if errors.As(err, &sfErr) {
		return sfErr, true
	}
	return nil, false
}
