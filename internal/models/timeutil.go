package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// NormalizeTimeOfDay extracts an HH:MM:SS time component from either a bare
// time string ("09:00" or "09:00:00") or a time embedded in an ISO-8601
// timestamp ("2025-03-10T09:00:00Z", "2025-03-10 09:00:00+02:00").
func NormalizeTimeOfDay(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty time value: %w", ErrValidation)
	}

	if i := strings.IndexAny(s, "T "); i >= 0 && strings.Contains(s[:i], "-") {
		s = s[i+1:]
	}
	// Strip timezone suffix if present.
	s = strings.TrimSuffix(s, "Z")
	if i := strings.IndexAny(s, "+"); i >= 0 {
		s = s[:i]
	} else if i := strings.LastIndex(s, "-"); i > 0 {
		s = s[:i]
	}

	if _, err := time.Parse(TimeLayout, s); err == nil {
		return s, nil
	}
	if t, err := time.Parse("15:04", s); err == nil {
		return t.Format(TimeLayout), nil
	}
	return "", fmt.Errorf("invalid time %q: %w", s, ErrValidation)
}

// SlotStart combines a schedule date and a start time into the absolute
// instant the class begins, in the given location.
func SlotStart(date, startTime string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	normalized, err := NormalizeTimeOfDay(startTime)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+normalized, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid schedule date %q: %w", date, ErrValidation)
	}
	return t, nil
}

// ValidDate reports whether s is a well-formed YYYY-MM-DD date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
