package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gymbook/internal/models"
)

// CreateBooking inserts a scheduled booking. A unique-index violation on the
// active-booking index maps to ErrDuplicateBooking.
func (db *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	now := time.Now()
	if b.Status == "" {
		b.Status = models.StatusScheduled
	}
	res, err := db.q(ctx).ExecContext(ctx, `
		INSERT INTO bookings (
			reference, company_id, client_id, schedule_id, schedule_date,
			start_time, end_time, status, is_gym_session, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Reference, b.CompanyID, b.ClientID, b.ScheduleID, b.ScheduleDate,
		b.StartTime, b.EndTime, b.Status, b.IsGymSession, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicateBooking
		}
		return fmt.Errorf("insert booking: %w", err)
	}

	b.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("booking last id: %w", err)
	}
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// GetBookingForClient fetches a booking by id scoped to the requesting
// client, so one client cannot cancel another's reservation.
func (db *DB) GetBookingForClient(ctx context.Context, bookingID, clientID int64) (*models.Booking, error) {
	var b models.Booking
	err := db.q(ctx).QueryRowContext(ctx, `
		SELECT id, reference, company_id, client_id, schedule_id, schedule_date,
		       start_time, end_time, status, is_gym_session, created_at, updated_at
		FROM bookings WHERE id = ? AND client_id = ?`,
		bookingID, clientID,
	).Scan(
		&b.ID, &b.Reference, &b.CompanyID, &b.ClientID, &b.ScheduleID, &b.ScheduleDate,
		&b.StartTime, &b.EndTime, &b.Status, &b.IsGymSession, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return &b, nil
}

// DeleteBooking removes the booking row, physically freeing its seat.
func (db *DB) DeleteBooking(ctx context.Context, bookingID int64) error {
	res, err := db.q(ctx).ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, bookingID)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete booking rows: %w", err)
	}
	if rows == 0 {
		return models.ErrBookingNotFound
	}
	return nil
}

// CountScheduledBookings returns the confirmed occupancy of a slot on a date.
func (db *DB) CountScheduledBookings(ctx context.Context, scheduleID int64, date string) (int, error) {
	var count int
	err := db.q(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE schedule_id = ? AND schedule_date = ? AND status != ?`,
		scheduleID, date, models.StatusCancelled,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return count, nil
}

// HasScheduledBooking reports whether the client already holds a
// non-cancelled booking for the slot on the date.
func (db *DB) HasScheduledBooking(ctx context.Context, clientID, scheduleID int64, date string) (bool, error) {
	var one int
	err := db.q(ctx).QueryRowContext(ctx, `
		SELECT 1 FROM bookings
		WHERE client_id = ? AND schedule_id = ? AND schedule_date = ? AND status != ?
		LIMIT 1`,
		clientID, scheduleID, date, models.StatusCancelled,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check booking: %w", err)
	}
	return true, nil
}

// ListUpcomingBookings returns the client's forward-looking bookings,
// ordered by date then start time.
func (db *DB) ListUpcomingBookings(ctx context.Context, clientID int64, fromDate string) ([]models.Booking, error) {
	rows, err := db.q(ctx).QueryContext(ctx, `
		SELECT id, reference, company_id, client_id, schedule_id, schedule_date,
		       start_time, end_time, status, is_gym_session, created_at, updated_at
		FROM bookings
		WHERE client_id = ? AND schedule_date >= ? AND status != ?
		ORDER BY schedule_date, start_time`,
		clientID, fromDate, models.StatusCancelled,
	)
	if err != nil {
		return nil, fmt.Errorf("list upcoming bookings: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// ListBookingsBetween returns all bookings with schedule_date in [from, to],
// newest slot first. Used by the report exporter.
func (db *DB) ListBookingsBetween(ctx context.Context, from, to string) ([]models.Booking, error) {
	rows, err := db.q(ctx).QueryContext(ctx, `
		SELECT id, reference, company_id, client_id, schedule_id, schedule_date,
		       start_time, end_time, status, is_gym_session, created_at, updated_at
		FROM bookings
		WHERE schedule_date >= ? AND schedule_date <= ?
		ORDER BY schedule_date DESC, start_time DESC`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list bookings between: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// ListBookingsNeedingReminder returns scheduled bookings with schedule_date
// in [from, to] whose reminder has not gone out yet.
func (db *DB) ListBookingsNeedingReminder(ctx context.Context, from, to string) ([]models.Booking, error) {
	rows, err := db.q(ctx).QueryContext(ctx, `
		SELECT id, reference, company_id, client_id, schedule_id, schedule_date,
		       start_time, end_time, status, is_gym_session, created_at, updated_at
		FROM bookings
		WHERE schedule_date >= ? AND schedule_date <= ?
		  AND status != ? AND reminder_sent = 0
		ORDER BY schedule_date, start_time`,
		from, to, models.StatusCancelled,
	)
	if err != nil {
		return nil, fmt.Errorf("list bookings needing reminder: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// MarkReminderSent flags the booking so the reminder goes out once.
func (db *DB) MarkReminderSent(ctx context.Context, bookingID int64) error {
	_, err := db.q(ctx).ExecContext(ctx, `
		UPDATE bookings SET reminder_sent = 1, updated_at = ? WHERE id = ?`,
		time.Now(), bookingID,
	)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}

func scanBookings(rows *sql.Rows) ([]models.Booking, error) {
	var res []models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(
			&b.ID, &b.Reference, &b.CompanyID, &b.ClientID, &b.ScheduleID, &b.ScheduleDate,
			&b.StartTime, &b.EndTime, &b.Status, &b.IsGymSession, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		res = append(res, b)
	}
	return res, rows.Err()
}
