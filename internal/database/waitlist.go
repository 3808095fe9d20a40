package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gymbook/internal/models"
)

// GetWaitlistEntry returns the client's entry for the slot/date, or nil when
// the client is not waitlisted.
func (db *DB) GetWaitlistEntry(ctx context.Context, clientID, scheduleID int64, date string) (*models.WaitlistEntry, error) {
	var e models.WaitlistEntry
	err := db.q(ctx).QueryRowContext(ctx, `
		SELECT id, company_id, client_id, schedule_id, schedule_date,
		       start_time, end_time, position, created_at
		FROM waitlist_entries
		WHERE client_id = ? AND schedule_id = ? AND schedule_date = ?`,
		clientID, scheduleID, date,
	).Scan(
		&e.ID, &e.CompanyID, &e.ClientID, &e.ScheduleID, &e.ScheduleDate,
		&e.StartTime, &e.EndTime, &e.Position, &e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get waitlist entry: %w", err)
	}
	return &e, nil
}

// NextWaitlistPosition computes MAX(position)+1 for the slot/date. Unlike
// COUNT(*)+1 this never collides with a live row after mid-list removals.
// Callers must hold the write transaction so two joins cannot read the same
// maximum.
func (db *DB) NextWaitlistPosition(ctx context.Context, scheduleID int64, date string) (int, error) {
	var next int
	err := db.q(ctx).QueryRowContext(ctx, `
		SELECT COALESCE(MAX(position), 0) + 1 FROM waitlist_entries
		WHERE schedule_id = ? AND schedule_date = ?`,
		scheduleID, date,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next waitlist position: %w", err)
	}
	return next, nil
}

// CreateWaitlistEntry inserts the entry at its assigned position.
func (db *DB) CreateWaitlistEntry(ctx context.Context, e *models.WaitlistEntry) error {
	res, err := db.q(ctx).ExecContext(ctx, `
		INSERT INTO waitlist_entries (
			company_id, client_id, schedule_id, schedule_date,
			start_time, end_time, position
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.CompanyID, e.ClientID, e.ScheduleID, e.ScheduleDate,
		e.StartTime, e.EndTime, e.Position,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicateBooking
		}
		return fmt.Errorf("insert waitlist entry: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("waitlist last id: %w", err)
	}
	return nil
}

// ListWaitlist returns up to limit entries for the slot/date in promotion
// order (ascending position).
func (db *DB) ListWaitlist(ctx context.Context, scheduleID int64, date string, limit int) ([]models.WaitlistEntry, error) {
	rows, err := db.q(ctx).QueryContext(ctx, `
		SELECT id, company_id, client_id, schedule_id, schedule_date,
		       start_time, end_time, position, created_at
		FROM waitlist_entries
		WHERE schedule_id = ? AND schedule_date = ?
		ORDER BY position
		LIMIT ?`,
		scheduleID, date, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	defer rows.Close()

	var res []models.WaitlistEntry
	for rows.Next() {
		var e models.WaitlistEntry
		if err := rows.Scan(
			&e.ID, &e.CompanyID, &e.ClientID, &e.ScheduleID, &e.ScheduleDate,
			&e.StartTime, &e.EndTime, &e.Position, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan waitlist entry: %w", err)
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// DeleteWaitlistEntry removes an entry by id. Later entries keep their
// original positions.
func (db *DB) DeleteWaitlistEntry(ctx context.Context, id int64) error {
	_, err := db.q(ctx).ExecContext(ctx, `DELETE FROM waitlist_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete waitlist entry: %w", err)
	}
	return nil
}

// RemoveFromWaitlist deletes the client's entry for the slot/date. Returns
// false when the client was not waitlisted.
func (db *DB) RemoveFromWaitlist(ctx context.Context, clientID, scheduleID int64, date string) (bool, error) {
	res, err := db.q(ctx).ExecContext(ctx, `
		DELETE FROM waitlist_entries
		WHERE client_id = ? AND schedule_id = ? AND schedule_date = ?`,
		clientID, scheduleID, date,
	)
	if err != nil {
		return false, fmt.Errorf("remove from waitlist: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove from waitlist rows: %w", err)
	}
	return rows > 0, nil
}

// CountWaitlist returns the waitlist depth for the slot/date.
func (db *DB) CountWaitlist(ctx context.Context, scheduleID int64, date string) (int, error) {
	var count int
	err := db.q(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM waitlist_entries
		WHERE schedule_id = ? AND schedule_date = ?`,
		scheduleID, date,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count waitlist: %w", err)
	}
	return count, nil
}
