package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gymbook/internal/models"
)

// GetSlot returns a schedule slot definition.
func (db *DB) GetSlot(ctx context.Context, scheduleID int64) (*models.ScheduleSlot, error) {
	var s models.ScheduleSlot
	var scheduleDate sql.NullString
	err := db.q(ctx).QueryRowContext(ctx, `
		SELECT id, company_id, name, max_capacity, day_of_week, schedule_date, start_time, end_time
		FROM schedule_slots WHERE id = ?`,
		scheduleID,
	).Scan(&s.ID, &s.CompanyID, &s.Name, &s.MaxCapacity, &s.DayOfWeek, &scheduleDate, &s.StartTime, &s.EndTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrSlotNotFound
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	s.ScheduleDate = scheduleDate.String
	return &s, nil
}

// ListSlotsForDate returns slots that run on the given date: recurring slots
// whose day_of_week matches plus one-off slots pinned to the date.
func (db *DB) ListSlotsForDate(ctx context.Context, date string, weekday int) ([]models.ScheduleSlot, error) {
	rows, err := db.q(ctx).QueryContext(ctx, `
		SELECT id, company_id, name, max_capacity, day_of_week, schedule_date, start_time, end_time
		FROM schedule_slots
		WHERE day_of_week = ? OR schedule_date = ?
		ORDER BY start_time`,
		weekday, date,
	)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var res []models.ScheduleSlot
	for rows.Next() {
		var s models.ScheduleSlot
		var scheduleDate sql.NullString
		if err := rows.Scan(
			&s.ID, &s.CompanyID, &s.Name, &s.MaxCapacity,
			&s.DayOfWeek, &scheduleDate, &s.StartTime, &s.EndTime,
		); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		s.ScheduleDate = scheduleDate.String
		res = append(res, s)
	}
	return res, rows.Err()
}

// CreateSlot inserts a slot definition. Schedule management tooling and
// tests use this; the booking core treats slots as read-only. A slot is
// either recurring (day_of_week) or one-off (schedule_date), never both and
// never neither, or ListSlotsForDate could not place it on a calendar.
func (db *DB) CreateSlot(ctx context.Context, s *models.ScheduleSlot) error {
	if (s.DayOfWeek == nil) == (s.ScheduleDate == "") {
		return fmt.Errorf("%w: exactly one of day_of_week and schedule_date must be set", models.ErrValidation)
	}
	var scheduleDate any
	if s.ScheduleDate != "" {
		scheduleDate = s.ScheduleDate
	}
	res, err := db.q(ctx).ExecContext(ctx, `
		INSERT INTO schedule_slots (company_id, name, max_capacity, day_of_week, schedule_date, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.CompanyID, s.Name, s.MaxCapacity, s.DayOfWeek, scheduleDate, s.StartTime, s.EndTime,
	)
	if err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}
	s.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("slot last id: %w", err)
	}
	return nil
}
