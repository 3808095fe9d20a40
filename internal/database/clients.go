package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gymbook/internal/models"
)

// GetClient returns a client's account and session ledger.
func (db *DB) GetClient(ctx context.Context, clientID int64) (*models.ClientAccount, error) {
	var c models.ClientAccount
	err := db.q(ctx).QueryRowContext(ctx, `
		SELECT id, company_id, name, email, total_sessions, sessions_used, sessions_remaining
		FROM clients WHERE id = ?`,
		clientID,
	).Scan(&c.ID, &c.CompanyID, &c.Name, &c.Email, &c.TotalSessions, &c.SessionsUsed, &c.SessionsRemaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrClientNotFound
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &c, nil
}

// DebitSession consumes one remaining session: used+1, remaining-1.
// The WHERE guard keeps the ledger from going negative when two debits race.
func (db *DB) DebitSession(ctx context.Context, clientID int64) error {
	res, err := db.q(ctx).ExecContext(ctx, `
		UPDATE clients
		SET sessions_used = sessions_used + 1,
		    sessions_remaining = sessions_remaining - 1,
		    updated_at = ?
		WHERE id = ? AND sessions_remaining > 0`,
		time.Now(), clientID,
	)
	if err != nil {
		return fmt.Errorf("debit session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit session rows: %w", err)
	}
	if rows == 0 {
		return models.ErrNoSessionsRemaining
	}
	return nil
}

// RefundSession reverses a debit: used-1 (floored at zero), remaining+1.
func (db *DB) RefundSession(ctx context.Context, clientID int64) error {
	res, err := db.q(ctx).ExecContext(ctx, `
		UPDATE clients
		SET sessions_used = MAX(sessions_used - 1, 0),
		    sessions_remaining = sessions_remaining + 1,
		    updated_at = ?
		WHERE id = ?`,
		time.Now(), clientID,
	)
	if err != nil {
		return fmt.Errorf("refund session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("refund session rows: %w", err)
	}
	if rows == 0 {
		return models.ErrClientNotFound
	}
	return nil
}

// CreditSessions applies a purchase from the payment collaborator to both
// total_sessions and sessions_remaining. Idempotent per paymentRef: a replay
// returns (false, nil) and leaves the ledger untouched.
func (db *DB) CreditSessions(ctx context.Context, clientID int64, sessions int, paymentRef string) (bool, error) {
	applied := false
	err := db.WithTx(ctx, func(ctx context.Context) error {
		_, err := db.q(ctx).ExecContext(ctx, `
			INSERT INTO payment_credits (client_id, payment_ref, sessions)
			VALUES (?, ?, ?)`,
			clientID, paymentRef, sessions,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return nil // already applied
			}
			return fmt.Errorf("record payment credit: %w", err)
		}

		res, err := db.q(ctx).ExecContext(ctx, `
			UPDATE clients
			SET total_sessions = total_sessions + ?,
			    sessions_remaining = sessions_remaining + ?,
			    updated_at = ?
			WHERE id = ?`,
			sessions, sessions, time.Now(), clientID,
		)
		if err != nil {
			return fmt.Errorf("credit sessions: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("credit sessions rows: %w", err)
		}
		if rows == 0 {
			return models.ErrClientNotFound
		}
		applied = true
		return nil
	})
	return applied, err
}

// CreateClient inserts a client account. Used by provisioning and tests;
// the booking core itself never creates accounts.
func (db *DB) CreateClient(ctx context.Context, c *models.ClientAccount) error {
	res, err := db.q(ctx).ExecContext(ctx, `
		INSERT INTO clients (company_id, name, email, total_sessions, sessions_used, sessions_remaining)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.CompanyID, c.Name, c.Email, c.TotalSessions, c.SessionsUsed, c.SessionsRemaining,
	)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("client last id: %w", err)
	}
	return nil
}
