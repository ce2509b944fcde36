package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fulfillment/internal/domain"
	apperrors "fulfillment/internal/errors"
	"fulfillment/internal/infrastructure/mysql"
)

// MySQLConfirmationRepository owns the payment_confirmations idempotency markers.
// Every state change is a conditional write so concurrent callers agree on a
// single winner without in-process locks.
type MySQLConfirmationRepository struct {
	db *sql.DB
}

func NewMySQLConfirmationRepository(db *sql.DB) *MySQLConfirmationRepository {
	return &MySQLConfirmationRepository{db: db}
}

// Claim inserts an IN_PROGRESS marker. It reports false when a marker for the
// pair already exists.
func (r *MySQLConfirmationRepository) Claim(ctx context.Context, orderID, sessionID string, at time.Time) (bool, error) {
	query := `
		INSERT INTO payment_confirmations (order_id, session_id, status, claimed_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, orderID, sessionID, domain.ConfirmationInProgress, at)
	if mysql.IsDuplicateEntry(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inserting payment confirmation marker: %w", err)
	}
	return true, nil
}

// ReclaimStale takes over an IN_PROGRESS marker claimed before staleBefore.
func (r *MySQLConfirmationRepository) ReclaimStale(ctx context.Context, orderID, sessionID string, staleBefore, at time.Time) (bool, error) {
	query := `
		UPDATE payment_confirmations
		SET claimed_at = ?
		WHERE order_id = ? AND session_id = ? AND status = ? AND claimed_at < ?
	`

	result, err := r.db.ExecContext(ctx, query, at, orderID, sessionID, domain.ConfirmationInProgress, staleBefore)
	if err != nil {
		return false, fmt.Errorf("reclaiming stale payment confirmation: %w", err)
	}
	return affectedOne(result)
}

func (r *MySQLConfirmationRepository) Find(ctx context.Context, orderID, sessionID string) (*domain.PaymentConfirmation, error) {
	query := `
		SELECT order_id, session_id, status, reason, claimed_at, completed_at
		FROM payment_confirmations
		WHERE order_id = ? AND session_id = ?
	`

	var (
		pc     domain.PaymentConfirmation
		reason sql.NullString
		done   sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, orderID, sessionID).Scan(
		&pc.OrderID, &pc.SessionID, &pc.Status, &reason, &pc.ClaimedAt, &done,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("payment confirmation for order %s session %s not found", orderID, sessionID))
	}
	if err != nil {
		return nil, fmt.Errorf("querying payment confirmation: %w", err)
	}

	if reason.Valid {
		pc.Reason = &reason.String
	}
	if done.Valid {
		pc.CompletedAt = &done.Time
	}
	return &pc, nil
}

// MarkConfirmed finalizes the marker inside the settlement transaction.
func (r *MySQLConfirmationRepository) MarkConfirmed(ctx context.Context, tx *sql.Tx, orderID, sessionID string, at time.Time) error {
	query := `
		UPDATE payment_confirmations
		SET status = ?, completed_at = ?
		WHERE order_id = ? AND session_id = ? AND status = ?
	`

	result, err := tx.ExecContext(ctx, query, domain.ConfirmationConfirmed, at, orderID, sessionID, domain.ConfirmationInProgress)
	if err != nil {
		return fmt.Errorf("marking payment confirmed: %w", err)
	}

	ok, err := affectedOne(result)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewConflictError(
			fmt.Sprintf("payment confirmation for order %s session %s is no longer in progress", orderID, sessionID),
			string(domain.ConfirmationInProgress),
		)
	}
	return nil
}

func (r *MySQLConfirmationRepository) MarkRejected(ctx context.Context, orderID, sessionID, reason string, at time.Time) error {
	query := `
		UPDATE payment_confirmations
		SET status = ?, reason = ?, completed_at = ?
		WHERE order_id = ? AND session_id = ? AND status = ?
	`

	_, err := r.db.ExecContext(ctx, query, domain.ConfirmationRejected, reason, at, orderID, sessionID, domain.ConfirmationInProgress)
	if err != nil {
		return fmt.Errorf("marking payment rejected: %w", err)
	}
	return nil
}

// Release deletes an IN_PROGRESS marker so the pair can be retried.
func (r *MySQLConfirmationRepository) Release(ctx context.Context, orderID, sessionID string) error {
	query := `
		DELETE FROM payment_confirmations
		WHERE order_id = ? AND session_id = ? AND status = ?
	`

	if _, err := r.db.ExecContext(ctx, query, orderID, sessionID, domain.ConfirmationInProgress); err != nil {
		return fmt.Errorf("releasing payment confirmation marker: %w", err)
	}
	return nil
}

func affectedOne(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return n == 1, nil
}
