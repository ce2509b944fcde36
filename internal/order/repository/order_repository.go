package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fulfillment/internal/domain"
	apperrors "fulfillment/internal/errors"
)

type MySQLOrderRepository struct {
	db *sql.DB
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT id, order_number, customer_email, total_amount, currency,
		       payment_state, archived_at, created_at, updated_at
		FROM orders
		WHERE id = ?
	`

	var (
		order    domain.Order
		archived sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID, &order.OrderNumber, &order.CustomerEmail, &order.TotalAmount, &order.Currency,
		&order.PaymentState, &archived, &order.CreatedAt, &order.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	if archived.Valid {
		order.ArchivedAt = &archived.Time
	}
	return &order, nil
}

// MarkPaid flips payment_state inside the settlement transaction. It is a no-op
// for an order that is already PAID.
func (r *MySQLOrderRepository) MarkPaid(ctx context.Context, tx *sql.Tx, id string) error {
	query := `UPDATE orders SET payment_state = ? WHERE id = ?`

	result, err := tx.ExecContext(ctx, query, domain.PaymentStatePaid, id)
	if err != nil {
		return fmt.Errorf("updating order payment state: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("order %s not found", id))
	}

	return nil
}
