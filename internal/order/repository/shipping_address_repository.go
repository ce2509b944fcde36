package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fulfillment/internal/domain"
)

// MySQLShippingAddressRepository is read-only: addresses are captured at
// checkout and never changed after payment.
type MySQLShippingAddressRepository struct {
	db *sql.DB
}

func NewMySQLShippingAddressRepository(db *sql.DB) *MySQLShippingAddressRepository {
	return &MySQLShippingAddressRepository{db: db}
}

// FindByOrderID returns nil without error when the order has no address.
func (r *MySQLShippingAddressRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.ShippingAddress, error) {
	query := `
		SELECT recipient_name, phone, line1, line2, city, postal_code, country
		FROM shipping_addresses
		WHERE order_id = ?
	`

	var (
		addr  domain.ShippingAddress
		line2 sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&addr.RecipientName, &addr.Phone, &addr.Line1, &line2, &addr.City, &addr.PostalCode, &addr.Country,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying shipping address: %w", err)
	}

	if line2.Valid {
		addr.Line2 = &line2.String
	}
	return &addr, nil
}
