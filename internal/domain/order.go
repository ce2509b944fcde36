package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentState string

const (
	PaymentStateUnpaid PaymentState = "UNPAID"
	PaymentStatePaid   PaymentState = "PAID"
)

type Order struct {
	ID            string
	OrderNumber   string
	CustomerEmail string
	TotalAmount   decimal.Decimal
	Currency      string
	PaymentState  PaymentState
	ArchivedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (o Order) IsPaid() bool {
	return o.PaymentState == PaymentStatePaid
}

type OrderItem struct {
	ID        uint
	OrderID   string
	ProductID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ShippingAddress is immutable once the order is paid.
type ShippingAddress struct {
	RecipientName string
	Phone         string
	Line1         string
	Line2         *string
	City          string
	PostalCode    string
	Country       string
}

// OrderDetail is the materialized aggregate read by the confirmation view and
// the shipment stages.
type OrderDetail struct {
	Order    Order
	Items    []OrderItem
	Address  *ShippingAddress
	Shipment Shipment
	State    ShipmentState
}
