package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrder_Creation(t *testing.T) {
	createdAt := time.Now()
	updatedAt := time.Now()

	order := Order{
		ID:            "O1",
		OrderNumber:   "SF-100045",
		CustomerEmail: "john@example.com",
		TotalAmount:   decimal.RequireFromString("99.99"),
		Currency:      "EUR",
		PaymentState:  PaymentStateUnpaid,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}

	assert.Equal(t, "O1", order.ID)
	assert.Equal(t, "SF-100045", order.OrderNumber)
	assert.True(t, decimal.RequireFromString("99.99").Equal(order.TotalAmount))
	assert.False(t, order.IsPaid())
	assert.Nil(t, order.ArchivedAt)
	assert.Equal(t, createdAt, order.CreatedAt)
	assert.Equal(t, updatedAt, order.UpdatedAt)
}

func TestOrder_IsPaid(t *testing.T) {
	order := Order{ID: "O2", PaymentState: PaymentStatePaid}
	assert.True(t, order.IsPaid())
}

func TestOrder_PaymentStateConstants(t *testing.T) {
	assert.Equal(t, PaymentState("UNPAID"), PaymentStateUnpaid)
	assert.Equal(t, PaymentState("PAID"), PaymentStatePaid)
}

func TestOrderItem_LineTotal(t *testing.T) {
	item := OrderItem{
		ID:        1,
		OrderID:   "O1",
		ProductID: "SKU-5",
		Name:      "Ceramic mug",
		Quantity:  3,
		UnitPrice: decimal.RequireFromString("29.99"),
	}

	assert.Equal(t, "89.97", item.LineTotal().StringFixed(2))
}

func TestOrderItem_MultipleItems(t *testing.T) {
	items := []OrderItem{
		{ID: 1, OrderID: "O1", ProductID: "SKU-5", Quantity: 2, UnitPrice: decimal.RequireFromString("50.00")},
		{ID: 2, OrderID: "O1", ProductID: "SKU-10", Quantity: 1, UnitPrice: decimal.RequireFromString("75.50")},
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}

	assert.Len(t, items, 2)
	assert.Equal(t, "175.50", total.StringFixed(2))
}

func TestPaymentOutcome_IsPaid(t *testing.T) {
	outcome := PaymentOutcome{Status: PaymentOutcomeAlreadyProcessed, Recorded: ConfirmationInProgress, PaymentState: PaymentStateUnpaid}
	assert.False(t, outcome.IsPaid())

	outcome.PaymentState = PaymentStatePaid
	assert.True(t, outcome.IsPaid())
}
