package domain

import "time"

type ConfirmationStatus string

const (
	ConfirmationInProgress ConfirmationStatus = "IN_PROGRESS"
	ConfirmationConfirmed  ConfirmationStatus = "CONFIRMED"
	ConfirmationRejected   ConfirmationStatus = "REJECTED"
)

// PaymentConfirmation is the idempotency marker for one (order, session) pair.
type PaymentConfirmation struct {
	OrderID     string
	SessionID   string
	Status      ConfirmationStatus
	Reason      *string
	ClaimedAt   time.Time
	CompletedAt *time.Time
}

type PaymentOutcomeStatus string

const (
	PaymentOutcomeAlreadyProcessed PaymentOutcomeStatus = "ALREADY_PROCESSED"
	PaymentOutcomeConfirmed        PaymentOutcomeStatus = "CONFIRMED"
	PaymentOutcomeRejected         PaymentOutcomeStatus = "REJECTED"
	// PaymentOutcomePending leaves no marker behind: the session may still
	// settle, and a later call for the same pair asks the gateway again.
	PaymentOutcomePending PaymentOutcomeStatus = "PENDING"
)

// PaymentOutcome is what the confirmation gate returns. Recorded is the
// persisted marker status behind an ALREADY_PROCESSED outcome.
type PaymentOutcome struct {
	OrderID      string
	SessionID    string
	Status       PaymentOutcomeStatus
	Recorded     ConfirmationStatus
	PaymentState PaymentState
	Reason       string
}

func (o PaymentOutcome) IsPaid() bool {
	return o.PaymentState == PaymentStatePaid
}
