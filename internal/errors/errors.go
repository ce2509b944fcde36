package errors

import (
	"errors"
	"fmt"
)

type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// InvalidRequestError rejects malformed input (missing identifiers) before any I/O.
type InvalidRequestError struct {
	Message string
	Details []ValidationDetail
}

func (e *InvalidRequestError) Error() string {
	return e.Message
}

func NewInvalidRequestError(message string, details ...ValidationDetail) *InvalidRequestError {
	return &InvalidRequestError{
		Message: message,
		Details: details,
	}
}

func IsInvalidRequestError(err error) (*InvalidRequestError, bool) {
	var ire *InvalidRequestError
	if errors.As(err, &ire) {
		return ire, true
	}
	return nil, false
}

type ValidationError struct {
	Message string
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: details,
	}
}

func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

func IsNotFoundError(err error) (*NotFoundError, bool) {
	var nfe *NotFoundError
	if errors.As(err, &nfe) {
		return nfe, true
	}
	return nil, false
}

// ConflictError reports an operation the current state forbids. CurrentState lets
// the caller offer the right follow-up (e.g. "cancel the label first").
type ConflictError struct {
	Message      string
	CurrentState string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(message string, currentState string) *ConflictError {
	return &ConflictError{
		Message:      message,
		CurrentState: currentState,
	}
}

func IsConflictError(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// DuplicateOperationError is returned when a billable operation would be repeated.
type DuplicateOperationError struct {
	Message      string
	CurrentState string
}

func (e *DuplicateOperationError) Error() string {
	return e.Message
}

func NewDuplicateOperationError(message string, currentState string) *DuplicateOperationError {
	return &DuplicateOperationError{
		Message:      message,
		CurrentState: currentState,
	}
}

func IsDuplicateOperationError(err error) (*DuplicateOperationError, bool) {
	var de *DuplicateOperationError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

type TransientCarrierError struct {
	Message    string
	RetryCount int
	Cause      error
}

func (e *TransientCarrierError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TransientCarrierError) Unwrap() error {
	return e.Cause
}

func NewTransientCarrierError(message string, retryCount int, cause error) *TransientCarrierError {
	return &TransientCarrierError{
		Message:    message,
		RetryCount: retryCount,
		Cause:      cause,
	}
}

func IsTransientCarrierError(err error) (*TransientCarrierError, bool) {
	var tce *TransientCarrierError
	if errors.As(err, &tce) {
		return tce, true
	}
	return nil, false
}

type PaymentVerificationError struct {
	OrderID   string
	SessionID string
	Cause     error
}

func (e *PaymentVerificationError) Error() string {
	msg := fmt.Sprintf("payment verification failed for order %s session %s", e.OrderID, e.SessionID)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *PaymentVerificationError) Unwrap() error {
	return e.Cause
}

func NewPaymentVerificationError(orderID, sessionID string, cause error) *PaymentVerificationError {
	return &PaymentVerificationError{
		OrderID:   orderID,
		SessionID: sessionID,
		Cause:     cause,
	}
}

func IsPaymentVerificationError(err error) (*PaymentVerificationError, bool) {
	var pve *PaymentVerificationError
	if errors.As(err, &pve) {
		return pve, true
	}
	return nil, false
}

// NotificationError describes a failed notification channel. It is only ever
// reported inside a dispatch result, never returned from the pipeline.
type NotificationError struct {
	Channel string
	Cause   error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification channel %s failed: %v", e.Channel, e.Cause)
}

func (e *NotificationError) Unwrap() error {
	return e.Cause
}

func NewNotificationError(channel string, cause error) *NotificationError {
	return &NotificationError{
		Channel: channel,
		Cause:   cause,
	}
}

func IsNotificationError(err error) (*NotificationError, bool) {
	var ne *NotificationError
	if errors.As(err, &ne) {
		return ne, true
	}
	return nil, false
}

type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		Message: message,
		Cause:   cause,
	}
}
