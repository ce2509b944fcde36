package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"fulfillment/internal/domain"
	apperrors "fulfillment/internal/errors"
	"fulfillment/internal/payment/gateway"
)

type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
}

type ConfirmationRepository interface {
	Claim(ctx context.Context, orderID, sessionID string, at time.Time) (bool, error)
	ReclaimStale(ctx context.Context, orderID, sessionID string, staleBefore, at time.Time) (bool, error)
	Find(ctx context.Context, orderID, sessionID string) (*domain.PaymentConfirmation, error)
	MarkRejected(ctx context.Context, orderID, sessionID, reason string, at time.Time) error
	Release(ctx context.Context, orderID, sessionID string) error
}

type PaymentGateway interface {
	Verify(ctx context.Context, orderID, sessionID string) (*gateway.Verification, error)
}

type SettlementService interface {
	Settle(ctx context.Context, orderID, sessionID string, at time.Time) error
}

type OrderCache interface {
	Invalidate(ctx context.Context, orderID string) error
}

type Metrics interface {
	PaymentOutcome(outcome string)
	ObserveExternal(target, operation string, start time.Time)
}

// ConfirmPaymentUseCase is the gate between a returning checkout session and
// the rest of the pipeline. At most one caller per (order, session) pair gets
// to talk to the gateway and record an outcome.
type ConfirmPaymentUseCase struct {
	orderRepo        OrderRepository
	confirmationRepo ConfirmationRepository
	gateway          PaymentGateway
	settlement       SettlementService
	cache            OrderCache
	metrics          Metrics
	logger           *zap.Logger
	claimLease       time.Duration
	now              func() time.Time
}

func NewConfirmPaymentUseCase(
	orderRepo OrderRepository,
	confirmationRepo ConfirmationRepository,
	paymentGateway PaymentGateway,
	settlement SettlementService,
	cache OrderCache,
	metrics Metrics,
	logger *zap.Logger,
	claimLease time.Duration,
) *ConfirmPaymentUseCase {
	return &ConfirmPaymentUseCase{
		orderRepo:        orderRepo,
		confirmationRepo: confirmationRepo,
		gateway:          paymentGateway,
		settlement:       settlement,
		cache:            cache,
		metrics:          metrics,
		logger:           logger,
		claimLease:       claimLease,
		now:              time.Now,
	}
}

func (uc *ConfirmPaymentUseCase) ConfirmPayment(ctx context.Context, orderID, sessionID string) (*domain.PaymentOutcome, error) {
	orderID = strings.TrimSpace(orderID)
	sessionID = strings.TrimSpace(sessionID)
	if err := validateIdentifiers(orderID, sessionID); err != nil {
		return nil, err
	}

	logger := uc.logger.With(zap.String("orderId", orderID), zap.String("sessionId", sessionID))

	order, err := uc.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.IsPaid() {
		logger.Info("order already paid, skipping gateway")
		return uc.record(&domain.PaymentOutcome{
			OrderID:      orderID,
			SessionID:    sessionID,
			Status:       domain.PaymentOutcomeAlreadyProcessed,
			Recorded:     domain.ConfirmationConfirmed,
			PaymentState: domain.PaymentStatePaid,
		}), nil
	}

	claimed, existing, err := uc.claim(ctx, orderID, sessionID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		logger.Info("payment confirmation already recorded", zap.String("recorded", string(existing.Status)))
		return uc.record(alreadyProcessed(existing)), nil
	}

	start := uc.now()
	verification, err := uc.gateway.Verify(ctx, orderID, sessionID)
	uc.metrics.ObserveExternal("payment_gateway", "verify_session", start)
	if err != nil {
		logger.Warn("payment verification failed, releasing claim", zap.Error(err))
		if relErr := uc.confirmationRepo.Release(context.WithoutCancel(ctx), orderID, sessionID); relErr != nil {
			logger.Error("failed to release payment claim", zap.Error(relErr))
		}
		uc.metrics.PaymentOutcome("VERIFICATION_ERROR")
		return nil, apperrors.NewPaymentVerificationError(orderID, sessionID, err)
	}

	if verification.Pending {
		if relErr := uc.confirmationRepo.Release(context.WithoutCancel(ctx), orderID, sessionID); relErr != nil {
			logger.Error("failed to release payment claim", zap.Error(relErr))
		}
		logger.Info("payment not settled yet", zap.String("reason", verification.Reason))
		return uc.record(&domain.PaymentOutcome{
			OrderID:      orderID,
			SessionID:    sessionID,
			Status:       domain.PaymentOutcomePending,
			PaymentState: order.PaymentState,
			Reason:       verification.Reason,
		}), nil
	}

	if !verification.Confirmed {
		if err := uc.confirmationRepo.MarkRejected(ctx, orderID, sessionID, verification.Reason, uc.now()); err != nil {
			return nil, fmt.Errorf("recording rejected payment: %w", err)
		}
		logger.Warn("payment rejected", zap.String("reason", verification.Reason))
		return uc.record(&domain.PaymentOutcome{
			OrderID:      orderID,
			SessionID:    sessionID,
			Status:       domain.PaymentOutcomeRejected,
			Recorded:     domain.ConfirmationRejected,
			PaymentState: order.PaymentState,
			Reason:       verification.Reason,
		}), nil
	}

	if err := uc.settlement.Settle(ctx, orderID, sessionID, uc.now()); err != nil {
		if relErr := uc.confirmationRepo.Release(context.WithoutCancel(ctx), orderID, sessionID); relErr != nil {
			logger.Error("failed to release payment claim", zap.Error(relErr))
		}
		return nil, apperrors.NewInternalError("recording confirmed payment", err)
	}

	if err := uc.cache.Invalidate(ctx, orderID); err != nil {
		logger.Warn("failed to invalidate order cache", zap.Error(err))
	}

	logger.Info("payment confirmed")
	return uc.record(&domain.PaymentOutcome{
		OrderID:      orderID,
		SessionID:    sessionID,
		Status:       domain.PaymentOutcomeConfirmed,
		Recorded:     domain.ConfirmationConfirmed,
		PaymentState: domain.PaymentStatePaid,
	}), nil
}

// claim returns true when this caller owns the pair. Otherwise it returns the
// marker that blocked it. A marker released between the failed insert and the
// read is retried once.
func (uc *ConfirmPaymentUseCase) claim(ctx context.Context, orderID, sessionID string) (bool, *domain.PaymentConfirmation, error) {
	var existing *domain.PaymentConfirmation

	for attempt := 0; attempt < 2; attempt++ {
		now := uc.now()
		claimed, err := uc.confirmationRepo.Claim(ctx, orderID, sessionID, now)
		if err != nil {
			return false, nil, err
		}
		if claimed {
			return true, nil, nil
		}

		existing, err = uc.confirmationRepo.Find(ctx, orderID, sessionID)
		if _, ok := apperrors.IsNotFoundError(err); ok {
			continue
		}
		if err != nil {
			return false, nil, err
		}

		if existing.Status != domain.ConfirmationInProgress || now.Sub(existing.ClaimedAt) < uc.claimLease {
			return false, existing, nil
		}

		reclaimed, err := uc.confirmationRepo.ReclaimStale(ctx, orderID, sessionID, now.Add(-uc.claimLease), now)
		if err != nil {
			return false, nil, err
		}
		if reclaimed {
			uc.logger.Warn("reclaimed stale payment claim",
				zap.String("orderId", orderID),
				zap.String("sessionId", sessionID),
				zap.Time("claimedAt", existing.ClaimedAt))
			return true, nil, nil
		}
		return false, existing, nil
	}

	if existing == nil {
		existing = &domain.PaymentConfirmation{OrderID: orderID, SessionID: sessionID, Status: domain.ConfirmationInProgress}
	}
	return false, existing, nil
}

func (uc *ConfirmPaymentUseCase) record(outcome *domain.PaymentOutcome) *domain.PaymentOutcome {
	uc.metrics.PaymentOutcome(string(outcome.Status))
	return outcome
}

func alreadyProcessed(pc *domain.PaymentConfirmation) *domain.PaymentOutcome {
	outcome := &domain.PaymentOutcome{
		OrderID:      pc.OrderID,
		SessionID:    pc.SessionID,
		Status:       domain.PaymentOutcomeAlreadyProcessed,
		Recorded:     pc.Status,
		PaymentState: domain.PaymentStateUnpaid,
	}
	if pc.Status == domain.ConfirmationConfirmed {
		outcome.PaymentState = domain.PaymentStatePaid
	}
	if pc.Reason != nil {
		outcome.Reason = *pc.Reason
	}
	return outcome
}

func validateIdentifiers(orderID, sessionID string) error {
	var details []apperrors.ValidationDetail
	if orderID == "" {
		details = append(details, apperrors.ValidationDetail{Field: "orderId", Message: "orderId is required"})
	}
	if sessionID == "" {
		details = append(details, apperrors.ValidationDetail{Field: "sessionId", Message: "sessionId is required"})
	}
	if len(details) > 0 {
		return apperrors.NewInvalidRequestError("missing payment identifiers", details...)
	}
	return nil
}
