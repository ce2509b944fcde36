package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type ConfirmationRepository interface {
	MarkConfirmed(ctx context.Context, tx *sql.Tx, orderID, sessionID string, at time.Time) error
}

type OrderRepository interface {
	MarkPaid(ctx context.Context, tx *sql.Tx, id string) error
}

// SettlementService records a verified payment: the idempotency marker and the
// order's payment state change together or not at all.
type SettlementService struct {
	db               TransactionManager
	confirmationRepo ConfirmationRepository
	orderRepo        OrderRepository
	logger           *zap.Logger
	txTimeout        time.Duration
}

func NewSettlementService(
	db TransactionManager,
	confirmationRepo ConfirmationRepository,
	orderRepo OrderRepository,
	logger *zap.Logger,
	txTimeout time.Duration,
) *SettlementService {
	return &SettlementService{
		db:               db,
		confirmationRepo: confirmationRepo,
		orderRepo:        orderRepo,
		logger:           logger,
		txTimeout:        txTimeout,
	}
}

func (s *SettlementService) Settle(ctx context.Context, orderID, sessionID string, at time.Time) error {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		s.logger.Error("failed to begin transaction", zap.Error(err))
		return err
	}
	// MySQL ignores rollback if already committed.
	defer tx.Rollback()

	if err := s.confirmationRepo.MarkConfirmed(txCtx, tx, orderID, sessionID, at); err != nil {
		s.logger.Error("failed to mark confirmation", zap.String("orderId", orderID), zap.String("sessionId", sessionID), zap.Error(err))
		return err
	}

	if err := s.orderRepo.MarkPaid(txCtx, tx, orderID); err != nil {
		s.logger.Error("failed to mark order paid", zap.String("orderId", orderID), zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transaction", zap.String("orderId", orderID), zap.Error(err))
		return err
	}

	s.logger.Info("payment settled", zap.String("orderId", orderID), zap.String("sessionId", sessionID))
	return nil
}
