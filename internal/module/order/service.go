package order

import (
	"context"

	"go.uber.org/zap"
)

// StockAdjuster mutates shop inventory for an order. The host platform
// owns the actual stock ledger.
type StockAdjuster interface {
	Reduce(ctx context.Context, order *Order) error
	Restore(ctx context.Context, order *Order) error
}

// Service applies status transitions and the stock policy to local
// orders. The persisted stock-reduced flag, not the order status, is
// the idempotency key for stock mutation.
type Service struct {
	repo   Repository
	stock  StockAdjuster
	logger *zap.Logger
}

// NewService creates a new order service.
func NewService(repo Repository, stock StockAdjuster, logger *zap.Logger) *Service {
	return &Service{repo: repo, stock: stock, logger: logger}
}

// Repo exposes the underlying repository.
func (s *Service) Repo() Repository { return s.repo }

// ApplyStatus moves the order to the given status, records the note,
// and applies the stock policy for the target status.
func (s *Service) ApplyStatus(ctx context.Context, o *Order, status Status, note string) error {
	switch status {
	case StatusOnHold:
		if err := s.ReduceStockOnce(ctx, o); err != nil {
			return err
		}
	case StatusPending, StatusFailed, StatusCancelled:
		if err := s.RestoreStockOnce(ctx, o); err != nil {
			return err
		}
	}

	o.Status = status
	if err := s.repo.Update(ctx, o); err != nil {
		return err
	}
	if note != "" {
		if err := s.repo.AddNote(ctx, o.ID, note); err != nil {
			// the transition itself committed; a lost note is not
			// worth failing the webhook for
			s.logger.Warn("failed to record order note",
				zap.String("order_id", o.ID.String()),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("order status applied",
		zap.String("order_id", o.ID.String()),
		zap.String("status", string(status)),
	)
	return nil
}

// ReduceStockOnce reduces inventory unless it was already reduced for
// this order.
func (s *Service) ReduceStockOnce(ctx context.Context, o *Order) error {
	if o.HasFlag(MetaStockReduced) {
		return nil
	}
	if err := s.stock.Reduce(ctx, o); err != nil {
		return err
	}
	o.SetFlag(MetaStockReduced)
	return s.repo.SetMeta(ctx, o.ID, MetaStockReduced, "1")
}

// RestoreStockOnce restores inventory if it was previously reduced for
// this order.
func (s *Service) RestoreStockOnce(ctx context.Context, o *Order) error {
	if !o.HasFlag(MetaStockReduced) {
		return nil
	}
	if err := s.stock.Restore(ctx, o); err != nil {
		return err
	}
	o.ClearFlag(MetaStockReduced)
	return s.repo.DeleteMeta(ctx, o.ID, MetaStockReduced)
}

// MarkPaid records a confirmed payment: processed flag set, provider
// transaction id noted, stale cancelled-payment slot cleared.
func (s *Service) MarkPaid(ctx context.Context, o *Order, transactionID string) error {
	o.SetFlag(MetaPaidProcessed)
	o.ClearMetaValue(MetaCancelledPaymentID)
	o.Status = StatusProcessing
	if err := s.repo.Update(ctx, o); err != nil {
		return err
	}
	if transactionID != "" {
		if err := s.repo.AddNote(ctx, o.ID, "Payment confirmed, transaction "+transactionID); err != nil {
			s.logger.Warn("failed to record payment note",
				zap.String("order_id", o.ID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}
