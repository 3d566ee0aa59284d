package refund

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/orderlink/server/internal/gateway"
	"github.com/orderlink/server/internal/module/order"
	sharederrors "github.com/orderlink/server/internal/shared/errors"
	"github.com/orderlink/server/internal/shared/events"
)

// Provider is the slice of the provider API line reversal needs.
type Provider interface {
	CancelOrderLines(ctx context.Context, orderID string, req *gateway.CancelLinesRequest) error
	RefundOrderLines(ctx context.Context, orderID string, req *gateway.RefundLinesRequest) (*gateway.Refund, error)
}

// Service reconciles local line items against remote order lines for
// partial refunds and cancellations.
type Service struct {
	provider Provider
	bus      *events.Bus
	logger   *zap.Logger
}

// NewService creates an items refunder.
func NewService(provider Provider, bus *events.Bus, logger *zap.Logger) *Service {
	return &Service{provider: provider, bus: bus, logger: logger}
}

// pair is one matched local/remote line.
type pair struct {
	correlationID string
	local         *order.Item
	remote        *gateway.OrderLine
}

// RefundItems reverses the given local items against the remote order:
// unshipped lines are cancelled, captured lines are refunded. Both
// calls can happen in one invocation for a mixed set. Events are
// published per successful call; a failure of either call propagates
// with no partial-success suppression.
func (s *Service) RefundItems(ctx context.Context, o *order.Order, items []order.Item, remote *gateway.Order, reason string) error {
	pairs, err := matchItems(items, remote)
	if err != nil {
		return err
	}

	toCancel, toRefund := classify(pairs, o.Currency)

	if len(toCancel.lines) > 0 {
		req := &gateway.CancelLinesRequest{Lines: toCancel.lines}
		if err := s.provider.CancelOrderLines(ctx, remote.ID, req); err != nil {
			return err
		}
		s.logger.Info("remote order lines cancelled",
			zap.String("order_id", o.ID.String()),
			zap.String("remote_order_id", remote.ID),
			zap.Int("lines", len(toCancel.lines)),
		)
		s.bus.Publish(events.NewLineActionEvent(
			events.LinesCancelledType, o.ID, remote.ID, toCancel.correlationIDs, reason,
		))
	}

	if len(toRefund.lines) > 0 {
		req := &gateway.RefundLinesRequest{Lines: toRefund.lines, Description: reason}
		if _, err := s.provider.RefundOrderLines(ctx, remote.ID, req); err != nil {
			return err
		}
		s.logger.Info("remote order lines refunded",
			zap.String("order_id", o.ID.String()),
			zap.String("remote_order_id", remote.ID),
			zap.Int("lines", len(toRefund.lines)),
		)
		s.bus.Publish(events.NewLineActionEvent(
			events.LinesRefundedType, o.ID, remote.ID, toRefund.correlationIDs, reason,
		))
	}

	return nil
}

// matchItems intersects local items and remote lines on the stored
// correlation id. An item or line without one fails fast, as does an
// empty intersection.
func matchItems(items []order.Item, remote *gateway.Order) ([]pair, error) {
	local := make(map[string]*order.Item, len(items))
	for i := range items {
		if items[i].CorrelationID == "" {
			return nil, sharederrors.Validation(
				fmt.Sprintf("item %q has no correlation id", items[i].Name),
			)
		}
		local[items[i].CorrelationID] = &items[i]
	}

	remoteByCorrelation := make(map[string]*gateway.OrderLine, len(remote.Lines))
	for i := range remote.Lines {
		id := remote.Lines[i].Metadata["localItemId"]
		if id == "" {
			return nil, sharederrors.Validation(
				fmt.Sprintf("remote line %s has no correlation id", remote.Lines[i].ID),
			)
		}
		remoteByCorrelation[id] = &remote.Lines[i]
	}

	var pairs []pair
	for correlationID, item := range local {
		if line, ok := remoteByCorrelation[correlationID]; ok {
			pairs = append(pairs, pair{correlationID: correlationID, local: item, remote: line})
		}
	}
	if len(pairs) == 0 {
		return nil, sharederrors.Validation("no items eligible for refund or cancellation")
	}
	return pairs, nil
}

// lineSet accumulates references for one reversal call.
type lineSet struct {
	lines          []gateway.LineReference
	correlationIDs []string
}

func (ls *lineSet) add(p pair, amount *gateway.Amount) {
	ls.lines = append(ls.lines, gateway.LineReference{
		ID:       p.remote.ID,
		Quantity: p.local.Quantity,
		Amount:   amount,
	})
	ls.correlationIDs = append(ls.correlationIDs, p.correlationID)
}

// classify splits matched pairs: shipped (captured) lines can only be
// reversed monetarily, everything else is a full cancel.
func classify(pairs []pair, currency string) (toCancel, toRefund lineSet) {
	for _, p := range pairs {
		if p.remote.IsShipped() {
			amount := gateway.NewAmount(p.local.Total, currency)
			toRefund.add(p, &amount)
		} else {
			toCancel.add(p, nil)
		}
	}
	return toCancel, toRefund
}
