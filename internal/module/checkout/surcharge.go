package checkout

import (
	"context"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orderlink/server/internal/gateway"
	"github.com/orderlink/server/internal/module/method"
	"github.com/orderlink/server/internal/module/order"
	"github.com/orderlink/server/internal/module/settings"
)

// FeeLineName is the display name of the payment fee line.
const FeeLineName = "Payment surcharge"

// FeeLines is the slice of the order store the surcharger writes to.
type FeeLines interface {
	Update(ctx context.Context, o *order.Order) error
	ReplaceFeeLine(ctx context.Context, orderID uuid.UUID, fee *order.Item) error
	DeleteFeeLines(ctx context.Context, orderID uuid.UUID) error
}

// Surcharger keeps the order's payment fee line consistent with the
// selected method's surcharge configuration.
type Surcharger struct {
	orders   FeeLines
	methods  *method.Registry
	settings *settings.Store
	logger   *zap.Logger
}

// NewSurcharger creates a surcharge reconciler.
func NewSurcharger(orders FeeLines, methods *method.Registry, st *settings.Store, logger *zap.Logger) *Surcharger {
	return &Surcharger{orders: orders, methods: methods, settings: st, logger: logger}
}

// Reconcile recomputes the fee line for the selected method: replaces
// a stale fee line, removes it when the method carries no surcharge,
// and no-ops when nothing changed.
func (s *Surcharger) Reconcile(ctx context.Context, o *order.Order, methodCode string) error {
	cfg := s.settings.Get()
	def := s.methods.Get(methodCode)

	var fee int64
	if def.Surcharge {
		fee = computeFee(productTotal(o), o.Currency, cfg.SurchargeFor(methodCode))
	}

	current, hasFee := currentFee(o)
	switch {
	case fee == 0 && !hasFee:
		return nil
	case fee == current && hasFee:
		return nil
	case fee == 0:
		if err := s.orders.DeleteFeeLines(ctx, o.ID); err != nil {
			return err
		}
		removeFeeItems(o)
	default:
		item := &order.Item{
			Name:     FeeLineName,
			Quantity: 1,
			Unit:     fee,
			Total:    fee,
		}
		if err := s.orders.ReplaceFeeLine(ctx, o.ID, item); err != nil {
			return err
		}
		removeFeeItems(o)
		o.Items = append(o.Items, *item)
	}

	o.Total = productTotal(o) + fee
	if err := s.orders.Update(ctx, o); err != nil {
		return err
	}

	s.logger.Debug("surcharge reconciled",
		zap.String("order_id", o.ID.String()),
		zap.String("method", methodCode),
		zap.Int64("fee", fee),
	)
	return nil
}

func computeFee(base int64, currency string, sc settings.Surcharge) int64 {
	if !sc.Applies() {
		return 0
	}
	exp := gateway.CurrencyExponent(currency)
	unit := math.Pow10(exp)
	fixed := int64(math.Round(sc.Fixed * unit))
	variable := int64(math.Round(float64(base) * sc.Percent / 100))
	return fixed + variable
}

func productTotal(o *order.Order) int64 {
	var total int64
	for i := range o.Items {
		if o.Items[i].Type != order.ItemTypeFee {
			total += o.Items[i].Total
		}
	}
	return total
}

func currentFee(o *order.Order) (int64, bool) {
	for i := range o.Items {
		if o.Items[i].Type == order.ItemTypeFee {
			return o.Items[i].Total, true
		}
	}
	return 0, false
}

func removeFeeItems(o *order.Order) {
	kept := o.Items[:0]
	for i := range o.Items {
		if o.Items[i].Type != order.ItemTypeFee {
			kept = append(kept, o.Items[i])
		}
	}
	o.Items = kept
}
