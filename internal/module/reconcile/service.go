package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orderlink/server/internal/module/order"
	"github.com/orderlink/server/internal/module/resource"
	"github.com/orderlink/server/internal/module/settings"
	sharederrors "github.com/orderlink/server/internal/shared/errors"
	"github.com/orderlink/server/internal/shared/events"
	"github.com/orderlink/server/internal/shared/metrics"
)

// Reconciliation outcomes recorded in the webhook event log.
const (
	OutcomePaid      = "paid"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
	OutcomeExpired   = "expired"
	OutcomeNoted     = "noted"
	OutcomeSkipped   = "skipped"
)

// Reconciler drives local order transitions from webhook-notified
// remote state. Safe under at-least-once, duplicated and reordered
// delivery: all idempotency lives in the order's persisted markers.
type Reconciler struct {
	provider Provider
	orders   Orders
	statuses Statuses
	subs     Subscriptions
	settings *settings.Store
	filters  *filterChain
	bus      *events.Bus
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewReconciler creates a webhook reconciler.
func NewReconciler(
	provider Provider,
	orders Orders,
	statuses Statuses,
	subs Subscriptions,
	st *settings.Store,
	bus *events.Bus,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		provider: provider,
		orders:   orders,
		statuses: statuses,
		subs:     subs,
		settings: st,
		filters:  newFilterChain(),
		bus:      bus,
		metrics:  m,
		logger:   logger,
	}
}

// RegisterStatusFilter adds a plugin-wide status filter hook.
func (r *Reconciler) RegisterStatusFilter(f StatusFilter) {
	r.filters.registerGlobal(f)
}

// RegisterMethodStatusFilter adds a status filter hook for one method.
func (r *Reconciler) RegisterMethodStatusFilter(method string, f StatusFilter) {
	r.filters.registerMethod(method, f)
}

// Reconcile processes one webhook notification for an order. It
// returns the outcome for the event log; guard skips surface as
// ErrGuardSkip, kind mismatches as ErrValidation.
func (r *Reconciler) Reconcile(ctx context.Context, orderID uuid.UUID, notifiedID string) (string, error) {
	o, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return "", err
	}

	linkedID, linkedKind, ok := o.ActiveLinkage()
	if !ok {
		return r.skip("no active linkage", o, notifiedID)
	}

	notifiedKind, valid := resource.KindOfID(notifiedID)
	if !valid {
		return "", sharederrors.Validation(fmt.Sprintf("unrecognized resource id %q", notifiedID))
	}
	if notifiedKind != linkedKind {
		return "", sharederrors.Validation(fmt.Sprintf(
			"resource kind %s does not match linkage kind %s", notifiedKind, linkedKind,
		))
	}
	if notifiedID != linkedID {
		// a superseded attempt: the customer retried and the order is
		// linked to a newer resource
		return r.skip("superseded resource", o, notifiedID)
	}

	res, err := r.fetch(ctx, notifiedID, linkedKind)
	if err != nil {
		return "", err
	}

	switch {
	case res.IsPaid() || res.IsAuthorized() || res.IsCompleted() || res.IsShipping():
		return r.handlePaid(ctx, o, res)
	case res.IsCanceled():
		return r.handleCanceled(ctx, o, res)
	case res.IsFailed():
		return r.handleFailed(ctx, o, res)
	case res.IsExpired():
		return r.handleExpired(ctx, o, res)
	default:
		return r.handleOpen(ctx, o, res)
	}
}

// fetch loads the remote resource fresh. Order-kind linkages embed the
// payments so the current payment can be resolved.
func (r *Reconciler) fetch(ctx context.Context, id string, kind resource.Kind) (*resource.Remote, error) {
	if kind == resource.KindOrder {
		remote, err := r.provider.GetOrder(ctx, id, true)
		if err != nil {
			return nil, err
		}
		return resource.FromOrder(remote), nil
	}
	payment, err := r.provider.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	return resource.FromPayment(payment), nil
}

func (r *Reconciler) handlePaid(ctx context.Context, o *order.Order, res *resource.Remote) (string, error) {
	if !o.OwnedByGateway() {
		return r.skip("order method owned by another integration", o, res.ID())
	}
	// the processed marker on the order, not the transaction id, is
	// the source of truth for duplicate suppression
	if o.HasFlag(order.MetaPaidProcessed) {
		return r.skip("payment already processed", o, res.ID())
	}

	if mandate := res.MandateID(); mandate != "" {
		o.SetMetaValue(order.MetaMandateID, mandate)
	}

	if err := r.statuses.MarkPaid(ctx, o, res.TransactionID()); err != nil {
		return "", err
	}

	if target := r.filters.apply(o, order.StatusProcessing, res); target != order.StatusProcessing {
		if err := r.statuses.ApplyStatus(ctx, o, target, ""); err != nil {
			return "", err
		}
	}

	if o.Subscription {
		if err := r.subs.Activate(ctx, o); err != nil {
			return "", err
		}
	}

	r.metrics.RecordTransition(OutcomePaid)
	r.bus.Publish(events.NewPaymentPaidEvent(o.ID, res.ID(), res.TransactionID(), res.Method()))
	return OutcomePaid, nil
}

func (r *Reconciler) handleCanceled(ctx context.Context, o *order.Order, res *resource.Remote) (string, error) {
	if o.IsFinal() {
		return r.skip("order already final", o, res.ID())
	}
	if !o.OwnedByGateway() {
		return r.skip("order method owned by another integration", o, res.ID())
	}

	o.ClearLinkage()
	o.SetMetaValue(order.MetaCancelledPaymentID, res.ID())

	target := r.resolveCancelledTarget(o, res)
	target = r.filters.apply(o, target, res)

	note := fmt.Sprintf("Payment %s cancelled at provider", res.ID())
	if target == order.StatusPending {
		note += ", order reopened for another attempt"
	}
	if err := r.statuses.ApplyStatus(ctx, o, target, note); err != nil {
		return "", err
	}

	r.metrics.RecordTransition(OutcomeCancelled)
	r.bus.Publish(events.NewPaymentStateEvent(events.PaymentCancelledType, o.ID, res.ID(), res.Method()))
	return OutcomeCancelled, nil
}

// resolveCancelledTarget applies the cancelled policy: per-method
// override, then plugin-wide setting, with a manual cancellation on
// the order always winning over a pending reopen.
func (r *Reconciler) resolveCancelledTarget(o *order.Order, res *resource.Remote) order.Status {
	if o.Status == order.StatusCancelled {
		return order.StatusCancelled
	}
	cfg := r.settings.Get()
	if cfg.PolicyFor(res.Method()) == settings.CancelledToCancelled {
		return order.StatusCancelled
	}
	return order.StatusPending
}

func (r *Reconciler) handleFailed(ctx context.Context, o *order.Order, res *resource.Remote) (string, error) {
	if !o.OwnedByGateway() {
		return r.skip("order method owned by another integration", o, res.ID())
	}

	if o.IsRenewal() {
		// renewal failures notify shop staff and never restore stock;
		// the generic failed-order transition does not apply
		if err := r.subs.HandleRenewalFailure(ctx, o, "renewal payment "+res.ID()+" failed"); err != nil {
			return "", err
		}
		r.metrics.RecordTransition(OutcomeFailed)
		r.bus.Publish(events.NewPaymentStateEvent(events.PaymentFailedType, o.ID, res.ID(), res.Method()))
		return OutcomeFailed, nil
	}

	target := r.filters.apply(o, order.StatusFailed, res)
	note := fmt.Sprintf("Payment %s failed at provider", res.ID())
	if err := r.statuses.ApplyStatus(ctx, o, target, note); err != nil {
		return "", err
	}

	r.metrics.RecordTransition(OutcomeFailed)
	r.bus.Publish(events.NewPaymentStateEvent(events.PaymentFailedType, o.ID, res.ID(), res.Method()))
	return OutcomeFailed, nil
}

func (r *Reconciler) handleExpired(ctx context.Context, o *order.Order, res *resource.Remote) (string, error) {
	if o.IsFinal() {
		return r.skip("order already final", o, res.ID())
	}

	o.ClearLinkage()
	o.ClearMetaValue(order.MetaCancelledPaymentID)

	target := r.filters.apply(o, order.StatusCancelled, res)
	note := fmt.Sprintf("Payment %s expired unpaid", res.ID())
	if err := r.statuses.ApplyStatus(ctx, o, target, note); err != nil {
		return "", err
	}

	r.metrics.RecordTransition(OutcomeExpired)
	r.bus.Publish(events.NewPaymentStateEvent(events.PaymentExpiredType, o.ID, res.ID(), res.Method()))
	return OutcomeExpired, nil
}

// handleOpen records a one-time note for open or pending remote state;
// there is no local transition to make yet.
func (r *Reconciler) handleOpen(ctx context.Context, o *order.Order, res *resource.Remote) (string, error) {
	if o.HasFlag(order.MetaOpenStatusNote) {
		return r.skip("open status already noted", o, res.ID())
	}

	note := fmt.Sprintf("Payment %s is %s at provider, awaiting completion", res.ID(), res.Status())
	if err := r.orders.AddNote(ctx, o.ID, note); err != nil {
		return "", err
	}
	o.SetFlag(order.MetaOpenStatusNote)
	if err := r.orders.Update(ctx, o); err != nil {
		return "", err
	}
	return OutcomeNoted, nil
}

// skip records a guard skip: debug log, metric, ErrGuardSkip for the
// caller. Skips are successful no-ops, never failures.
func (r *Reconciler) skip(reason string, o *order.Order, resourceID string) (string, error) {
	r.logger.Debug("webhook reconciliation skipped",
		zap.String("order_id", o.ID.String()),
		zap.String("resource_id", resourceID),
		zap.String("reason", reason),
	)
	r.metrics.RecordWebhookSkip(reason)
	return OutcomeSkipped, sharederrors.GuardSkip(reason)
}
