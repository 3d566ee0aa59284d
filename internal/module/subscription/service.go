package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orderlink/server/internal/gateway"
	"github.com/orderlink/server/internal/module/checkout"
	"github.com/orderlink/server/internal/module/method"
	"github.com/orderlink/server/internal/module/order"
	"github.com/orderlink/server/internal/module/resource"
	"github.com/orderlink/server/internal/module/settings"
	"github.com/orderlink/server/internal/shared/config"
	sharederrors "github.com/orderlink/server/internal/shared/errors"
	"github.com/orderlink/server/internal/shared/events"
	"github.com/orderlink/server/internal/shared/metrics"
)

// Renewal outcomes for the metrics counter.
const (
	renewalOutcomeCharged    = "charged"
	renewalOutcomeNoCustomer = "no_customer"
	renewalOutcomeNoMandate  = "no_mandate"
	renewalOutcomeAPIFailure = "api_failure"
	renewalOutcomeBadHook    = "bad_webhook_url"
	renewalOutcomeExpired    = "confirmation_expired"
)

// Service creates renewal payments against stored mandates and keeps
// the subscription bookkeeping consistent.
type Service struct {
	provider Provider
	orders   Orders
	statuses Statuses
	repo     Repository
	queue    PendingQueue
	methods  *method.Registry
	settings *settings.Store
	store    config.StoreConfig
	grace    time.Duration
	bus      *events.Bus
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewService creates a subscription renewal service.
func NewService(
	provider Provider,
	orders Orders,
	statuses Statuses,
	repo Repository,
	queue PendingQueue,
	methods *method.Registry,
	st *settings.Store,
	store config.StoreConfig,
	cfg config.SubscriptionConfig,
	bus *events.Bus,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		provider: provider,
		orders:   orders,
		statuses: statuses,
		repo:     repo,
		queue:    queue,
		methods:  methods,
		settings: st,
		store:    store,
		grace:    cfg.ConfirmationGrace,
		bus:      bus,
		metrics:  m,
		logger:   logger,
	}
}

// Register creates the subscription record for a parent order at
// checkout time.
func (s *Service) Register(ctx context.Context, parent *order.Order, intervalDays int) error {
	sub := &Subscription{
		OrderID:      parent.ID,
		Status:       StatusPendingFirst,
		IntervalDays: intervalDays,
	}
	sub.NextRenewalAt = time.Now().AddDate(0, 0, intervalDays)
	return s.repo.Create(ctx, sub)
}

// Renew charges one due renewal order against the parent's mandate.
// Invoked by the scheduler once per due renewal; it never retries on
// its own.
func (s *Service) Renew(ctx context.Context, o *order.Order) error {
	if o.ParentID == nil {
		return sharederrors.Validation("order is not a renewal")
	}
	parent, err := s.orders.Get(ctx, *o.ParentID)
	if err != nil {
		return err
	}

	customerID, err := s.resolveCustomer(ctx, parent)
	if err != nil {
		s.metrics.RecordRenewal(renewalOutcomeNoCustomer)
		if ferr := s.failRenewal(ctx, o, "no remote customer id, cannot charge renewal", err); ferr != nil {
			return ferr
		}
		return err
	}

	mandate, err := s.resolveMandate(ctx, parent, o, customerID)
	if err != nil {
		s.metrics.RecordRenewal(renewalOutcomeNoMandate)
		if ferr := s.failRenewal(ctx, o, "no valid mandate, cannot charge renewal", err); ferr != nil {
			return ferr
		}
		return err
	}

	req, err := s.renewalRequest(o, customerID, mandate)
	if err != nil {
		s.metrics.RecordRenewal(renewalOutcomeBadHook)
		if ferr := s.failRenewal(ctx, o, "webhook url cannot be built, refusing to charge", err); ferr != nil {
			return ferr
		}
		return err
	}

	payment, err := s.provider.CreatePayment(ctx, req)
	if err != nil {
		s.metrics.RecordRenewal(renewalOutcomeAPIFailure)
		if ferr := s.failRenewal(ctx, o, "renewal payment creation failed", err); ferr != nil {
			return ferr
		}
		return err
	}

	// mandate resolution may have picked a different but valid method;
	// the stored method must not diverge from reality
	if payment.Method != "" && payment.Method != o.Method {
		o.Method = payment.Method
	}

	// remember the mandate that actually charged; the provider may
	// rotate it and a list scan may have picked a different one
	charged := payment.MandateID
	if charged == "" {
		charged = mandate.ID
	}
	if parent.MetaValue(order.MetaMandateID) != charged {
		parent.SetMetaValue(order.MetaMandateID, charged)
		if err := s.orders.Update(ctx, parent); err != nil {
			return err
		}
	}

	o.SetLinkage(payment.ID, resource.KindPayment)
	o.SetMetaValue(order.MetaPaymentMode, string(payment.Mode))
	o.SetMetaValue(order.MetaCustomerID, customerID)
	if err := s.orders.Update(ctx, o); err != nil {
		return err
	}

	note := fmt.Sprintf("Renewal payment %s created via mandate %s", payment.ID, mandate.ID)
	if err := s.statuses.ApplyStatus(ctx, o, order.StatusOnHold, note); err != nil {
		return err
	}

	// debit-class charges confirm days later; queue them so the sweep
	// can fail renewals that never hear back
	if s.methods.Family(mandate.Method) == "directdebit" {
		if err := s.queue.Add(ctx, o.ID, time.Now().Add(s.grace)); err != nil {
			s.logger.Warn("failed to queue pending confirmation",
				zap.String("order_id", o.ID.String()),
				zap.Error(err),
			)
		}
	}

	s.metrics.RecordRenewal(renewalOutcomeCharged)
	s.logger.Info("renewal payment created",
		zap.String("order_id", o.ID.String()),
		zap.String("payment_id", payment.ID),
		zap.String("mandate_id", mandate.ID),
	)
	return nil
}

// resolveCustomer returns the remote customer id for the parent order,
// restoring it from the parent's last known remote payment when the
// metadata slot is empty.
func (s *Service) resolveCustomer(ctx context.Context, parent *order.Order) (string, error) {
	if id := parent.MetaValue(order.MetaCustomerID); id != "" {
		return id, nil
	}

	linkedID, kind, ok := parent.ActiveLinkage()
	if ok && kind == resource.KindPayment {
		payment, err := s.provider.GetPayment(ctx, linkedID)
		if err == nil && payment.CustomerID != "" {
			parent.SetMetaValue(order.MetaCustomerID, payment.CustomerID)
			if err := s.orders.Update(ctx, parent); err != nil {
				return "", err
			}
			return payment.CustomerID, nil
		}
	}
	return "", sharederrors.Validation("parent order has no remote customer id")
}

// resolveMandate picks the mandate to charge: direct lookup by the
// parent's stored mandate id first, full list scan only when that is
// absent or unusable.
func (s *Service) resolveMandate(ctx context.Context, parent, renewal *order.Order, customerID string) (*gateway.Mandate, error) {
	if mandateID := parent.MetaValue(order.MetaMandateID); mandateID != "" {
		mandate, err := s.provider.GetMandate(ctx, customerID, mandateID)
		if err == nil && mandate.IsValid() && s.methods.SameFamily(renewal.Method, mandate.Method) {
			return mandate, nil
		}
		if err != nil {
			s.logger.Warn("stored mandate lookup failed, scanning all mandates",
				zap.String("mandate_id", mandateID),
				zap.Error(err),
			)
		}
	}

	mandates, err := s.provider.ListMandates(ctx, customerID)
	if err != nil {
		return nil, err
	}

	var firstValid *gateway.Mandate
	for i := range mandates {
		m := &mandates[i]
		if !m.IsValid() {
			continue
		}
		if m.Method == renewal.Method {
			return m, nil
		}
		if firstValid == nil {
			firstValid = m
		}
	}
	if firstValid != nil {
		return firstValid, nil
	}
	return nil, sharederrors.Mandate("customer has no valid mandate")
}

// renewalRequest assembles the recurring charge request. A charge with
// no webhook URL would never be confirmed, so a URL build failure is a
// validation error rather than a degraded request.
func (s *Service) renewalRequest(o *order.Order, customerID string, mandate *gateway.Mandate) (*gateway.CreatePaymentRequest, error) {
	cfg := s.settings.Get()
	hook, err := checkout.WebhookURL(s.store.BaseURL, s.store.WebhookPath, o)
	if err != nil {
		return nil, sharederrors.Validation(fmt.Sprintf("build renewal webhook url: %v", err))
	}
	return &gateway.CreatePaymentRequest{
		Amount:       gateway.NewAmount(o.Total, o.Currency),
		Description:  checkout.Description(cfg.DescriptionTemplate, s.store.Name, o),
		WebhookURL:   hook,
		Method:       mandate.Method,
		CustomerID:   customerID,
		MandateID:    mandate.ID,
		SequenceType: gateway.SequenceRecurring,
		Metadata: map[string]string{
			"order_id":     o.ID.String(),
			"order_number": o.Number,
		},
	}, nil
}

// failRenewal marks the renewal order failed with a staff-facing note
// and puts the subscription on hold. Stock is never restored for
// renewal failures and no retry is made here. It returns only
// bookkeeping errors; the renewal cause itself is the caller's to
// propagate.
func (s *Service) failRenewal(ctx context.Context, o *order.Order, reason string, cause error) error {
	s.logger.Error("renewal failed",
		zap.String("order_id", o.ID.String()),
		zap.String("reason", reason),
		zap.Error(cause),
	)

	if err := s.orders.UpdateStatus(ctx, o.ID, order.StatusFailed); err != nil {
		return err
	}
	note := reason
	if cause != nil {
		note = fmt.Sprintf("%s: %v", reason, cause)
	}
	if err := s.orders.AddNote(ctx, o.ID, note); err != nil {
		s.logger.Warn("failed to record renewal note", zap.Error(err))
	}

	if o.ParentID != nil {
		if sub, err := s.repo.GetByOrder(ctx, *o.ParentID); err == nil {
			sub.Status = StatusOnHold
			if err := s.repo.Update(ctx, sub); err != nil {
				s.logger.Warn("failed to hold subscription", zap.Error(err))
			}
		}
	}

	s.bus.Publish(events.NewRenewalFailedEvent(o.ID, reason))
	return nil
}

// Activate marks the subscription behind the order active and removes
// it from the pending-confirmation queue. Called on payment
// confirmation for both first payments and renewals.
func (s *Service) Activate(ctx context.Context, o *order.Order) error {
	parentID := o.ID
	if o.ParentID != nil {
		parentID = *o.ParentID
	}

	if err := s.queue.Remove(ctx, o.ID); err != nil {
		s.logger.Warn("failed to dequeue pending confirmation",
			zap.String("order_id", o.ID.String()),
			zap.Error(err),
		)
	}

	sub, err := s.repo.GetByOrder(ctx, parentID)
	if err != nil {
		// orders without a subscription record are not an error here;
		// the paid transition must not fail over bookkeeping
		s.logger.Debug("no subscription record to activate",
			zap.String("order_id", parentID.String()),
		)
		return nil
	}

	// the renewal schedule was already advanced at charge time; this
	// only flips the status and refreshes the mandate pointer
	sub.Status = StatusActive
	if mandate := o.MetaValue(order.MetaMandateID); mandate != "" {
		sub.MandateID = mandate
	}
	return s.repo.Update(ctx, sub)
}

// HandleRenewalFailure is the webhook-side failure path: staff note,
// no stock restoration, subscription put on hold.
func (s *Service) HandleRenewalFailure(ctx context.Context, o *order.Order, reason string) error {
	return s.failRenewal(ctx, o, reason, nil)
}

// SweepExpired fails renewals whose confirmation never arrived within
// the grace window.
func (s *Service) SweepExpired(ctx context.Context) error {
	ids, err := s.queue.Expired(ctx, time.Now())
	if err != nil {
		return err
	}

	for _, id := range ids {
		o, err := s.orders.Get(ctx, id)
		if err != nil {
			s.logger.Warn("expired queue entry for unknown order",
				zap.String("order_id", id.String()),
				zap.Error(err),
			)
			if err := s.queue.Remove(ctx, id); err != nil {
				s.logger.Warn("failed to dequeue", zap.Error(err))
			}
			continue
		}

		if o.HasFlag(order.MetaPaidProcessed) {
			// confirmed after all; just clean up the queue entry
			if err := s.queue.Remove(ctx, id); err != nil {
				s.logger.Warn("failed to dequeue", zap.Error(err))
			}
			continue
		}

		s.metrics.RecordRenewal(renewalOutcomeExpired)
		if err := s.failRenewal(ctx, o, "no payment confirmation within the waiting period", nil); err != nil {
			s.logger.Error("failed to fail stuck renewal",
				zap.String("order_id", id.String()),
				zap.Error(err),
			)
			continue
		}
		if err := s.queue.Remove(ctx, id); err != nil {
			s.logger.Warn("failed to dequeue", zap.Error(err))
		}
	}
	return nil
}

// RenewDue creates and charges renewal orders for every subscription
// that is due.
func (s *Service) RenewDue(ctx context.Context, limit int) error {
	subs, err := s.repo.ListDue(ctx, time.Now(), limit)
	if err != nil {
		return err
	}

	for _, sub := range subs {
		if err := s.renewOne(ctx, sub); err != nil {
			s.logger.Error("renewal attempt failed",
				zap.String("subscription_id", sub.ID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *Service) renewOne(ctx context.Context, sub *Subscription) error {
	parent, err := s.orders.Get(ctx, sub.OrderID)
	if err != nil {
		return err
	}

	renewal := s.buildRenewalOrder(parent, sub)
	if err := s.orders.Create(ctx, renewal); err != nil {
		return err
	}

	// push the next due date out before charging so a failing renewal
	// is not retried every tick
	sub.Advance(time.Now())
	if err := s.repo.Update(ctx, sub); err != nil {
		return err
	}

	return s.Renew(ctx, renewal)
}

// buildRenewalOrder clones the billing shape of the parent order into
// a fresh renewal order.
func (s *Service) buildRenewalOrder(parent *order.Order, sub *Subscription) *order.Order {
	parentID := parent.ID
	return &order.Order{
		ID:                uuid.New(),
		Number:            fmt.Sprintf("%s-R%d", parent.Number, sub.RenewalCount+1),
		Key:               uuid.NewString(),
		Status:            order.StatusPending,
		Total:             parent.Total,
		Currency:          parent.Currency,
		Gateway:           order.GatewayName,
		Method:            parent.Method,
		CustomerFirstName: parent.CustomerFirstName,
		CustomerLastName:  parent.CustomerLastName,
		CustomerCompany:   parent.CustomerCompany,
		CustomerEmail:     parent.CustomerEmail,
		CustomerCountry:   parent.CustomerCountry,
		Locale:            parent.Locale,
		ParentID:          &parentID,
	}
}
