package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/orderlink/server/internal/gateway"
	"github.com/orderlink/server/internal/module/method"
	"github.com/orderlink/server/internal/module/order"
	"github.com/orderlink/server/internal/module/resource"
	"github.com/orderlink/server/internal/module/settings"
	"github.com/orderlink/server/internal/shared/config"
	sharederrors "github.com/orderlink/server/internal/shared/errors"
	"github.com/orderlink/server/internal/shared/events"
)

const dueDateLayout = "2006-01-02"

// Service creates remote payment resources for local orders: resolves
// the API mode, applies the fallback strategies, and persists linkage
// metadata only after the remote call succeeded.
type Service struct {
	provider  Provider
	orders    Orders
	status    StatusApplier
	vault     CustomerVault
	methods   *method.Registry
	settings  *settings.Store
	redirects *Redirects
	store     config.StoreConfig
	bus       *events.Bus
	logger    *zap.Logger
}

// NewService creates a payment creation service.
func NewService(
	provider Provider,
	orders Orders,
	status StatusApplier,
	vault CustomerVault,
	methods *method.Registry,
	st *settings.Store,
	redirects *Redirects,
	store config.StoreConfig,
	bus *events.Bus,
	logger *zap.Logger,
) *Service {
	return &Service{
		provider:  provider,
		orders:    orders,
		status:    status,
		vault:     vault,
		methods:   methods,
		settings:  st,
		redirects: redirects,
		store:     store,
		bus:       bus,
		logger:    logger,
	}
}

// Result is the outcome of a successful payment creation.
type Result struct {
	RedirectURL string
	Resource    *resource.Remote
}

// CreatePayment creates the remote resource for an order and returns
// the buyer redirect target. No linkage metadata is written unless the
// remote call succeeded.
func (s *Service) CreatePayment(ctx context.Context, o *order.Order, methodCode, returnURL string) (*Result, error) {
	cfg := s.settings.Get()
	def := s.methods.Get(methodCode)

	mode := s.resolveAPIMode(o, def, &cfg)

	customerID, err := s.resolveCustomer(ctx, o, &cfg)
	if err != nil {
		// a failed customer create is not fatal; the payment can
		// proceed anonymously
		s.logger.Warn("customer resolution failed, continuing without",
			zap.String("order_id", o.ID.String()),
			zap.Error(err),
		)
		customerID = ""
	}

	params, err := s.buildParams(o, def, &cfg, customerID, returnURL)
	if err != nil {
		return nil, err
	}

	res, usedCustomer, err := s.createResource(ctx, o, def, mode, params)
	if err != nil {
		s.logger.Error("remote resource creation failed",
			zap.String("order_id", o.ID.String()),
			zap.String("method", methodCode),
			zap.Error(err),
		)
		return nil, s.buyerError(err, &cfg)
	}

	if err := s.persistLinkage(ctx, o, res, usedCustomer); err != nil {
		return nil, err
	}

	if def.Delayed && o.Status != order.StatusPartiallyPaid {
		note := "Awaiting payment confirmation via " + def.Title
		if def.Code == "banktransfer" && params.dueDate != "" {
			note = fmt.Sprintf("Awaiting bank transfer, due %s", params.dueDate)
		}
		if err := s.status.ApplyStatus(ctx, o, order.StatusOnHold, note); err != nil {
			return nil, err
		}
	}

	s.bus.Publish(events.NewPaymentCreatedEvent(
		o.ID, res.ID(), string(res.Kind()), res.Method(), string(res.Mode()),
	))

	redirect := s.redirects.Resolve(def.Code)(o, res, params.returnURL)
	return &Result{RedirectURL: redirect, Resource: res}, nil
}

// resolveAPIMode picks order vs payment endpoint for this attempt.
func (s *Service) resolveAPIMode(o *order.Order, def method.Definition, cfg *settings.Settings) settings.APIMode {
	if def.OrdersOnly {
		return settings.APIModeOrder
	}
	// bank transfers with a payment window need the payment endpoint,
	// the order endpoint has no due-date support
	if def.Code == "banktransfer" && cfg.BankTransferDueDays > 0 {
		return settings.APIModePayment
	}
	// order lines need stable product references
	for i := range o.Items {
		if o.Items[i].Type == order.ItemTypeProduct && !o.Items[i].ProductValid {
			return settings.APIModePayment
		}
	}
	return cfg.APIMode
}

func (s *Service) resolveCustomer(ctx context.Context, o *order.Order, cfg *settings.Settings) (string, error) {
	if !cfg.StoreCustomer || o.CustomerEmail == "" {
		return "", nil
	}
	id, err := s.vault.Lookup(ctx, o.CustomerEmail)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	customer, err := s.provider.CreateCustomer(ctx, &gateway.CreateCustomerRequest{
		Name:  joinName(o.CustomerFirstName, o.CustomerLastName),
		Email: o.CustomerEmail,
	})
	if err != nil {
		return "", err
	}
	return customer.ID, nil
}

// requestParams carries everything both endpoint payloads share.
type requestParams struct {
	amount       gateway.Amount
	description  string
	returnURL    string
	webhookURL   string
	locale       string
	dueDate      string
	sequenceType gateway.SequenceType
	customerID   string
	metadata     map[string]string
}

func (s *Service) buildParams(o *order.Order, def method.Definition, cfg *settings.Settings, customerID, returnURL string) (*requestParams, error) {
	ret, err := ReturnURL(returnURL, o)
	if err != nil {
		return nil, sharederrors.Validation(err.Error())
	}
	hook, err := WebhookURL(s.store.BaseURL, s.store.WebhookPath, o)
	if err != nil {
		return nil, sharederrors.Validation(err.Error())
	}

	p := &requestParams{
		amount:      gateway.NewAmount(o.Total, o.Currency),
		description: Description(cfg.DescriptionTemplate, s.store.Name, o),
		returnURL:   ret,
		webhookURL:  hook,
		locale:      s.locale(o),
		customerID:  customerID,
		metadata: map[string]string{
			"order_id":     o.ID.String(),
			"order_number": o.Number,
		},
	}

	if o.Subscription && !cfg.AutomaticPaymentsDisabled {
		p.sequenceType = gateway.SequenceFirst
	}
	if def.Code == "banktransfer" && cfg.BankTransferDueDays > 0 {
		p.dueDate = time.Now().AddDate(0, 0, cfg.BankTransferDueDays).Format(dueDateLayout)
	}
	return p, nil
}

func (s *Service) locale(o *order.Order) string {
	if o.Locale != "" {
		return o.Locale
	}
	return s.store.Locale
}

// createResource runs the endpoint selection with its fallbacks and
// returns the created resource plus the customer id that ended up on
// the request (empty when it was stripped or never attached).
func (s *Service) createResource(ctx context.Context, o *order.Order, def method.Definition, mode settings.APIMode, p *requestParams) (*resource.Remote, string, error) {
	if mode == settings.APIModeOrder {
		res, usedCustomer, err := s.createViaOrder(ctx, o, def, p)
		if err == nil {
			return res, usedCustomer, nil
		}
		if def.OrdersOnly {
			return nil, "", err
		}
		s.logger.Warn("order endpoint failed, falling back to payment endpoint",
			zap.String("order_id", o.ID.String()),
			zap.Error(err),
		)
	}

	payment, err := s.provider.CreatePayment(ctx, s.paymentRequest(def, p))
	if err != nil {
		return nil, "", err
	}
	return resource.FromPayment(payment), p.customerID, nil
}

func (s *Service) createViaOrder(ctx context.Context, o *order.Order, def method.Definition, p *requestParams) (*resource.Remote, string, error) {
	req := s.orderRequest(o, def, p)

	created, err := s.provider.CreateOrder(ctx, req)
	if err == nil {
		return resource.FromOrder(created), p.customerID, nil
	}

	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && apiErr.IsCustomerRejected() && p.customerID != "" {
		if def.OrdersOnly {
			// pay-later methods require the customer data; stripping
			// it cannot succeed, re-raise the original error
			return nil, "", err
		}
		s.logger.Info("retrying order create without customer id",
			zap.String("order_id", o.ID.String()),
		)
		stripped := *req
		stripped.CustomerID = ""
		stripped.Payment = nil
		created, retryErr := s.provider.CreateOrder(ctx, &stripped)
		if retryErr != nil {
			return nil, "", retryErr
		}
		return resource.FromOrder(created), "", nil
	}
	return nil, "", err
}

func (s *Service) orderRequest(o *order.Order, def method.Definition, p *requestParams) *gateway.CreateOrderRequest {
	req := &gateway.CreateOrderRequest{
		Amount:      p.amount,
		OrderNumber: o.Number,
		Lines:       orderLines(o),
		RedirectURL: p.returnURL,
		WebhookURL:  p.webhookURL,
		Method:      def.Code,
		Locale:      p.locale,
		CustomerID:  p.customerID,
		Metadata:    p.metadata,
	}
	if p.sequenceType != "" {
		req.Payment = &gateway.OrderPaymentParams{
			SequenceType: p.sequenceType,
			CustomerID:   p.customerID,
			WebhookURL:   p.webhookURL,
		}
	}
	return req
}

func (s *Service) paymentRequest(def method.Definition, p *requestParams) *gateway.CreatePaymentRequest {
	return &gateway.CreatePaymentRequest{
		Amount:       p.amount,
		Description:  p.description,
		RedirectURL:  p.returnURL,
		WebhookURL:   p.webhookURL,
		Method:       def.Code,
		Locale:       p.locale,
		CustomerID:   p.customerID,
		SequenceType: p.sequenceType,
		DueDate:      p.dueDate,
		Metadata:     p.metadata,
	}
}

func orderLines(o *order.Order) []gateway.OrderLineRequest {
	lines := make([]gateway.OrderLineRequest, 0, len(o.Items))
	for i := range o.Items {
		item := &o.Items[i]
		lineType := ""
		if item.Type == order.ItemTypeFee {
			lineType = "surcharge"
		}
		lines = append(lines, gateway.OrderLineRequest{
			Name:        item.Name,
			SKU:         item.SKU,
			Quantity:    item.Quantity,
			UnitPrice:   gateway.NewAmount(item.Unit, o.Currency),
			TotalAmount: gateway.NewAmount(item.Total, o.Currency),
			Type:        lineType,
			Metadata:    map[string]string{"localItemId": item.CorrelationID},
		})
	}
	return lines
}

// persistLinkage writes the linkage metadata and audit note after a
// successful remote create.
func (s *Service) persistLinkage(ctx context.Context, o *order.Order, res *resource.Remote, usedCustomer string) error {
	o.SetLinkage(res.ID(), res.Kind())
	o.SetMetaValue(order.MetaPaymentMode, string(res.Mode()))

	// prefer the customer id the provider reports on the resource
	customerID := res.CustomerID()
	if customerID == "" {
		customerID = usedCustomer
	}
	if customerID != "" {
		o.SetMetaValue(order.MetaCustomerID, customerID)
		if o.CustomerEmail != "" {
			if err := s.vault.Store(ctx, o.CustomerEmail, customerID); err != nil {
				s.logger.Warn("failed to persist customer id",
					zap.String("order_id", o.ID.String()),
					zap.Error(err),
				)
			}
		}
	}

	if err := s.orders.Update(ctx, o); err != nil {
		return err
	}

	note := fmt.Sprintf("%s payment started (%s, mode %s)", res.Method(), res.ID(), res.Mode())
	if err := s.orders.AddNote(ctx, o.ID, note); err != nil {
		s.logger.Warn("failed to record creation note",
			zap.String("order_id", o.ID.String()),
			zap.Error(err),
		)
	}
	return nil
}

// buyerError hides technical detail from the buyer unless debug mode
// is on.
func (s *Service) buyerError(err error, cfg *settings.Settings) error {
	msg := "could not create payment, please try again"
	if cfg.Debug {
		msg = fmt.Sprintf("%s (%v)", msg, err)
	}
	return sharederrors.ProviderAPI(msg, err)
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
