package checkout

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orderlink/server/internal/module/method"
	"github.com/orderlink/server/internal/module/order"
	sharederrors "github.com/orderlink/server/internal/shared/errors"
)

// OrderGetter loads local orders for the HTTP layer.
type OrderGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

// Handler exposes the checkout endpoints.
type Handler struct {
	service   *Service
	surcharge *Surcharger
	orders    OrderGetter
	methods   *method.Registry
	logger    *zap.Logger
}

// NewHandler creates a checkout handler.
func NewHandler(service *Service, surcharge *Surcharger, orders OrderGetter, methods *method.Registry, logger *zap.Logger) *Handler {
	return &Handler{
		service:   service,
		surcharge: surcharge,
		orders:    orders,
		methods:   methods,
		logger:    logger,
	}
}

// RegisterRoutes mounts the checkout endpoints.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/methods", h.ListMethods)
	r.POST("/orders/:id/payments", h.CreatePayment)
	r.POST("/orders/:id/surcharge", h.ReconcileSurcharge)
}

// CreatePaymentRequest is the checkout request body.
type CreatePaymentRequest struct {
	Method    string `json:"method" binding:"required"`
	ReturnURL string `json:"return_url" binding:"required"`
}

// CreatePaymentResponse carries the buyer redirect target.
type CreatePaymentResponse struct {
	RedirectURL string `json:"redirect_url"`
	ResourceID  string `json:"resource_id"`
	Kind        string `json:"kind"`
}

// CreatePayment creates the remote payment or order resource for a
// local order and returns where to send the buyer.
func (h *Handler) CreatePayment(c *gin.Context) {
	o, ok := h.loadOrder(c)
	if !ok {
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "method and return_url are required"})
		return
	}

	result, err := h.service.CreatePayment(c.Request.Context(), o, req.Method, req.ReturnURL)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreatePaymentResponse{
		RedirectURL: result.RedirectURL,
		ResourceID:  result.Resource.ID(),
		Kind:        string(result.Resource.Kind()),
	})
}

// SurchargeRequest names the method whose fee should be applied.
type SurchargeRequest struct {
	Method string `json:"method" binding:"required"`
}

// ReconcileSurcharge recomputes the payment fee line for the selected
// method.
func (h *Handler) ReconcileSurcharge(c *gin.Context) {
	o, ok := h.loadOrder(c)
	if !ok {
		return
	}

	var req SurchargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "method is required"})
		return
	}

	if err := h.surcharge.Reconcile(c.Request.Context(), o, req.Method); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"total": o.Total, "currency": o.Currency})
}

// MethodInfo is one entry in the method listing.
type MethodInfo struct {
	Code      string `json:"code"`
	Title     string `json:"title"`
	Delayed   bool   `json:"delayed"`
	Recurring bool   `json:"recurring"`
}

// ListMethods returns the known payment methods.
func (h *Handler) ListMethods(c *gin.Context) {
	codes := h.methods.Codes()
	out := make([]MethodInfo, 0, len(codes))
	for _, code := range codes {
		d := h.methods.Get(code)
		out = append(out, MethodInfo{
			Code:      d.Code,
			Title:     d.Title,
			Delayed:   d.Delayed,
			Recurring: d.SupportsRecurring(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"methods": out})
}

func (h *Handler) loadOrder(c *gin.Context) (*order.Order, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return nil, false
	}
	o, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return o, true
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := sharederrors.GetStatusCode(err)
	if status >= 500 {
		h.logger.Error("checkout request failed", zap.Error(err))
	}

	var appErr *sharederrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(status, appErr.ToResponse())
		return
	}
	c.JSON(status, gin.H{"error": "request failed"})
}
