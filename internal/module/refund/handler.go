package refund

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orderlink/server/internal/gateway"
	"github.com/orderlink/server/internal/module/order"
	"github.com/orderlink/server/internal/module/resource"
	sharederrors "github.com/orderlink/server/internal/shared/errors"
)

// OrderGetter loads local orders for the HTTP layer.
type OrderGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

// RemoteOrders fetches the remote order the refund runs against.
type RemoteOrders interface {
	GetOrder(ctx context.Context, id string, embedPayments bool) (*gateway.Order, error)
}

// Handler exposes the line refund endpoint.
type Handler struct {
	service *Service
	orders  OrderGetter
	remote  RemoteOrders
	logger  *zap.Logger
}

// NewHandler creates a refund handler.
func NewHandler(service *Service, orders OrderGetter, remote RemoteOrders, logger *zap.Logger) *Handler {
	return &Handler{service: service, orders: orders, remote: remote, logger: logger}
}

// RegisterRoutes mounts the refund endpoint.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/orders/:id/refunds", h.RefundItems)
}

// RefundRequest selects local items to refund or cancel remotely.
type RefundRequest struct {
	CorrelationIDs []string `json:"correlation_ids" binding:"required,min=1"`
	Reason         string   `json:"reason"`
}

// RefundItems cancels unshipped and refunds shipped remote lines for
// the selected local items.
func (h *Handler) RefundItems(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "correlation_ids is required"})
		return
	}

	o, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	linkedID, kind, ok := o.ActiveLinkage()
	if !ok || kind != resource.KindOrder {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "order has no remote order resource, line refunds are unavailable",
		})
		return
	}

	items, err := selectItems(o, req.CorrelationIDs)
	if err != nil {
		h.respondError(c, err)
		return
	}

	remote, err := h.remote.GetOrder(c.Request.Context(), linkedID, false)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.service.RefundItems(c.Request.Context(), o, items, remote, req.Reason); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed", "items": len(items)})
}

// selectItems resolves the requested correlation ids against the local
// order, failing on any unknown id.
func selectItems(o *order.Order, correlationIDs []string) ([]order.Item, error) {
	byCorrelation := make(map[string]*order.Item, len(o.Items))
	for i := range o.Items {
		byCorrelation[o.Items[i].CorrelationID] = &o.Items[i]
	}

	items := make([]order.Item, 0, len(correlationIDs))
	for _, cid := range correlationIDs {
		item, ok := byCorrelation[cid]
		if !ok {
			return nil, sharederrors.Validation("unknown item " + cid)
		}
		items = append(items, *item)
	}
	return items, nil
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := sharederrors.GetStatusCode(err)
	if status >= 500 {
		h.logger.Error("refund request failed", zap.Error(err))
	}

	var appErr *sharederrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(status, appErr.ToResponse())
		return
	}
	c.JSON(status, gin.H{"error": "request failed"})
}
