package reconcile

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	sharederrors "github.com/orderlink/server/internal/shared/errors"
)

// Handler exposes the inbound webhook endpoint.
type Handler struct {
	reconciler *Reconciler
	orders     Orders
	log        EventLog
	logger     *zap.Logger
}

// NewHandler creates a webhook handler.
func NewHandler(reconciler *Reconciler, orders Orders, log EventLog, logger *zap.Logger) *Handler {
	return &Handler{reconciler: reconciler, orders: orders, log: log, logger: logger}
}

// RegisterRoutes mounts the webhook endpoint.
func (h *Handler) RegisterRoutes(r gin.IRouter, path string) {
	r.POST(path, h.HandleWebhook)
}

// HandleWebhook processes one provider notification.
//
// Response contract: 200 processed, 404 unknown order or key mismatch,
// 400 resource kind mismatch, 204 duplicate or guard-skip no-op.
func (h *Handler) HandleWebhook(c *gin.Context) {
	resourceID := c.PostForm("id")
	if resourceID == "" {
		resourceID = c.Query("id")
	}
	if resourceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing resource id"})
		return
	}

	orderID, err := uuid.Parse(c.Query("order_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown order"})
		return
	}
	key := c.Query("key")

	o, err := h.orders.Get(c.Request.Context(), orderID)
	if err != nil {
		h.respondError(c, orderID, resourceID, err)
		return
	}
	if key == "" || o.Key != key {
		h.record(c, orderID, resourceID, OutcomeSkipped, "key mismatch")
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown order"})
		return
	}

	outcome, err := h.reconciler.Reconcile(c.Request.Context(), orderID, resourceID)
	if err != nil {
		switch {
		case errors.Is(err, sharederrors.ErrGuardSkip):
			h.record(c, orderID, resourceID, OutcomeSkipped, err.Error())
			c.Status(http.StatusNoContent)
		default:
			h.respondError(c, orderID, resourceID, err)
		}
		return
	}

	h.record(c, orderID, resourceID, outcome, "")
	c.JSON(http.StatusOK, gin.H{"status": "processed", "outcome": outcome})
}

func (h *Handler) respondError(c *gin.Context, orderID uuid.UUID, resourceID string, err error) {
	status := sharederrors.GetStatusCode(err)
	if errors.Is(err, sharederrors.ErrValidation) {
		// the webhook contract answers kind mismatches with 400
		status = http.StatusBadRequest
	}
	h.record(c, orderID, resourceID, "error", err.Error())

	if status >= 500 {
		h.logger.Error("webhook processing failed",
			zap.String("order_id", orderID.String()),
			zap.String("resource_id", resourceID),
			zap.Error(err),
		)
	}

	var appErr *sharederrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(status, appErr.ToResponse())
		return
	}
	c.JSON(status, gin.H{"error": "webhook processing failed"})
}

// record stores the notification in the event log. Log failures never
// affect the webhook response.
func (h *Handler) record(c *gin.Context, orderID uuid.UUID, resourceID, outcome, detail string) {
	event := &WebhookEvent{
		OrderID:    orderID,
		ResourceID: resourceID,
		Outcome:    outcome,
		Detail:     detail,
	}
	if err := h.log.Record(c.Request.Context(), event); err != nil {
		h.logger.Warn("failed to record webhook event",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
	}
}
