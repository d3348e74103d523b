package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront-service/middlewares"
	"storefront-service/models"
	"storefront-service/services"
)

// EventPublisher delivers order events to the message broker.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, ev models.OrderEvent) error
}

type OrderController struct {
	orders    *services.OrderService
	publisher EventPublisher
	logger    *slog.Logger
}

// NewOrderController wires the order endpoints. publisher may be nil, in
// which case no events are sent.
func NewOrderController(orders *services.OrderService, publisher EventPublisher, logger *slog.Logger) *OrderController {
	return &OrderController{orders: orders, publisher: publisher, logger: logger}
}

type createOrderRequest struct {
	Items        []models.CartLine    `json:"items"`
	ShippingInfo *models.ShippingInfo `json:"shippingInfo"`
	OrderID      string               `json:"orderId"`
}

func recordOutcome(c *gin.Context, operation string) {
	status := c.Writer.Status() >= 200 && c.Writer.Status() < 300
	middlewares.RecordOrderOperation(operation, status)
}

// CreateOrder POST /api/orders
func (oc *OrderController) CreateOrder(c *gin.Context) {
	defer recordOutcome(c, "create")

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	order, err := oc.orders.PlaceOrder(c.Request.Context(), services.PlaceOrderRequest{
		UserID:   middlewares.UserID(c),
		Items:    req.Items,
		Shipping: req.ShippingInfo,
		OrderID:  req.OrderID,
	})
	if err != nil {
		var se *services.Error
		if errors.As(err, &se) {
			for _, s := range se.Shortages {
				middlewares.RecordInsufficientStock(s.ProductID)
			}
		}
		respondError(c, oc.logger, err)
		return
	}

	oc.logger.Info("order created", "order_id", order.ID, "user_id", order.UserID, "total", order.TotalPrice)
	respondOK(c, http.StatusCreated, order)

	// 事务提交成功后发送事件
	publishEvent(context.WithoutCancel(c.Request.Context()), oc.publisher, oc.logger, order, models.EventOrderCreated)
}

// publishEvent sends an event for a committed order. Failures are logged
// only; the order already exists.
func publishEvent(ctx context.Context, p EventPublisher, logger *slog.Logger, order models.Order, eventType string) {
	if p == nil {
		return
	}
	ev := models.OrderEvent{
		OrderID:  order.ID,
		UserID:   order.UserID,
		Type:     eventType,
		Status:   string(order.Status),
		Total:    order.TotalPrice,
		Occurred: time.Now().UTC(),
	}
	if err := p.PublishOrderEvent(ctx, ev); err != nil {
		logger.Error("failed to publish order event", "order_id", order.ID, "type", eventType, "error", err)
	}
}

type orderListResponse struct {
	Orders  []models.Order `json:"orders"`
	Skipped int            `json:"skipped"`
}

// GetUserOrders GET /api/orders
func (oc *OrderController) GetUserOrders(c *gin.Context) {
	defer recordOutcome(c, "list")

	list, err := oc.orders.ListOrders(c.Request.Context(), middlewares.UserID(c))
	if err != nil {
		respondError(c, oc.logger, err)
		return
	}
	respondOK(c, http.StatusOK, orderListResponse{Orders: list.Orders, Skipped: list.Skipped})
}
