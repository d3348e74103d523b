package controllers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-service/middlewares"
	"storefront-service/models"
	"storefront-service/payments"
	"storefront-service/services"
)

// maxWebhookBody bounds the webhook payload read into memory.
const maxWebhookBody = 64 << 10

type PaymentController struct {
	checkout  *services.CheckoutService
	gateway   payments.Gateway
	publisher EventPublisher
	logger    *slog.Logger
}

func NewPaymentController(checkout *services.CheckoutService, gateway payments.Gateway, publisher EventPublisher, logger *slog.Logger) *PaymentController {
	return &PaymentController{checkout: checkout, gateway: gateway, publisher: publisher, logger: logger}
}

type checkoutSessionRequest struct {
	Items        []models.CartLine    `json:"items"`
	ShippingInfo *models.ShippingInfo `json:"shippingInfo"`
}

type checkoutSessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// CreateCheckoutSession POST /api/payments/checkout-session
func (pc *PaymentController) CreateCheckoutSession(c *gin.Context) {
	defer recordOutcome(c, "checkout_session")

	var req checkoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	var email string
	if claims := middlewares.Claims(c); claims != nil {
		email = claims.Email
	}
	if email == "" && req.ShippingInfo != nil {
		email = req.ShippingInfo.Email
	}

	session, err := pc.checkout.CreatePaymentSession(c.Request.Context(), services.PaymentSessionRequest{
		UserID:   middlewares.UserID(c),
		Email:    email,
		Items:    req.Items,
		Shipping: req.ShippingInfo,
	})
	if err != nil {
		respondError(c, pc.logger, err)
		return
	}
	respondOK(c, http.StatusOK, checkoutSessionResponse{SessionID: session.ID, URL: session.URL})
}

// GetSession GET /api/payments/sessions/:id
func (pc *PaymentController) GetSession(c *gin.Context) {
	summary, err := pc.checkout.SessionSummary(c.Request.Context(), middlewares.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, pc.logger, err)
		return
	}
	respondOK(c, http.StatusOK, summary)
}

// Webhook POST /api/payments/webhook
func (pc *PaymentController) Webhook(c *gin.Context) {
	defer recordOutcome(c, "webhook")

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "unreadable body")
		return
	}
	ev, err := pc.gateway.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			pc.logger.Warn("webhook signature verification failed", "error", err)
			badRequest(c, "invalid signature")
			return
		}
		respondError(c, pc.logger, err)
		return
	}

	order, err := pc.checkout.ConfirmPayment(c.Request.Context(), ev)
	if err != nil {
		respondError(c, pc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})

	if order != nil {
		publishEvent(context.WithoutCancel(c.Request.Context()), pc.publisher, pc.logger, *order, models.EventPaymentConfirmed)
	}
}
