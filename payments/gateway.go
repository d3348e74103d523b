// Package payments is the boundary with the external card payment gateway.
package payments

import (
	"context"
	"errors"
)

const (
	PaymentStatusPaid = "paid"

	EventCheckoutSessionCompleted = "checkout.session.completed"

	MetadataUserID       = "userId"
	MetadataShippingInfo = "shippingInfo"
	MetadataCartItems    = "cartItems"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

type LineItem struct {
	Name        string
	Description string
	ImageURL    string
	UnitAmount  int64
	Quantity    int64
}

type SessionRequest struct {
	Items         []LineItem
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	// Metadata is opaque to the gateway and returned with the session.
	Metadata map[string]string
}

type Session struct {
	ID            string
	URL           string
	PaymentStatus string
	AmountTotal   int64
	Metadata      map[string]string
}

// WebhookEvent is a signature-verified gateway notification. Session is set
// for checkout session events.
type WebhookEvent struct {
	ID      string
	Type    string
	Session *Session
}

type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
