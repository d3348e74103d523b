package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentCredit PaymentMethod = "credit"
	PaymentBank   PaymentMethod = "bank"
	PaymentCOD    PaymentMethod = "cod"
)

// CartLine pairs a product snapshot with a requested quantity.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// ShippingInfo is the checkout form submitted with an order.
type ShippingInfo struct {
	Name          string        `json:"name" validate:"required,min=2"`
	Email         string        `json:"email" validate:"required,email"`
	Address       string        `json:"address" validate:"required,min=5"`
	City          string        `json:"city" validate:"required"`
	PostalCode    string        `json:"postalCode" validate:"required,postalcode"`
	PaymentMethod PaymentMethod `json:"paymentMethod" validate:"required,oneof=credit bank cod"`
}

type Order struct {
	ID           string       `json:"id"`
	UserID       int64        `json:"userId"`
	Items        []CartLine   `json:"items"`
	ShippingInfo ShippingInfo `json:"shippingInfo"`
	TotalPrice   int64        `json:"totalPrice"`
	Status       OrderStatus  `json:"status"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// OrderRecord is the persisted layout of an order: items and shipping info
// are stored as serialized JSON text.
type OrderRecord struct {
	ID           string
	UserID       int64
	Items        string
	ShippingInfo string
	TotalPrice   int64
	Status       OrderStatus
	CreatedAt    time.Time
}

// Record serializes the order into its persisted layout.
func (o Order) Record() (OrderRecord, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return OrderRecord{}, fmt.Errorf("encode items: %w", err)
	}
	shipping, err := json.Marshal(o.ShippingInfo)
	if err != nil {
		return OrderRecord{}, fmt.Errorf("encode shipping info: %w", err)
	}
	return OrderRecord{
		ID:           o.ID,
		UserID:       o.UserID,
		Items:        string(items),
		ShippingInfo: string(shipping),
		TotalPrice:   o.TotalPrice,
		Status:       o.Status,
		CreatedAt:    o.CreatedAt,
	}, nil
}

// Order decodes the embedded payloads back into structured form.
func (r OrderRecord) Order() (Order, error) {
	var items []CartLine
	if err := json.Unmarshal([]byte(r.Items), &items); err != nil {
		return Order{}, fmt.Errorf("decode items of order %s: %w", r.ID, err)
	}
	var shipping ShippingInfo
	if err := json.Unmarshal([]byte(r.ShippingInfo), &shipping); err != nil {
		return Order{}, fmt.Errorf("decode shipping info of order %s: %w", r.ID, err)
	}
	return Order{
		ID:           r.ID,
		UserID:       r.UserID,
		Items:        items,
		ShippingInfo: shipping,
		TotalPrice:   r.TotalPrice,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
	}, nil
}

// OrderEvent is published to the order exchange after an order commits.
type OrderEvent struct {
	OrderID  string    `json:"order_id"`
	UserID   int64     `json:"user_id"`
	Type     string    `json:"type"` // created, payment_confirmed
	Status   string    `json:"status"`
	Total    int64     `json:"total"`
	Occurred time.Time `json:"occurred"`
}

const (
	EventOrderCreated     = "created"
	EventPaymentConfirmed = "payment_confirmed"
)
