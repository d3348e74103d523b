package services

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the HTTP layer can choose a status code.
type Kind int

const (
	KindUnexpected Kind = iota
	KindUnauthenticated
	KindEmptyCart
	KindInvalidInput
	KindInvalidShippingInfo
	KindInsufficientStock
	KindDuplicateOrderID
	KindNotFound
	KindConflict
	// KindBusy means the request overlaps work still in flight and may be
	// retried later.
	KindBusy
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindEmptyCart:
		return "empty_cart"
	case KindInvalidInput:
		return "invalid_input"
	case KindInvalidShippingInfo:
		return "invalid_shipping_info"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindDuplicateOrderID:
		return "duplicate_order_id"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindBusy:
		return "busy"
	default:
		return "unexpected"
	}
}

// StockShortage describes one cart line that cannot be served.
type StockShortage struct {
	ProductID int64  `json:"productId"`
	Title     string `json:"title"`
	Stock     int    `json:"stock"`
	Requested int    `json:"requested"`
}

// Error is the failure type returned by every service. Message is safe to
// show to clients; Err carries internal detail for logs only.
type Error struct {
	Kind      Kind
	Message   string
	Fields    map[string]string
	Shortages []StockShortage
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, ErrEmptyCart) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated, Message: "authentication required"}
	ErrEmptyCart         = &Error{Kind: KindEmptyCart, Message: "cart is empty"}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock, Message: "some items are out of stock"}
	ErrDuplicateOrderID  = &Error{Kind: KindDuplicateOrderID, Message: "order could not be created"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
)

func invalidInput(msg string) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg}
}

func notFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func unexpected(msg string, err error) *Error {
	return &Error{Kind: KindUnexpected, Message: msg, Err: err}
}

func insufficientStock(shortages []StockShortage) *Error {
	return &Error{Kind: KindInsufficientStock, Message: ErrInsufficientStock.Message, Shortages: shortages}
}

// KindOf reports the kind of err, or KindUnexpected for foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnexpected
}
