package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"storefront-service/models"
	"storefront-service/payments"
)

// maxMetadataValue is the gateway's size limit for one metadata value.
const maxMetadataValue = 500

const shippingLineName = "Shipping"

type CheckoutConfig struct {
	Currency string
	BaseURL  string
	Shipping ShippingPolicy
}

type CheckoutService struct {
	catalog CatalogStore
	orders  *OrderService
	gateway payments.Gateway
	events  payments.EventLog
	cfg     CheckoutConfig
	logger  *slog.Logger
}

func NewCheckoutService(catalog CatalogStore, orders *OrderService, gateway payments.Gateway,
	events payments.EventLog, cfg CheckoutConfig, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		catalog: catalog,
		orders:  orders,
		gateway: gateway,
		events:  events,
		cfg:     cfg,
		logger:  logger,
	}
}

type PaymentSessionRequest struct {
	UserID   int64
	Email    string
	Items    []models.CartLine
	Shipping *models.ShippingInfo
}

// sessionCartItem is the compact cart snapshot carried in session metadata.
type sessionCartItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// CreatePaymentSession checks stock against live storage without reserving
// it and opens a gateway session priced from storage. The cart and shipping
// info ride along as metadata for the asynchronous confirmation.
func (s *CheckoutService) CreatePaymentSession(ctx context.Context, req PaymentSessionRequest) (*payments.Session, error) {
	if req.UserID == 0 {
		return nil, ErrUnauthenticated
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	lines, err := mergeLines(req.Items)
	if err != nil {
		return nil, err
	}
	if req.Shipping == nil {
		return nil, &Error{Kind: KindInvalidShippingInfo, Message: "shipping info is required",
			Fields: map[string]string{"shippingInfo": "shipping info is required"}}
	}
	if fields := req.Shipping.Validate(); fields != nil {
		return nil, &Error{Kind: KindInvalidShippingInfo, Message: "invalid shipping info", Fields: fields}
	}

	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.productID
	}
	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		s.logger.Error("load products for payment failed", "error", err)
		return nil, unexpected("failed to create payment session", err)
	}
	if shortages := checkStock(lines, products); len(shortages) > 0 {
		return nil, insufficientStock(shortages)
	}

	items := make([]payments.LineItem, 0, len(lines)+1)
	snapshot := make([]sessionCartItem, 0, len(lines))
	var subtotal int64
	for _, l := range lines {
		p := products[l.productID]
		items = append(items, payments.LineItem{
			Name:        p.Title,
			Description: p.Description,
			ImageURL:    p.ImageURL,
			UnitAmount:  p.Price,
			Quantity:    int64(l.quantity),
		})
		snapshot = append(snapshot, sessionCartItem{ProductID: p.ID, Quantity: l.quantity})
		subtotal += p.Price * int64(l.quantity)
	}
	if fee := s.cfg.Shipping.FeeFor(subtotal); fee > 0 {
		items = append(items, payments.LineItem{Name: shippingLineName, Description: "Delivery fee", UnitAmount: fee, Quantity: 1})
	}

	cartJSON, _ := json.Marshal(snapshot)
	shippingJSON, _ := json.Marshal(req.Shipping.Normalized())
	if len(cartJSON) > maxMetadataValue || len(shippingJSON) > maxMetadataValue {
		return nil, invalidInput("cart is too large for card payment")
	}

	session, err := s.gateway.CreateSession(ctx, payments.SessionRequest{
		Items:         items,
		Currency:      s.cfg.Currency,
		CustomerEmail: req.Email,
		SuccessURL:    s.cfg.BaseURL + "/checkout/complete?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.cfg.BaseURL + "/checkout?canceled=true",
		Metadata: map[string]string{
			payments.MetadataUserID:       strconv.FormatInt(req.UserID, 10),
			payments.MetadataShippingInfo: string(shippingJSON),
			payments.MetadataCartItems:    string(cartJSON),
		},
	})
	if err != nil {
		s.logger.Error("create payment session failed", "user_id", req.UserID, "error", err)
		return nil, unexpected("failed to create payment session", err)
	}
	return session, nil
}

type PaidSession struct {
	SessionID     string              `json:"sessionId"`
	UserID        int64               `json:"userId"`
	Items         []models.CartLine   `json:"items"`
	ShippingInfo  models.ShippingInfo `json:"shippingInfo"`
	TotalPrice    int64               `json:"totalPrice"`
	Status        models.OrderStatus  `json:"status"`
	PaymentStatus string              `json:"paymentStatus"`
}

// SessionSummary describes a paid session owned by userID, for the
// checkout completion page.
func (s *CheckoutService) SessionSummary(ctx context.Context, userID int64, sessionID string) (PaidSession, error) {
	if userID == 0 {
		return PaidSession{}, ErrUnauthenticated
	}
	if sessionID == "" {
		return PaidSession{}, invalidInput("session id is required")
	}
	session, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		s.logger.Error("get payment session failed", "session_id", sessionID, "error", err)
		return PaidSession{}, unexpected("failed to fetch payment session", err)
	}
	owner, err := metadataUserID(session)
	if err != nil || owner != userID {
		return PaidSession{}, notFound("payment session not found")
	}
	if session.PaymentStatus != payments.PaymentStatusPaid {
		return PaidSession{}, invalidInput("payment is not complete")
	}
	items, shipping, err := s.decodeSessionCart(ctx, session)
	if err != nil {
		return PaidSession{}, err
	}
	return PaidSession{
		SessionID:     session.ID,
		UserID:        owner,
		Items:         items,
		ShippingInfo:  shipping,
		TotalPrice:    session.AmountTotal,
		Status:        models.OrderStatusConfirmed,
		PaymentStatus: session.PaymentStatus,
	}, nil
}

// ConfirmPayment creates the order for a completed checkout session. Stock is
// neither re-checked nor decremented here. Events other than session
// completion, and redeliveries of an already handled event, return a nil
// order. A redelivery that arrives while the first delivery is still being
// confirmed fails with KindBusy so the gateway retries it.
func (s *CheckoutService) ConfirmPayment(ctx context.Context, ev *payments.WebhookEvent) (*models.Order, error) {
	if ev.Type != payments.EventCheckoutSessionCompleted {
		return nil, nil
	}
	if ev.Session == nil {
		return nil, invalidInput("event has no session")
	}
	userID, err := metadataUserID(ev.Session)
	if err != nil {
		s.logger.Error("payment session without user", "session_id", ev.Session.ID)
		return nil, invalidInput("missing userId")
	}

	state, err := s.events.Claim(ctx, ev.ID)
	if err != nil {
		s.logger.Error("webhook event log failed", "event_id", ev.ID, "error", err)
		return nil, unexpected("order creation failed", err)
	}
	switch state {
	case payments.EventDone:
		s.logger.Info("duplicate webhook event ignored", "event_id", ev.ID)
		return nil, nil
	case payments.EventInProgress:
		s.logger.Info("webhook event already in progress", "event_id", ev.ID)
		return nil, &Error{Kind: KindBusy, Message: "payment confirmation in progress"}
	}

	order, err := s.confirm(ctx, userID, ev.Session)
	if err != nil {
		if ferr := s.events.Forget(ctx, ev.ID); ferr != nil {
			s.logger.Error("webhook event log forget failed", "event_id", ev.ID, "error", ferr)
		}
		return nil, err
	}
	if err := s.events.Complete(ctx, ev.ID); err != nil {
		s.logger.Error("webhook event log complete failed", "event_id", ev.ID, "error", err)
	}
	s.logger.Info("order created via payment webhook", "order_id", order.ID, "session_id", ev.Session.ID)
	return &order, nil
}

func (s *CheckoutService) confirm(ctx context.Context, userID int64, session *payments.Session) (models.Order, error) {
	items, shipping, err := s.decodeSessionCart(ctx, session)
	if err != nil {
		return models.Order{}, err
	}
	return s.orders.RecordPaidOrder(ctx, userID, items, shipping, session.AmountTotal)
}

// decodeSessionCart rebuilds the cart from session metadata. Product data is
// re-read from storage; a product that no longer exists keeps only its id
// under a placeholder title.
func (s *CheckoutService) decodeSessionCart(ctx context.Context, session *payments.Session) ([]models.CartLine, models.ShippingInfo, error) {
	var shipping models.ShippingInfo
	if raw := session.Metadata[payments.MetadataShippingInfo]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &shipping); err != nil {
			s.logger.Warn("malformed shipping metadata", "session_id", session.ID, "error", err)
		}
	}

	var snapshot []sessionCartItem
	if raw := session.Metadata[payments.MetadataCartItems]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
			s.logger.Error("malformed cart metadata", "session_id", session.ID, "error", err)
			return nil, shipping, invalidInput("malformed cart metadata")
		}
	}

	ids := make([]int64, len(snapshot))
	for i, it := range snapshot {
		ids[i] = it.ProductID
	}
	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		s.logger.Error("load products for payment failed", "session_id", session.ID, "error", err)
		return nil, shipping, unexpected("failed to load products", err)
	}

	items := make([]models.CartLine, 0, len(snapshot))
	for _, it := range snapshot {
		p, ok := products[it.ProductID]
		if !ok {
			p = models.Product{ID: it.ProductID, Title: "Item", Category: models.CategoryOther}
		}
		items = append(items, models.CartLine{Product: p, Quantity: it.Quantity})
	}
	return items, shipping, nil
}

func metadataUserID(session *payments.Session) (int64, error) {
	id, err := strconv.ParseInt(session.Metadata[payments.MetadataUserID], 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}
