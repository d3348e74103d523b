package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"storefront-service/database"
	"storefront-service/models"
)

type OrderStore interface {
	InOrderTx(ctx context.Context, fn func(database.OrderTx) error) error
	InsertOrder(ctx context.Context, rec models.OrderRecord) error
	ListOrderRecords(ctx context.Context, userID int64) ([]models.OrderRecord, error)
}

type OrderService struct {
	store  OrderStore
	logger *slog.Logger
	now    func() time.Time
	newID  func(time.Time) string
}

func NewOrderService(store OrderStore, logger *slog.Logger) *OrderService {
	return &OrderService{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  NewOrderID,
	}
}

type PlaceOrderRequest struct {
	UserID   int64
	Items    []models.CartLine
	Shipping *models.ShippingInfo
	// OrderID is used when the client already holds an id; otherwise one is
	// generated.
	OrderID string
}

type orderLine struct {
	productID int64
	quantity  int
}

// PlaceOrder validates the request, then in a single transaction re-reads
// stock for every product, inserts the order and decrements stock. Either
// all of it commits or none of it does.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (models.Order, error) {
	if req.UserID == 0 {
		return models.Order{}, ErrUnauthenticated
	}
	if len(req.Items) == 0 {
		return models.Order{}, ErrEmptyCart
	}
	lines, err := mergeLines(req.Items)
	if err != nil {
		return models.Order{}, err
	}
	if req.Shipping == nil {
		return models.Order{}, &Error{
			Kind:    KindInvalidShippingInfo,
			Message: "shipping info is required",
			Fields:  map[string]string{"shippingInfo": "shipping info is required"},
		}
	}
	if fields := req.Shipping.Validate(); fields != nil {
		return models.Order{}, &Error{Kind: KindInvalidShippingInfo, Message: "invalid shipping info", Fields: fields}
	}
	shipping := req.Shipping.Normalized()

	id := req.OrderID
	if id == "" {
		id = s.newID(s.now())
	}
	order, err := s.placeOnce(ctx, req.UserID, lines, shipping, id)
	if errors.Is(err, database.ErrDuplicateKey) {
		retryID := s.newID(s.now())
		s.logger.Warn("order id collision, retrying", "order_id", id, "retry_id", retryID)
		order, err = s.placeOnce(ctx, req.UserID, lines, shipping, retryID)
		if errors.Is(err, database.ErrDuplicateKey) {
			return models.Order{}, &Error{Kind: KindDuplicateOrderID, Message: ErrDuplicateOrderID.Message, Err: err}
		}
	}
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return models.Order{}, se
		}
		s.logger.Error("place order failed", "user_id", req.UserID, "error", err)
		return models.Order{}, unexpected("failed to create order", err)
	}
	return order, nil
}

func (s *OrderService) placeOnce(ctx context.Context, userID int64, lines []orderLine, shipping models.ShippingInfo, id string) (models.Order, error) {
	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.productID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var order models.Order
	err := s.store.InOrderTx(ctx, func(tx database.OrderTx) error {
		products, err := tx.LockProducts(ctx, ids)
		if err != nil {
			return err
		}
		if shortages := checkStock(lines, products); len(shortages) > 0 {
			return insufficientStock(shortages)
		}

		order = buildOrder(id, userID, lines, products, shipping, s.now())
		rec, err := order.Record()
		if err != nil {
			return err
		}
		if err := tx.InsertOrder(ctx, rec); err != nil {
			return err
		}
		for _, l := range lines {
			ok, err := tx.DecrementStock(ctx, l.productID, l.quantity)
			if err != nil {
				return err
			}
			if !ok {
				p := products[l.productID]
				return insufficientStock([]StockShortage{{
					ProductID: p.ID, Title: p.Title, Stock: p.Stock, Requested: l.quantity,
				}})
			}
		}
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return order, nil
}

// mergeLines collapses repeated products into one line, keeping first-seen
// order.
func mergeLines(items []models.CartLine) ([]orderLine, error) {
	index := make(map[int64]int, len(items))
	lines := make([]orderLine, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, invalidInput("quantity must be positive")
		}
		if it.Product.ID <= 0 {
			return nil, invalidInput("invalid product id")
		}
		if i, ok := index[it.Product.ID]; ok {
			lines[i].quantity += it.Quantity
			continue
		}
		index[it.Product.ID] = len(lines)
		lines = append(lines, orderLine{productID: it.Product.ID, quantity: it.Quantity})
	}
	return lines, nil
}

// checkStock returns every line whose requested quantity exceeds live stock.
// Products missing from storage count as zero stock.
func checkStock(lines []orderLine, products map[int64]models.Product) []StockShortage {
	var shortages []StockShortage
	for _, l := range lines {
		p, ok := products[l.productID]
		if !ok {
			shortages = append(shortages, StockShortage{ProductID: l.productID, Stock: 0, Requested: l.quantity})
			continue
		}
		if p.Stock < l.quantity {
			shortages = append(shortages, StockShortage{
				ProductID: p.ID, Title: p.Title, Stock: p.Stock, Requested: l.quantity,
			})
		}
	}
	return shortages
}

func buildOrder(id string, userID int64, lines []orderLine, products map[int64]models.Product, shipping models.ShippingInfo, now time.Time) models.Order {
	items := make([]models.CartLine, len(lines))
	var total int64
	for i, l := range lines {
		p := products[l.productID]
		items[i] = models.CartLine{Product: p, Quantity: l.quantity}
		total += p.Price * int64(l.quantity)
	}
	return models.Order{
		ID:           id,
		UserID:       userID,
		Items:        items,
		ShippingInfo: shipping,
		TotalPrice:   total,
		Status:       models.OrderStatusConfirmed,
		CreatedAt:    now.UTC().Truncate(time.Millisecond),
	}
}

// RecordPaidOrder stores an order confirmed by the payment gateway. It does
// not check or decrement stock: the gateway path trusts the check made when
// the payment session was created.
func (s *OrderService) RecordPaidOrder(ctx context.Context, userID int64, items []models.CartLine, shipping models.ShippingInfo, total int64) (models.Order, error) {
	order := models.Order{
		ID:           s.newID(s.now()),
		UserID:       userID,
		Items:        items,
		ShippingInfo: shipping,
		TotalPrice:   total,
		Status:       models.OrderStatusConfirmed,
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
	}
	for attempt := 0; ; attempt++ {
		rec, err := order.Record()
		if err != nil {
			return models.Order{}, unexpected("failed to create order", err)
		}
		err = s.store.InsertOrder(ctx, rec)
		if err == nil {
			return order, nil
		}
		if errors.Is(err, database.ErrDuplicateKey) && attempt == 0 {
			order.ID = s.newID(s.now())
			continue
		}
		s.logger.Error("record paid order failed", "user_id", userID, "order_id", order.ID, "error", err)
		if errors.Is(err, database.ErrDuplicateKey) {
			return models.Order{}, &Error{Kind: KindDuplicateOrderID, Message: ErrDuplicateOrderID.Message, Err: err}
		}
		return models.Order{}, unexpected("failed to create order", err)
	}
}

type OrderList struct {
	Orders []models.Order
	// Skipped counts stored orders whose payload could not be decoded.
	Skipped int
}

// ListOrders returns the user's orders, newest first. Each stored row decodes
// independently; a malformed row is logged and skipped.
func (s *OrderService) ListOrders(ctx context.Context, userID int64) (OrderList, error) {
	if userID == 0 {
		return OrderList{}, ErrUnauthenticated
	}
	recs, err := s.store.ListOrderRecords(ctx, userID)
	if err != nil {
		s.logger.Error("list orders failed", "user_id", userID, "error", err)
		return OrderList{}, unexpected("failed to fetch orders", err)
	}
	list := OrderList{Orders: make([]models.Order, 0, len(recs))}
	for _, rec := range recs {
		o, err := rec.Order()
		if err != nil {
			s.logger.Error("corrupt order payload", "order_id", rec.ID, "user_id", userID, "error", err)
			list.Skipped++
			continue
		}
		list.Orders = append(list.Orders, o)
	}
	return list, nil
}
