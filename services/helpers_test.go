package services

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"storefront-service/database"
	"storefront-service/models"
	"storefront-service/payments"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog() []models.Product {
	return []models.Product{
		{ID: 1, Title: "プレミアムTシャツ", Price: 3980, Category: models.CategoryClothing, Stock: 15},
		{ID: 2, Title: "ワイヤレスイヤホン Pro", Price: 12800, Category: models.CategoryElectronics, Stock: 8},
		{ID: 5, Title: "スマートウォッチ X1", Price: 24800, Category: models.CategoryElectronics, Stock: 5},
		{ID: 7, Title: "TypeScript入門", Price: 3200, Category: models.CategoryBooks, Stock: 0},
		{ID: 9, Title: "ポータブル充電器", Price: 4980, Category: models.CategoryElectronics, Stock: 3},
	}
}

func validShipping() *models.ShippingInfo {
	return &models.ShippingInfo{
		Name:          "Hanako Sato",
		Email:         "hanako@example.com",
		Address:       "4-5-6 Umeda",
		City:          "Osaka",
		PostalCode:    "5300001",
		PaymentMethod: models.PaymentBank,
	}
}

func line(id int64, qty int) models.CartLine {
	return models.CartLine{Product: models.Product{ID: id}, Quantity: qty}
}

// faultyStore fails DecrementStock for one product after the order insert,
// to exercise rollback.
type faultyStore struct {
	*database.MemoryStore
	failOn int64
	err    error
}

func (s *faultyStore) InOrderTx(ctx context.Context, fn func(database.OrderTx) error) error {
	return s.MemoryStore.InOrderTx(ctx, func(tx database.OrderTx) error {
		return fn(&faultyTx{OrderTx: tx, failOn: s.failOn, err: s.err})
	})
}

type faultyTx struct {
	database.OrderTx
	failOn int64
	err    error
}

func (t *faultyTx) DecrementStock(ctx context.Context, productID int64, qty int) (bool, error) {
	if productID == t.failOn {
		return false, t.err
	}
	return t.OrderTx.DecrementStock(ctx, productID, qty)
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []payments.SessionRequest
	sessions map[string]*payments.Session
	err      error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: make(map[string]*payments.Session)}
}

func (g *fakeGateway) CreateSession(_ context.Context, req payments.SessionRequest) (*payments.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.requests = append(g.requests, req)
	s := &payments.Session{ID: "cs_test", URL: "https://pay.example.com/cs_test", PaymentStatus: "unpaid", Metadata: req.Metadata}
	g.sessions[s.ID] = s
	return s, nil
}

func (g *fakeGateway) GetSession(_ context.Context, id string) (*payments.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[id]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return s, nil
}

func (g *fakeGateway) ParseWebhook([]byte, string) (*payments.WebhookEvent, error) {
	return nil, payments.ErrInvalidSignature
}
