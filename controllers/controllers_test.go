package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-service/database"
	"storefront-service/middlewares"
	"storefront-service/models"
	"storefront-service/payments"
	"storefront-service/services"
	"storefront-service/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.OrderEvent
	err    error
}

func (p *fakePublisher) PublishOrderEvent(_ context.Context, ev models.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type stubGateway struct {
	event *payments.WebhookEvent
}

func (g *stubGateway) CreateSession(_ context.Context, req payments.SessionRequest) (*payments.Session, error) {
	return &payments.Session{ID: "cs_1", URL: "https://pay.example.com/cs_1", Metadata: req.Metadata}, nil
}

func (g *stubGateway) GetSession(context.Context, string) (*payments.Session, error) {
	return nil, errors.New("not used")
}

func (g *stubGateway) ParseWebhook(_ []byte, signature string) (*payments.WebhookEvent, error) {
	if signature != "good" {
		return nil, payments.ErrInvalidSignature
	}
	return g.event, nil
}

type server struct {
	router    *gin.Engine
	store     *database.MemoryStore
	tokens    *utils.TokenManager
	publisher *fakePublisher
	gateway   *stubGateway
}

func newServer(t *testing.T) *server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := database.NewMemoryStore(database.SeedCatalog()...)
	tokens := utils.NewTokenManager("test-secret", time.Hour)
	pub := &fakePublisher{}
	gw := &stubGateway{}
	shipping := services.ShippingPolicy{Fee: 500, FreeThreshold: 10000}

	catalog := services.NewCatalogService(store, shipping, logger)
	orders := services.NewOrderService(store, logger)
	checkout := services.NewCheckoutService(store, orders, gw, payments.NewMemoryEventLog(time.Hour),
		services.CheckoutConfig{Currency: "jpy", BaseURL: "http://shop.test", Shipping: shipping}, logger)

	r := gin.New()
	r.Use(middlewares.RequestID())
	Handlers{
		Products: NewProductController(catalog, logger),
		Auth:     NewAuthController(services.NewUserService(store, logger), tokens, logger),
		Orders:   NewOrderController(orders, pub, logger),
		Payments: NewPaymentController(checkout, gw, pub, logger),
	}.Register(r, middlewares.AuthMiddleware(tokens), store)

	return &server{router: r, store: store, tokens: tokens, publisher: pub, gateway: gw}
}

func (s *server) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func (s *server) token(t *testing.T, userID int64) string {
	t.Helper()
	tok, err := s.tokens.GenerateToken(userID, "buyer@example.com", "Buyer")
	require.NoError(t, err)
	return tok
}

func shippingBody() map[string]any {
	return map[string]any{
		"name":          "Taro Yamada",
		"email":         "taro@example.com",
		"address":       "1-2-3 Shibuya",
		"city":          "Tokyo",
		"postalCode":    "150-0002",
		"paymentMethod": "credit",
	}
}

func cartItem(id int64, qty int) map[string]any {
	return map[string]any{"product": map[string]any{"id": id}, "quantity": qty}
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	w, body := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestProductEndpoints(t *testing.T) {
	s := newServer(t)

	w, body := s.do(t, http.MethodGet, "/api/products?category=books&sort=price-asc", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["data"], 3)

	w, _ = s.do(t, http.MethodGet, "/api/products?sort=bogus", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = s.do(t, http.MethodGet, "/api/products/7", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "TypeScript入門", body["data"].(map[string]any)["title"])

	w, body = s.do(t, http.MethodGet, "/api/products/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])

	w, _ = s.do(t, http.MethodGet, "/api/products/999", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = s.do(t, http.MethodPost, "/api/cart/quote", map[string]any{
		"items": []map[string]any{{"productId": 4, "quantity": 2}},
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	quote := body["data"].(map[string]any)
	assert.Equal(t, float64(3160), quote["subtotal"])
	assert.Equal(t, float64(500), quote["shippingFee"])
	assert.Equal(t, float64(3660), quote["total"])
}

func TestAuthEndpoints(t *testing.T) {
	s := newServer(t)
	creds := map[string]any{"name": "Hanako", "email": "hanako@example.com", "password": "abc123"}

	w, body := s.do(t, http.MethodPost, "/api/auth/register", creds, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := body["data"].(map[string]any)
	assert.NotEmpty(t, data["token"])
	assert.NotContains(t, w.Body.String(), "abc123")

	w, _ = s.do(t, http.MethodPost, "/api/auth/register", creds, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/auth/register",
		map[string]any{"email": "short@example.com", "password": "abc12"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/auth/login",
		map[string]any{"email": "hanako@example.com", "password": "wrong!"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body = s.do(t, http.MethodPost, "/api/auth/login",
		map[string]any{"email": "hanako@example.com", "password": "abc123"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	token := body["data"].(map[string]any)["token"].(string)

	w, body = s.do(t, http.MethodGet, "/api/user", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hanako@example.com", body["data"].(map[string]any)["email"])

	w, _ = s.do(t, http.MethodGet, "/api/user", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateOrder(t *testing.T) {
	s := newServer(t)
	token := s.token(t, 11)

	w, body := s.do(t, http.MethodPost, "/api/orders", map[string]any{
		"items":        []any{cartItem(1, 2)},
		"shippingInfo": shippingBody(),
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := body["data"].(map[string]any)
	assert.Equal(t, float64(7960), order["totalPrice"])
	assert.Equal(t, "confirmed", order["status"])

	p, err := s.store.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 13, p.Stock)

	require.Len(t, s.publisher.events, 1)
	assert.Equal(t, models.EventOrderCreated, s.publisher.events[0].Type)
	assert.Equal(t, order["id"], s.publisher.events[0].OrderID)

	w, body = s.do(t, http.MethodGet, "/api/orders", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	list := body["data"].(map[string]any)
	assert.Len(t, list["orders"], 1)
	assert.Equal(t, float64(0), list["skipped"])
}

func TestCreateOrderFailures(t *testing.T) {
	s := newServer(t)
	token := s.token(t, 11)

	w, _ := s.do(t, http.MethodPost, "/api/orders", map[string]any{"items": []any{cartItem(1, 1)}}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := s.do(t, http.MethodPost, "/api/orders", map[string]any{"shippingInfo": shippingBody()}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])

	bad := shippingBody()
	bad["postalCode"] = "abc"
	w, body = s.do(t, http.MethodPost, "/api/orders", map[string]any{
		"items": []any{cartItem(1, 1)}, "shippingInfo": bad,
	}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["fields"], "postalCode")

	w, body = s.do(t, http.MethodPost, "/api/orders", map[string]any{
		"items": []any{cartItem(7, 1), cartItem(9, 4)}, "shippingInfo": shippingBody(),
	}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	shortages := body["shortages"].([]any)
	require.Len(t, shortages, 2)
	first := shortages[0].(map[string]any)
	assert.Equal(t, float64(7), first["productId"])
	assert.Equal(t, float64(0), first["stock"])
	assert.Equal(t, float64(1), first["requested"])

	assert.Empty(t, s.publisher.events)
}

func TestCreateOrderPublishFailureStillSucceeds(t *testing.T) {
	s := newServer(t)
	s.publisher.err = errors.New("broker down")

	w, _ := s.do(t, http.MethodPost, "/api/orders", map[string]any{
		"items": []any{cartItem(2, 1)}, "shippingInfo": shippingBody(),
	}, s.token(t, 5))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestListOrdersReportsSkipped(t *testing.T) {
	s := newServer(t)
	require.NoError(t, s.store.InsertOrder(context.Background(), models.OrderRecord{
		ID: "ORD-BAD-0000", UserID: 5, Items: "not json", ShippingInfo: "{}", CreatedAt: time.Now(),
	}))

	w, body := s.do(t, http.MethodGet, "/api/orders", nil, s.token(t, 5))
	require.Equal(t, http.StatusOK, w.Code)
	list := body["data"].(map[string]any)
	assert.Empty(t, list["orders"])
	assert.Equal(t, float64(1), list["skipped"])
}

func TestCheckoutSessionAndWebhook(t *testing.T) {
	s := newServer(t)
	token := s.token(t, 8)

	w, body := s.do(t, http.MethodPost, "/api/payments/checkout-session", map[string]any{
		"items": []any{cartItem(3, 1)}, "shippingInfo": shippingBody(),
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := body["data"].(map[string]any)
	assert.Equal(t, "cs_1", data["sessionId"])
	assert.Equal(t, "https://pay.example.com/cs_1", data["url"])

	s.gateway.event = &payments.WebhookEvent{
		ID:   "evt_1",
		Type: payments.EventCheckoutSessionCompleted,
		Session: &payments.Session{
			ID:            "cs_1",
			PaymentStatus: payments.PaymentStatusPaid,
			AmountTotal:   3480,
			Metadata: map[string]string{
				payments.MetadataUserID:    "8",
				payments.MetadataCartItems: `[{"productId":3,"quantity":1}]`,
			},
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "bad")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for i := 0; i < 2; i++ {
		req = httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Stripe-Signature", "good")
		rec = httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	}

	recs, err := s.store.ListOrderRecords(context.Background(), 8)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(3480), recs[0].TotalPrice)

	require.Len(t, s.publisher.events, 1)
	assert.Equal(t, models.EventPaymentConfirmed, s.publisher.events[0].Type)
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := gin.New()
	r.GET("/boom", func(c *gin.Context) {
		respondError(c, logger, errors.New("dial tcp 10.0.0.1:3306: connection refused"))
	})
	r.GET("/dup", func(c *gin.Context) {
		respondError(c, logger, services.ErrDuplicateOrderID)
	})

	for _, path := range []string{"/boom", "/dup"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"internal server error"}`, w.Body.String())
	}
}

func TestRespondErrorBusyIsRetryable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := gin.New()
	r.POST("/webhook", func(c *gin.Context) {
		respondError(c, logger, &services.Error{Kind: services.KindBusy, Message: "payment confirmation in progress"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "5", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"success":false,"error":"payment confirmation in progress"}`, w.Body.String())
}
