package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Products *ProductController
	Auth     *AuthController
	Orders   *OrderController
	Payments *PaymentController

	// AuthLimit, when set, throttles the register and login endpoints.
	AuthLimit gin.HandlerFunc
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Register mounts the API routes on r. requireAuth guards the routes that
// need a signed-in user.
func (h Handlers) Register(r *gin.Engine, requireAuth gin.HandlerFunc, store Pinger) {
	r.GET("/health", func(c *gin.Context) {
		if store != nil {
			if err := store.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/products", h.Products.ListProducts)
	api.GET("/products/:id", h.Products.GetProduct)
	api.POST("/cart/quote", h.Products.QuoteCart)
	auth := api.Group("/auth")
	if h.AuthLimit != nil {
		auth.Use(h.AuthLimit)
	}
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	api.POST("/payments/webhook", h.Payments.Webhook)

	// 需要认证的路由组
	authGroup := api.Group("")
	authGroup.Use(requireAuth)
	{
		authGroup.GET("/user", h.Auth.Me)
		authGroup.POST("/orders", h.Orders.CreateOrder)
		authGroup.GET("/orders", h.Orders.GetUserOrders)
		authGroup.POST("/payments/checkout-session", h.Payments.CreateCheckoutSession)
		authGroup.GET("/payments/sessions/:id", h.Payments.GetSession)
	}
}
