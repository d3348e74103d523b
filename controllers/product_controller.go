package controllers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-service/services"
)

type ProductController struct {
	catalog *services.CatalogService
	logger  *slog.Logger
}

func NewProductController(catalog *services.CatalogService, logger *slog.Logger) *ProductController {
	return &ProductController{catalog: catalog, logger: logger}
}

// ListProducts GET /api/products?category=&search=&sort=
func (pc *ProductController) ListProducts(c *gin.Context) {
	products, err := pc.catalog.ListProducts(c.Request.Context(), services.ProductQuery{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Sort:     c.Query("sort"),
	})
	if err != nil {
		respondError(c, pc.logger, err)
		return
	}
	respondOK(c, http.StatusOK, products)
}

// GetProduct GET /api/products/:id
func (pc *ProductController) GetProduct(c *gin.Context) {
	p, err := pc.catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, pc.logger, err)
		return
	}
	respondOK(c, http.StatusOK, p)
}

type quoteRequest struct {
	Items []services.QuoteLine `json:"items"`
}

// QuoteCart POST /api/cart/quote
func (pc *ProductController) QuoteCart(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	q, err := pc.catalog.QuoteCart(c.Request.Context(), req.Items)
	if err != nil {
		respondError(c, pc.logger, err)
		return
	}
	respondOK(c, http.StatusOK, q)
}
