package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"storefront-service/cart"
	"storefront-service/database"
	"storefront-service/models"
)

type CatalogStore interface {
	ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (models.Product, error)
	GetProducts(ctx context.Context, ids []int64) (map[int64]models.Product, error)
}

const (
	SortDefault   = "default"
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
	SortName      = "name"
)

type ProductQuery struct {
	Category string
	Search   string
	Sort     string
}

// ShippingPolicy charges Fee unless the subtotal reaches FreeThreshold.
type ShippingPolicy struct {
	Fee           int64
	FreeThreshold int64
}

func (p ShippingPolicy) FeeFor(subtotal int64) int64 {
	if subtotal >= p.FreeThreshold {
		return 0
	}
	return p.Fee
}

type CatalogService struct {
	store    CatalogStore
	shipping ShippingPolicy
	logger   *slog.Logger
}

func NewCatalogService(store CatalogStore, shipping ShippingPolicy, logger *slog.Logger) *CatalogService {
	return &CatalogService{store: store, shipping: shipping, logger: logger}
}

func (s *CatalogService) ListProducts(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	switch q.Sort {
	case "", SortDefault, SortPriceAsc, SortPriceDesc, SortName:
	default:
		return nil, invalidInput("unknown sort order " + strconv.Quote(q.Sort))
	}

	products, err := s.store.ListProducts(ctx, models.ProductFilter{Category: q.Category, Search: q.Search})
	if err != nil {
		s.logger.Error("list products failed", "error", err)
		return nil, unexpected("failed to fetch products", err)
	}
	sortProducts(products, q.Sort)
	return products, nil
}

func sortProducts(products []models.Product, order string) {
	switch order {
	case SortPriceAsc:
		sort.SliceStable(products, func(i, j int) bool { return products[i].Price < products[j].Price })
	case SortPriceDesc:
		sort.SliceStable(products, func(i, j int) bool { return products[i].Price > products[j].Price })
	case SortName:
		// Collator is not safe for concurrent use, so build one per call.
		c := collate.New(language.Japanese)
		sort.SliceStable(products, func(i, j int) bool {
			return c.CompareString(products[i].Title, products[j].Title) < 0
		})
	}
}

// GetProduct looks up a product by its raw path id. A non-numeric id is a
// client error distinct from a storage failure.
func (s *CatalogService) GetProduct(ctx context.Context, rawID string) (models.Product, error) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return models.Product{}, invalidInput("invalid product id")
	}
	p, err := s.store.GetProduct(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return models.Product{}, notFound("product not found")
	}
	if err != nil {
		s.logger.Error("get product failed", "product_id", id, "error", err)
		return models.Product{}, unexpected("failed to fetch product", err)
	}
	return p, nil
}

type QuoteLine struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type Quote struct {
	Items       []models.CartLine `json:"items"`
	Subtotal    int64             `json:"subtotal"`
	ShippingFee int64             `json:"shippingFee"`
	Total       int64             `json:"total"`
	TotalItems  int               `json:"totalItems"`
}

// QuoteCart rebuilds a cart from product ids against live catalog data.
// Quantities are clamped to current stock and zero-stock products drop out,
// exactly as the client-side cart would treat them.
func (s *CatalogService) QuoteCart(ctx context.Context, lines []QuoteLine) (Quote, error) {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.store.GetProducts(ctx, ids)
	if err != nil {
		s.logger.Error("quote cart failed", "error", err)
		return Quote{}, unexpected("failed to fetch products", err)
	}

	// lines for the same product accumulate
	var order []int64
	wanted := make(map[int64]int, len(lines))
	for _, l := range lines {
		if _, ok := products[l.ProductID]; !ok {
			return Quote{}, notFound("product " + strconv.FormatInt(l.ProductID, 10) + " not found")
		}
		if _, seen := wanted[l.ProductID]; !seen {
			order = append(order, l.ProductID)
		}
		wanted[l.ProductID] += l.Quantity
	}

	c := cart.New()
	for _, id := range order {
		c.AddItem(products[id])
		c.SetQuantity(id, wanted[id])
	}

	subtotal := c.TotalPrice()
	fee := int64(0)
	if c.Len() > 0 {
		fee = s.shipping.FeeFor(subtotal)
	}
	return Quote{
		Items:       c.Lines(),
		Subtotal:    subtotal,
		ShippingFee: fee,
		Total:       subtotal + fee,
		TotalItems:  c.TotalItems(),
	}, nil
}
