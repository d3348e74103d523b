package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront-service/models"
)

const productColumns = "id, title, price, description, image_url, category, stock"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(r rowScanner) (models.Product, error) {
	var p models.Product
	var category string
	if err := r.Scan(&p.ID, &p.Title, &p.Price, &p.Description, &p.ImageURL, &category, &p.Stock); err != nil {
		return models.Product{}, err
	}
	p.Category = models.Category(category)
	return p, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListProducts returns the products matching f in ascending id order.
func (s *Store) ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	query := "SELECT " + productColumns + " FROM products"
	var (
		conds []string
		args  []any
	)
	if f.Category != "" && f.Category != models.CategoryAll {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.Search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(f.Search)) + "%"
		conds = append(conds, "(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)")
		args = append(args, pattern, pattern)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (models.Product, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, ErrNotFound
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// GetProducts reads several products without locking. Missing ids are
// absent from the result.
func (s *Store) GetProducts(ctx context.Context, ids []int64) (map[int64]models.Product, error) {
	return queryProducts(ctx, s.db, ids, false)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryProducts(ctx context.Context, q querier, ids []int64, lock bool) (map[int64]models.Product, error) {
	out := make(map[int64]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := "SELECT " + productColumns + " FROM products WHERE id IN (" + placeholders + ") ORDER BY id ASC"
	if lock {
		query += " FOR UPDATE"
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	return out, nil
}

// SeedProducts upserts the given catalog.
func (s *Store) SeedProducts(ctx context.Context, products []models.Product) error {
	for _, p := range products {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO products (id, title, price, description, image_url, category, stock)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE title = VALUES(title), price = VALUES(price),
				description = VALUES(description), image_url = VALUES(image_url),
				category = VALUES(category), stock = VALUES(stock)
		`, p.ID, p.Title, p.Price, p.Description, p.ImageURL, string(p.Category), p.Stock)
		if err != nil {
			return fmt.Errorf("seed product %d: %w", p.ID, err)
		}
	}
	return nil
}
