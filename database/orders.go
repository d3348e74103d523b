package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-service/models"
)

// InOrderTx runs fn in one transaction. The transaction commits only when fn
// returns nil; any error or panic rolls it back.
func (s *Store) InOrderTx(ctx context.Context, fn func(OrderTx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	if err = fn(&sqlOrderTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type execQuerier interface {
	querier
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type sqlOrderTx struct {
	tx *sql.Tx
}

func (t *sqlOrderTx) LockProducts(ctx context.Context, ids []int64) (map[int64]models.Product, error) {
	return queryProducts(ctx, t.tx, ids, true)
}

func (t *sqlOrderTx) InsertOrder(ctx context.Context, rec models.OrderRecord) error {
	return insertOrder(ctx, t.tx, rec)
}

func (t *sqlOrderTx) DecrementStock(ctx context.Context, productID int64, qty int) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?",
		qty, productID, qty,
	)
	if err != nil {
		return false, fmt.Errorf("decrement stock of %d: %w", productID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement stock of %d: %w", productID, err)
	}
	return n == 1, nil
}

func insertOrder(ctx context.Context, db execQuerier, rec models.OrderRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, items, shipping_info, total_price, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.UserID, rec.Items, rec.ShippingInfo, rec.TotalPrice, string(rec.Status), rec.CreatedAt)
	if isDuplicate(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("insert order %s: %w", rec.ID, err)
	}
	return nil
}

// InsertOrder stores an order outside of any stock transaction. It is the
// creation route for orders confirmed by the payment gateway.
func (s *Store) InsertOrder(ctx context.Context, rec models.OrderRecord) error {
	return insertOrder(ctx, s.db, rec)
}

// ListOrderRecords returns the raw rows of a user's orders, newest first.
func (s *Store) ListOrderRecords(ctx context.Context, userID int64) ([]models.OrderRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, items, shipping_info, total_price, status, created_at
		FROM orders
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	records := []models.OrderRecord{}
	for rows.Next() {
		var (
			rec    models.OrderRecord
			status string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Items, &rec.ShippingInfo,
			&rec.TotalPrice, &status, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		rec.Status = models.OrderStatus(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return records, nil
}
