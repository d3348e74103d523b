package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"storefront-service/config"
	"storefront-service/models"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// OrderTx is the unit of work used to place an order. Every call on it runs
// inside the same storage transaction.
type OrderTx interface {
	// LockProducts reads the given products and holds their rows until the
	// transaction ends. Missing ids are absent from the result.
	LockProducts(ctx context.Context, ids []int64) (map[int64]models.Product, error)
	InsertOrder(ctx context.Context, rec models.OrderRecord) error
	// DecrementStock reports false when the product has less than qty left.
	DecrementStock(ctx context.Context, productID int64, qty int) (bool, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id BIGINT PRIMARY KEY,
	title VARCHAR(255) NOT NULL,
	price BIGINT NOT NULL,
	description TEXT NOT NULL,
	image_url VARCHAR(512) NOT NULL DEFAULT '',
	category VARCHAR(32) NOT NULL,
	stock INT NOT NULL DEFAULT 0,
	CHECK (stock >= 0)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

CREATE TABLE IF NOT EXISTS users (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	email VARCHAR(255) NOT NULL UNIQUE,
	name VARCHAR(255) NOT NULL DEFAULT '',
	password VARCHAR(255) NOT NULL,
	created_at DATETIME(3) NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

CREATE TABLE IF NOT EXISTS orders (
	id VARCHAR(64) PRIMARY KEY,
	user_id BIGINT NOT NULL,
	items JSON NOT NULL,
	shipping_info JSON NOT NULL,
	total_price BIGINT NOT NULL,
	status VARCHAR(16) NOT NULL,
	created_at DATETIME(3) NOT NULL,
	INDEX idx_orders_user_created (user_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
`

// Open connects to MySQL with the pool limits used by the service.
func Open(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPassword
	mc.Net = "tcp"
	mc.Addr = cfg.DBHost + ":" + cfg.DBPort
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.MultiStatements = true
	mc.Params = map[string]string{"charset": "utf8mb4"}

	db, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

// Store is the MySQL-backed implementation of every storage operation the
// services need.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
