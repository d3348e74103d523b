package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-service/models"
)

// CreateUser inserts u and sets its ID. A taken email yields ErrDuplicateKey.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (email, name, password, created_at) VALUES (?, ?, ?, ?)",
		u.Email, u.Name, u.Password, u.CreatedAt,
	)
	if isDuplicate(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = id
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findUser(ctx, "email = ?", email)
}

func (s *Store) FindUserByID(ctx context.Context, id int64) (models.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *Store) findUser(ctx context.Context, cond string, arg any) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, name, password, created_at FROM users WHERE "+cond, arg,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Password, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}
