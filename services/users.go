package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"storefront-service/database"
	"storefront-service/models"
)

const (
	MinPasswordLength = 6

	// bcrypt rejects longer inputs.
	maxPasswordBytes = 72
	bcryptCost       = 10
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	FindUserByID(ctx context.Context, id int64) (models.User, error)
}

type UserService struct {
	store    UserStore
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

func NewUserService(store UserStore, logger *slog.Logger) *UserService {
	return &UserService{
		store:    store,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// Register creates a user with a bcrypt hash of password. The plaintext is
// never stored.
func (s *UserService) Register(ctx context.Context, name, email, password string) (models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.User{}, invalidInput("email and password are required")
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return models.User{}, invalidInput("a valid email address is required")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return models.User{}, invalidInput("password must be at least 6 characters")
	}
	if len(password) > maxPasswordBytes {
		return models.User{}, invalidInput("password must be at most 72 bytes")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return models.User{}, unexpected("registration failed", err)
	}
	u := models.User{
		Email:     email,
		Name:      strings.TrimSpace(name),
		Password:  string(hash),
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			return models.User{}, &Error{Kind: KindConflict, Message: "email is already registered"}
		}
		s.logger.Error("create user failed", "error", err)
		return models.User{}, unexpected("registration failed", err)
	}
	return u, nil
}

// Authenticate returns the user when the credentials match. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	if email == "" || password == "" {
		return models.User{}, ErrUnauthenticated
	}
	u, err := s.store.FindUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, database.ErrNotFound) {
		return models.User{}, ErrUnauthenticated
	}
	if err != nil {
		s.logger.Error("find user failed", "error", err)
		return models.User{}, unexpected("login failed", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return models.User{}, ErrUnauthenticated
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (models.User, error) {
	if id == 0 {
		return models.User{}, ErrUnauthenticated
	}
	u, err := s.store.FindUserByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return models.User{}, notFound("user not found")
	}
	if err != nil {
		s.logger.Error("find user failed", "user_id", id, "error", err)
		return models.User{}, unexpected("failed to fetch user", err)
	}
	return u, nil
}
