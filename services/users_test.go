package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"storefront-service/database"
)

func TestRegister(t *testing.T) {
	store := database.NewMemoryStore()
	svc := NewUserService(store, discardLogger())
	ctx := context.Background()

	_, err := svc.Register(ctx, "Taro", "taro@example.com", "abc12")
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = svc.Register(ctx, "Taro", "not-an-email", "abc123")
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = svc.Register(ctx, "Taro", "", "abc123")
	assert.Equal(t, KindInvalidInput, KindOf(err))

	u, err := svc.Register(ctx, " Taro ", "taro@example.com", "abc123")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "Taro", u.Name)

	stored, err := store.FindUserByEmail(ctx, "taro@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "abc123", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("abc123")))

	_, err = svc.Register(ctx, "Other", "taro@example.com", "zzz999")
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestRegisterPasswordLength(t *testing.T) {
	svc := NewUserService(database.NewMemoryStore(), discardLogger())
	ctx := context.Background()

	// Three runes, nine bytes.
	_, err := svc.Register(ctx, "Hana", "hana@example.com", "あいう")
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = svc.Register(ctx, "Hana", "hana@example.com", strings.Repeat("a", 73))
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = svc.Register(ctx, "Hana", "hana@example.com", "あいうえおか")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Ken", "ken@example.com", strings.Repeat("a", 72))
	require.NoError(t, err)
}

func TestAuthenticate(t *testing.T) {
	svc := NewUserService(database.NewMemoryStore(), discardLogger())
	ctx := context.Background()
	created, err := svc.Register(ctx, "Taro", "taro@example.com", "abc123")
	require.NoError(t, err)

	u, err := svc.Authenticate(ctx, "taro@example.com", "abc123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	_, err = svc.Authenticate(ctx, "taro@example.com", "wrong1")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "abc123")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Authenticate(ctx, "", "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "taro@example.com", got.Email)

	_, err = svc.Get(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
