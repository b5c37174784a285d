package security

import (
	"context"
	"testing"
	"time"

	"rental-car-dashboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	t.Run("Round trip", func(t *testing.T) {
		token, err := tm.GenerateAccessToken(42, "ops@example.com", domain.RoleManager)
		require.NoError(t, err)

		claims, err := tm.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, int32(42), claims.UserID)
		assert.Equal(t, domain.RoleManager, claims.Role)
		assert.Equal(t, domain.Actor{UserID: 42, Email: "ops@example.com", Role: domain.RoleManager}, claims.Actor())
	})

	t.Run("Unknown role", func(t *testing.T) {
		_, err := tm.GenerateAccessToken(1, "", domain.Role("ROOT"))
		assert.Error(t, err)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		token, err := NewTokenManager("other", time.Hour).GenerateAccessToken(1, "", domain.RoleStaff)
		require.NoError(t, err)
		_, err = tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		past := &tokenManager{secret: []byte("test-secret"), ttl: time.Minute, now: func() time.Time {
			return time.Now().Add(-time.Hour)
		}}
		token, err := past.GenerateAccessToken(1, "", domain.RoleStaff)
		require.NoError(t, err)
		_, err = tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := tm.ValidateToken("not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestActorContext(t *testing.T) {
	_, ok := ActorFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithActor(context.Background(), domain.Actor{UserID: 7, Role: domain.RoleStaff})
	actor, ok := ActorFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, int32(7), actor.UserID)
}
