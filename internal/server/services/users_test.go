package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/common"
	"github.com/dmitrijs2005/herdsync/internal/server/auth"
	"github.com/dmitrijs2005/herdsync/internal/server/metrics"
	"github.com/dmitrijs2005/herdsync/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func newUserService(t *testing.T) (*UserService, *repomanager.MemoryRepositoryManager) {
	t.Helper()
	rm := repomanager.NewMemoryRepositoryManager()
	return NewUserService(rm, testSecret, time.Hour, metrics.New()), rm
}

func TestUserService_RegisterIssuesToken(t *testing.T) {
	ctx := context.Background()
	s, rm := newUserService(t)

	token, err := s.Register(ctx, " Alice ", "Alice@Example.com", "secret123")
	require.NoError(t, err)

	userID, err := auth.GetUserIDFromToken(token, testSecret)
	require.NoError(t, err)

	u, err := rm.Users().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)
	assert.Equal(t, "Alice", u.Name)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEmpty(t, u.Salt)
	assert.NotEmpty(t, u.Verifier)
}

func TestUserService_RegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s, _ := newUserService(t)

	_, err := s.Register(ctx, "a", "a@example.com", "secret123")
	require.NoError(t, err)

	_, err = s.Register(ctx, "b", "A@EXAMPLE.COM", "other-secret")
	require.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestUserService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	s, _ := newUserService(t)

	tests := []struct {
		name, user, email, password string
	}{
		{"missing name", "", "a@example.com", "secret123"},
		{"bad email", "a", "not-an-email", "secret123"},
		{"short password", "a", "a@example.com", "123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(ctx, tt.user, tt.email, tt.password)
			require.ErrorIs(t, err, common.ErrorValidation)
		})
	}
}

func TestUserService_Authenticate(t *testing.T) {
	ctx := context.Background()
	s, _ := newUserService(t)

	regToken, err := s.Register(ctx, "a", "a@example.com", "secret123")
	require.NoError(t, err)
	regUser, err := auth.GetUserIDFromToken(regToken, testSecret)
	require.NoError(t, err)

	token, err := s.Authenticate(ctx, "A@example.com ", "secret123")
	require.NoError(t, err)
	userID, err := auth.GetUserIDFromToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, regUser, userID)

	_, err = s.Authenticate(ctx, "a@example.com", "wrong-password")
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = s.Authenticate(ctx, "nobody@example.com", "secret123")
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = s.Authenticate(ctx, "", "")
	require.ErrorIs(t, err, common.ErrorValidation)
}
