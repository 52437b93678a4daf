package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/DukeRupert/proforma/internal/domain"
	"github.com/DukeRupert/proforma/internal/session"
)

func newTestAuth(t *testing.T) (AuthService, *session.Store) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("marble-2026"), bcrypt.MinCost)
	require.NoError(t, err)

	store := session.NewStore(time.Hour, testLogger())
	svc := NewAuthService(Credential{Username: "admin", PasswordHash: string(hash)}, store, testLogger())
	return svc, store
}

func TestAuthService_Login(t *testing.T) {
	svc, store := newTestAuth(t)
	ctx := context.Background()

	token, err := svc.Login(ctx, " admin ", "marble-2026")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, 1, store.Len())

	sess, ok := svc.Session(ctx, token)
	require.True(t, ok)
	assert.Equal(t, "admin", sess.Username)
	assert.NotNil(t, sess.Workspace)

	svc.Logout(ctx, token)
	_, ok = svc.Session(ctx, token)
	assert.False(t, ok)
	svc.Logout(ctx, token)
}

func TestAuthService_Login_Failures(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantCode string
	}{
		{"wrong password", "admin", "granite", domain.EUNAUTHORIZED},
		{"unknown user", "root", "marble-2026", domain.EUNAUTHORIZED},
		{"empty password", "admin", "", domain.EINVALID},
		{"empty username", "  ", "marble-2026", domain.EINVALID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestAuth(t)

			_, err := svc.Login(context.Background(), tt.username, tt.password)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestAuthService_Login_NoPasswordConfigured(t *testing.T) {
	store := session.NewStore(time.Hour, testLogger())
	svc := NewAuthService(Credential{Username: "admin"}, store, testLogger())

	_, err := svc.Login(context.Background(), "admin", "anything")
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("marble-2026")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("marble-2026")))
}
