package account

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kalambet/ainoter/internal/storage"
	"github.com/kalambet/ainoter/internal/validation"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	s, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewManagerWithCost(s, bcrypt.MinCost)
}

func TestRegisterAndLogin(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	acc, err := m.Register(ctx, "  alice ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", acc.Username)
	assert.NotZero(t, acc.ID)

	got, err := m.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestRegisterDuplicate(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.Register(ctx, "alice", "a")
	require.NoError(t, err)
	_, err = m.Register(ctx, "alice", "b")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegisterValidation(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		field    string
	}{
		{"blank username", "   ", "pw", "username"},
		{"long username", strings.Repeat("a", 65), "pw", "username"},
		{"empty password", "bob", "", "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Register(ctx, tt.username, tt.password)
			var ve *validation.Error
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	_, err := m.Register(ctx, "alice", "right")
	require.NoError(t, err)

	_, errWrong := m.Login(ctx, "alice", "wrong")
	_, errUnknown := m.Login(ctx, "mallory", "right")
	assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.Equal(t, errWrong.Error(), errUnknown.Error())
}
