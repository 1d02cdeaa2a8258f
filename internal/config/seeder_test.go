package config

import (
	"context"
	"testing"

	"sacco-backend/internal/adapters/persistence/memory"
	"sacco-backend/internal/pkg/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestSeeder_CreatesAdminOnce(t *testing.T) {
	password.Cost = bcrypt.MinCost
	t.Setenv("ADMIN_PHONE", "0700000001")
	t.Setenv("ADMIN_PASSWORD", "admin12345")

	ctx := context.Background()
	store := memory.New()
	seeder := NewSeeder(store, zap.NewNop())

	require.NoError(t, seeder.Run(ctx))
	require.NoError(t, seeder.Run(ctx))

	admin, err := store.Members().GetByPhone(ctx, "0700000001")
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", admin.Role)
	assert.True(t, admin.Approved)
	assert.True(t, admin.IsActive)
	assert.True(t, password.Verify("admin12345", admin.Password))

	bal, err := store.Balances().GetByMemberID(ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, bal.Balance.IsZero())

	_, total, err := store.Members().List(ctx, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestSeeder_SkipsWithoutCredentials(t *testing.T) {
	t.Setenv("ADMIN_PHONE", "")
	t.Setenv("ADMIN_PASSWORD", "")

	store := memory.New()
	require.NoError(t, NewSeeder(store, zap.NewNop()).Run(context.Background()))

	_, total, err := store.Members().List(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSeeder_RejectsWeakPassword(t *testing.T) {
	t.Setenv("ADMIN_PHONE", "0700000002")
	t.Setenv("ADMIN_PASSWORD", "short")

	store := memory.New()
	require.NoError(t, NewSeeder(store, zap.NewNop()).Run(context.Background()))

	_, total, err := store.Members().List(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}
