package services

import (
	"context"
	"testing"
	"time"

	"sacco-backend/internal/adapters/persistence/models"
	"sacco-backend/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDashboard_Summary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.newMember(t, domain.RoleMember)
	admin := actorOf(f.newMember(t, domain.RoleAdmin))

	_, err := f.members.Register(ctx, validRegistration())
	require.NoError(t, err)

	f.fund(t, alice, admin, "1000.50")
	e, err := f.txs.Create(ctx, actorOf(alice), &CreateTransactionInput{Type: "emergency", Amount: dec("0.50")})
	require.NoError(t, err)
	_, err = f.txs.Approve(ctx, admin, e.ID)
	require.NoError(t, err)
	_, err = f.txs.Create(ctx, actorOf(alice), &CreateTransactionInput{Type: "deposit", Amount: dec("5")})
	require.NoError(t, err)

	_, err = f.loans.Request(ctx, actorOf(alice), &LoanRequestInput{Amount: dec("300"), PeriodMonths: 3})
	require.NoError(t, err)
	_, err = f.loans.Request(ctx, actorOf(alice), &LoanRequestInput{Amount: dec("200"), PeriodMonths: 3})
	require.NoError(t, err)

	_, err = f.dashboard.Summary(ctx, actorOf(alice))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	sum, err := f.dashboard.Summary(ctx, admin)
	require.NoError(t, err)
	assert.EqualValues(t, 3, sum.TotalMembers)
	assert.EqualValues(t, 1, sum.PendingMembers)
	assert.Equal(t, "1000.00", sum.TotalSavings)
	assert.Equal(t, "0.50", sum.TotalEmergencyFund)
	assert.EqualValues(t, 1, sum.PendingTransactions)
	require.Len(t, sum.Loans, 1)
	assert.Equal(t, "waiting", sum.Loans[0].Status)
	assert.EqualValues(t, 2, sum.Loans[0].Count)
	assert.Equal(t, "500.00", sum.Loans[0].Principal)
}

func TestCron_CleanupPurgesExpiredTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.newMember(t, domain.RoleMember)

	require.NoError(t, f.store.RefreshTokens().Create(ctx, &models.RefreshToken{
		MemberID:  m.ID,
		TokenHash: "expired",
		ExpiresAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, f.store.RefreshTokens().Create(ctx, &models.RefreshToken{
		MemberID:  m.ID,
		TokenHash: "live",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	sender := &captureSender{}
	resets, clk := newResetService(f, sender)
	require.NoError(t, resets.Issue(ctx, m.Phone))
	clk.Advance(time.Hour)

	cron := NewCronService(f.store, resets, "@every 1m", zap.NewNop())
	cron.Cleanup()

	_, err := f.store.RefreshTokens().GetByTokenHash(ctx, "expired")
	assert.Error(t, err)
	_, err = f.store.RefreshTokens().GetByTokenHash(ctx, "live")
	assert.NoError(t, err)

	_, err = resets.Verify(ctx, m.Phone, sender.code(m.ID))
	assert.ErrorIs(t, err, domain.ErrResetTokenNotFound)
}

func TestCron_StartRejectsBadSchedule(t *testing.T) {
	f := newFixture(t)

	cron := NewCronService(f.store, nil, "not a schedule", zap.NewNop())
	assert.Error(t, cron.Start())

	ok := NewCronService(f.store, nil, "@every 1h", zap.NewNop())
	require.NoError(t, ok.Start())
	ok.Stop()
}
