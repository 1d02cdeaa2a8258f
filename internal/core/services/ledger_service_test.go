package services

import (
	"context"
	"errors"
	"testing"

	"sacco-backend/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestLedger_CreditDebitNeverNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		m := f.newMember(t, domain.RoleMember)
		ctx := context.Background()

		expected := decimal.Zero
		ops := rapid.IntRange(1, 30).Draw(rt, "ops")
		for i := 0; i < ops; i++ {
			cents := rapid.Int64Range(1, 500000).Draw(rt, "cents")
			amount := decimal.New(cents, -2)

			if rapid.Bool().Draw(rt, "credit") {
				got, err := f.ledger.Credit(ctx, m.ID, amount)
				if err != nil {
					rt.Fatalf("credit %s: %v", amount, err)
				}
				expected = expected.Add(amount)
				if !got.Equal(expected) {
					rt.Fatalf("credit: got %s want %s", got, expected)
				}
				continue
			}

			got, err := f.ledger.Debit(ctx, m.ID, amount)
			if amount.GreaterThan(expected) {
				if !errors.Is(err, domain.ErrInsufficientFunds) {
					rt.Fatalf("debit %s from %s: want insufficient funds, got %v", amount, expected, err)
				}
			} else {
				if err != nil {
					rt.Fatalf("debit %s: %v", amount, err)
				}
				expected = expected.Sub(amount)
				if !got.Equal(expected) {
					rt.Fatalf("debit: got %s want %s", got, expected)
				}
			}

			bal, err := f.store.Balances().GetByMemberID(ctx, m.ID)
			if err != nil {
				rt.Fatalf("get balance: %v", err)
			}
			if bal.Balance.IsNegative() {
				rt.Fatalf("balance went negative: %s", bal.Balance)
			}
			if !bal.Balance.Equal(expected) {
				rt.Fatalf("stored balance %s want %s", bal.Balance, expected)
			}
		}
	})
}

func TestLedger_RejectsInvalidAmounts(t *testing.T) {
	f := newFixture(t)
	m := f.newMember(t, domain.RoleMember)
	ctx := context.Background()

	for _, amount := range []string{"0", "-5", "1.005"} {
		_, err := f.ledger.Credit(ctx, m.ID, dec(amount))
		assert.ErrorIs(t, err, domain.ErrInvalidAmount, amount)

		_, err = f.ledger.Debit(ctx, m.ID, dec(amount))
		assert.ErrorIs(t, err, domain.ErrInvalidAmount, amount)
	}

	assert.Equal(t, "0.00", f.balanceOf(t, m.ID).Balance)
}

func TestLedger_UnknownMember(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.Credit(context.Background(), 4242, dec("10"))
	assert.ErrorIs(t, err, domain.ErrBalanceNotFound)

	_, err = f.ledger.GetBalance(context.Background(), 4242)
	assert.ErrorIs(t, err, domain.ErrBalanceNotFound)
}

func TestLedger_GetBalanceRendersTwoDecimals(t *testing.T) {
	f := newFixture(t)
	m := f.newMember(t, domain.RoleMember)

	_, err := f.ledger.Credit(context.Background(), m.ID, dec("12.5"))
	require.NoError(t, err)

	bal := f.balanceOf(t, m.ID)
	assert.Equal(t, "12.50", bal.Balance)
	assert.Equal(t, "0.00", bal.EmergencyFund)
	assert.Equal(t, m.ID, bal.MemberID)
}
