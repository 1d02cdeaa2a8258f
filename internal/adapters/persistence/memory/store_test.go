package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"sacco-backend/internal/adapters/persistence/models"
	"sacco-backend/internal/adapters/persistence/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestWithinTransaction_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()

	member := &models.Member{FirstName: "Ann", LastName: "Wanjiru", Phone: "0700000001"}
	require.NoError(t, s.Members().Create(ctx, member))

	boom := errors.New("boom")
	err := s.WithinTransaction(ctx, func(tx repositories.Store) error {
		require.NoError(t, tx.Balances().Create(ctx, &models.Balance{MemberID: member.ID, Balance: decimal.NewFromInt(10)}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Balances().GetByMemberID(ctx, member.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestWithinTransaction_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.WithinTransaction(ctx, func(tx repositories.Store) error {
		return tx.Balances().Create(ctx, &models.Balance{MemberID: 7, Balance: decimal.NewFromInt(25), LastEdited: time.Now()})
	})
	require.NoError(t, err)

	b, err := s.Balances().GetByMemberID(ctx, 7)
	require.NoError(t, err)
	assert.True(t, b.Balance.Equal(decimal.NewFromInt(25)))
}

func TestUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Members().Create(ctx, &models.Member{Phone: "0711"}))
	assert.ErrorIs(t, s.Members().Create(ctx, &models.Member{Phone: "0711"}), gorm.ErrDuplicatedKey)

	require.NoError(t, s.ResetTokens().Create(ctx, &models.PasswordResetToken{MemberID: 1, Code: "123456"}))
	assert.ErrorIs(t, s.ResetTokens().Create(ctx, &models.PasswordResetToken{MemberID: 1, Code: "654321"}), gorm.ErrDuplicatedKey)

	require.NoError(t, s.Guarantors().Create(ctx, &models.LoanGuarantor{LoanID: 3, MemberID: 4}))
	assert.ErrorIs(t, s.Guarantors().Create(ctx, &models.LoanGuarantor{LoanID: 3, MemberID: 4}), gorm.ErrDuplicatedKey)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	m := &models.Member{Phone: "0722", FirstName: "Before"}
	require.NoError(t, s.Members().Create(ctx, m))

	got, err := s.Members().GetByID(ctx, m.ID)
	require.NoError(t, err)
	got.FirstName = "After"

	again, err := s.Members().GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Before", again.FirstName)
}

func TestTransactionList_FiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, typ := range []string{"deposit", "withdrawal", "deposit"} {
		require.NoError(t, s.Transactions().Create(ctx, &models.Transaction{
			MemberID: 1,
			Type:     typ,
			Status:   "pending",
			Amount:   decimal.NewFromInt(int64(i + 1)),
			Date:     base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, s.Transactions().Create(ctx, &models.Transaction{MemberID: 2, Type: "deposit", Status: "pending", Date: base}))

	member := uint(1)
	txs, total, err := s.Transactions().List(ctx, repositories.TransactionFilter{MemberID: &member, Type: "deposit"}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, txs, 2)
	assert.True(t, txs[0].Date.After(txs[1].Date))

	txs, total, err = s.Transactions().List(ctx, repositories.TransactionFilter{}, 3, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, txs, 1)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Members().Create(ctx, &models.Member{Phone: "1", Approved: true}))
	require.NoError(t, s.Members().Create(ctx, &models.Member{Phone: "2"}))
	require.NoError(t, s.Balances().Create(ctx, &models.Balance{MemberID: 1, Balance: decimal.RequireFromString("100.50")}))
	require.NoError(t, s.Balances().Create(ctx, &models.Balance{MemberID: 2, Balance: decimal.RequireFromString("0.50")}))
	require.NoError(t, s.Loans().Create(ctx, &models.Loan{MemberID: 1, Amount: decimal.NewFromInt(300), Status: "waiting"}))
	require.NoError(t, s.Loans().Create(ctx, &models.Loan{MemberID: 2, Amount: decimal.NewFromInt(200), Status: "waiting"}))

	sum, err := s.Reports().Summary(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, sum.TotalMembers)
	assert.EqualValues(t, 1, sum.PendingMembers)
	assert.Equal(t, "101.00", sum.TotalSavings.StringFixed(2))
	require.Len(t, sum.Loans, 1)
	assert.EqualValues(t, 2, sum.Loans[0].Count)
	assert.Equal(t, "500.00", sum.Loans[0].Principal.StringFixed(2))
}
