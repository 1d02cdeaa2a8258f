package repositories

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"sacco-backend/internal/adapters/persistence/models"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockStore(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		DisableAutomaticPing:   true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)

	return NewStore(gdb), mock
}

// matchSQL matches the fragments in order with anything in between
func matchSQL(fragments ...string) string {
	quoted := make([]string, len(fragments))
	for i, f := range fragments {
		quoted[i] = regexp.QuoteMeta(f)
	}
	return strings.Join(quoted, ".*")
}

func TestWithinTransaction_CommitsOnSuccess(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(matchSQL("UPDATE `balances` SET `balance`=?,`last_edited`=? WHERE id = ?")).
		WithArgs("75.5", sqlmock.AnyArg(), 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTransaction(ctx, func(tx Store) error {
		return tx.Balances().Update(ctx, &models.Balance{ID: 4, Balance: decimal.RequireFromString("75.50"), LastEdited: time.Now()})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTransaction_RollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(matchSQL("DELETE FROM `password_reset_tokens` WHERE member_id = ?")).
		WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := store.WithinTransaction(ctx, func(tx Store) error {
		if err := tx.ResetTokens().DeleteByMemberID(ctx, 9); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTransaction_TranslatesDuplicateKey(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(matchSQL("DELETE FROM `password_reset_tokens` WHERE member_id = ?")).
		WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(matchSQL("INSERT INTO `password_reset_tokens`")).
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry '9' for key 'member_id'"})
	mock.ExpectRollback()

	err := store.WithinTransaction(ctx, func(tx Store) error {
		if err := tx.ResetTokens().DeleteByMemberID(ctx, 9); err != nil {
			return err
		}
		return tx.ResetTokens().Create(ctx, &models.PasswordResetToken{MemberID: 9, Code: "123456", CreatedAt: time.Now()})
	})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockingReadsUseForUpdate(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(matchSQL("SELECT * FROM `members` WHERE id = ?", "FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "phone", "role", "approved", "is_active"}).
			AddRow(3, "0711000003", "MEMBER", true, true))
	mock.ExpectQuery(matchSQL("SELECT * FROM `balances` WHERE member_id = ?", "FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "member_id", "balance", "last_edited"}).
			AddRow(8, 3, "120.00", now))
	mock.ExpectQuery(matchSQL("SELECT * FROM `password_reset_tokens` WHERE member_id = ?", "FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "member_id", "code", "attempts", "created_at"}).
			AddRow(11, 3, "482913", 2, now))
	mock.ExpectExec(matchSQL("UPDATE `password_reset_tokens` SET `attempts`=? WHERE id = ?")).
		WithArgs(3, 11).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTransaction(ctx, func(tx Store) error {
		member, err := tx.Members().GetByIDForUpdate(ctx, 3)
		require.NoError(t, err)
		assert.True(t, member.IsActive)

		bal, err := tx.Balances().GetByMemberIDForUpdate(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "120.00", bal.Balance.StringFixed(2))

		token, err := tx.ResetTokens().GetByMemberIDForUpdate(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, 2, token.Attempts)

		return tx.ResetTokens().UpdateAttempts(ctx, token.ID, token.Attempts+1)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockingRead_NotFound(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(matchSQL("SELECT * FROM `loans` WHERE id = ?", "FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Loans().GetByIDForUpdate(ctx, 404)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportSummary(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(matchSQL("SELECT count(*) FROM `members`")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(matchSQL("SELECT count(*) FROM `members` WHERE approved = ?")).
		WithArgs(false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(matchSQL("SELECT COALESCE(SUM(balance), 0) AS total FROM `balances`")).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow("15250.75"))
	mock.ExpectQuery(matchSQL("SELECT COALESCE(SUM(amount), 0) AS total FROM `emergency_funds`")).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow("0"))
	mock.ExpectQuery(matchSQL("SELECT count(*) FROM `transactions` WHERE status = ?")).
		WithArgs("pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery(matchSQL("SELECT status, COUNT(*) as count, COALESCE(SUM(amount), 0) as principal FROM `loans`", "GROUP BY status", "ORDER BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count", "principal"}).
			AddRow("performing", 3, "45000.00").
			AddRow("waiting", 1, "5000.00"))

	s, err := store.Reports().Summary(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 12, s.TotalMembers)
	assert.EqualValues(t, 2, s.PendingMembers)
	assert.Equal(t, "15250.75", s.TotalSavings.StringFixed(2))
	assert.Equal(t, "0.00", s.TotalEmergencyFund.StringFixed(2))
	assert.EqualValues(t, 4, s.PendingTransactions)
	require.Len(t, s.Loans, 2)
	assert.Equal(t, "performing", s.Loans[0].Status)
	assert.EqualValues(t, 3, s.Loans[0].Count)
	assert.Equal(t, "45000.00", s.Loans[0].Principal.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListGuaranteedBy(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	requested := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(matchSQL(
		"FROM `loans` JOIN loan_guarantors ON loan_guarantors.loan_id = loans.id",
		"WHERE loan_guarantors.member_id = ?",
		"ORDER BY loans.date_requested DESC",
	)).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "member_id", "amount", "interest_rate", "period_months", "status", "date_requested"}).
			AddRow(21, 2, "6000.00", "1.50", 6, "performing", requested))

	loans, err := store.Loans().ListGuaranteedBy(ctx, 5)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.EqualValues(t, 21, loans[0].ID)
	assert.EqualValues(t, 2, loans[0].MemberID)
	assert.Equal(t, "6000.00", loans[0].Amount.StringFixed(2))
	assert.Equal(t, 6, loans[0].PeriodMonths)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectPing()
	assert.NoError(t, store.Ping(ctx))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Error(t, store.Ping(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}
