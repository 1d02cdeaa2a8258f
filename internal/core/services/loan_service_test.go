package services

import (
	"context"
	"testing"

	"sacco-backend/internal/core/domain"
	"sacco-backend/internal/pkg/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoan_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	borrower := f.newMember(t, domain.RoleMember)
	treasurer := actorOf(f.newMember(t, domain.RoleTreasurer))

	loan, err := f.loans.Request(ctx, actorOf(borrower), &LoanRequestInput{Amount: dec("12000"), PeriodMonths: 12, Purpose: " school fees "})
	require.NoError(t, err)
	assert.Equal(t, "waiting", loan.Status)
	assert.Equal(t, "2.00", loan.InterestRate.StringFixed(2))
	assert.Equal(t, "school fees", loan.Purpose)

	approved, err := f.loans.Approve(ctx, treasurer, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, "performing", approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, treasurer.ID, *approved.ApprovedBy)
	assert.NotNil(t, approved.DateApproved)

	// approval does not disburse
	assert.Equal(t, "0.00", f.balanceOf(t, borrower.ID).Balance)

	_, err = f.loans.Approve(ctx, treasurer, loan.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
	_, err = f.loans.Reject(ctx, treasurer, loan.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)

	paid, err := f.loans.MarkPaid(ctx, treasurer, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, "paid", paid.Status)

	_, err = f.loans.MarkPaid(ctx, treasurer, loan.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
}

func TestLoan_RejectAndPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	borrower := f.newMember(t, domain.RoleMember)
	secretary := actorOf(f.newMember(t, domain.RoleSecretary))
	admin := actorOf(f.newMember(t, domain.RoleAdmin))

	loan, err := f.loans.Request(ctx, actorOf(borrower), &LoanRequestInput{Amount: dec("500"), PeriodMonths: 6})
	require.NoError(t, err)

	_, err = f.loans.Approve(ctx, actorOf(borrower), loan.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.loans.Approve(ctx, secretary, loan.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// paying a waiting loan is not a valid transition
	_, err = f.loans.MarkPaid(ctx, admin, loan.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)

	rejected, err := f.loans.Reject(ctx, admin, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, "rejected", rejected.Status)
	assert.Nil(t, rejected.ApprovedBy)

	_, err = f.loans.Approve(ctx, admin, 9999)
	assert.ErrorIs(t, err, domain.ErrLoanNotFound)
}

func TestLoan_RequestValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	borrower := actorOf(f.newMember(t, domain.RoleMember))

	_, err := f.loans.Request(ctx, borrower, &LoanRequestInput{Amount: dec("0"), PeriodMonths: 12})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.loans.Request(ctx, borrower, &LoanRequestInput{Amount: dec("100"), PeriodMonths: 7})
	assert.ErrorIs(t, err, domain.ErrInvalidTerm)

	_, err = f.loans.Request(ctx, borrower, &LoanRequestInput{Amount: dec("100"), PeriodMonths: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidTerm)
}

func TestLoan_Schedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	borrower := f.newMember(t, domain.RoleMember)
	stranger := f.newMember(t, domain.RoleMember)

	loan, err := f.loans.Request(ctx, actorOf(borrower), &LoanRequestInput{Amount: dec("1200"), PeriodMonths: 3})
	require.NoError(t, err)

	sched, err := f.loans.Schedule(ctx, actorOf(borrower), loan.ID)
	require.NoError(t, err)
	require.Len(t, sched.Installments, 3)

	// 400 principal per month; interest 2% of 1200, 800, 400
	assert.Equal(t, "424.00", sched.Installments[0].Payment)
	assert.Equal(t, "416.00", sched.Installments[1].Payment)
	assert.Equal(t, "408.00", sched.Installments[2].Payment)
	assert.Equal(t, "0.00", sched.Installments[2].Remaining)
	assert.Equal(t, "1248.00", sched.DueAmount)
	assert.Equal(t, "1248.00", sched.Loan.DueAmount)

	_, err = f.loans.Schedule(ctx, actorOf(stranger), loan.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestLoan_Guarantors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	borrower := f.newMember(t, domain.RoleMember)
	friend := f.newMember(t, domain.RoleMember)
	stranger := f.newMember(t, domain.RoleMember)

	loan, err := f.loans.Request(ctx, actorOf(borrower), &LoanRequestInput{Amount: dec("3000"), PeriodMonths: 6})
	require.NoError(t, err)

	_, err = f.loans.AddGuarantor(ctx, actorOf(borrower), loan.ID, borrower.ID)
	assert.ErrorIs(t, err, domain.ErrSelfGuarantee)

	_, err = f.loans.AddGuarantor(ctx, actorOf(stranger), loan.ID, friend.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.loans.AddGuarantor(ctx, actorOf(borrower), loan.ID, 9999)
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)

	g, err := f.loans.AddGuarantor(ctx, actorOf(borrower), loan.ID, friend.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.ID, g.LoanID)

	_, err = f.loans.AddGuarantor(ctx, actorOf(borrower), loan.ID, friend.ID)
	assert.ErrorIs(t, err, domain.ErrGuarantorExists)

	// guarantors can see the loan they vouch for
	got, err := f.loans.Get(ctx, actorOf(friend), loan.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.ID, got.ID)

	_, err = f.loans.Get(ctx, actorOf(stranger), loan.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	list, err := f.loans.ListGuarantors(ctx, actorOf(borrower), loan.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, friend.ID, list[0].MemberID)

	guaranteed, err := f.loans.ListGuaranteed(ctx, actorOf(friend))
	require.NoError(t, err)
	require.Len(t, guaranteed, 1)
	assert.Equal(t, loan.ID, guaranteed[0].ID)
}

func TestLoan_Listing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.newMember(t, domain.RoleMember)
	bob := f.newMember(t, domain.RoleMember)
	secretary := actorOf(f.newMember(t, domain.RoleSecretary))
	admin := actorOf(f.newMember(t, domain.RoleAdmin))

	a, err := f.loans.Request(ctx, actorOf(alice), &LoanRequestInput{Amount: dec("100"), PeriodMonths: 3})
	require.NoError(t, err)
	_, err = f.loans.Request(ctx, actorOf(bob), &LoanRequestInput{Amount: dec("200"), PeriodMonths: 3})
	require.NoError(t, err)
	_, err = f.loans.Approve(ctx, admin, a.ID)
	require.NoError(t, err)

	params := pagination.New(1, 10)

	mine, total, err := f.loans.ListMine(ctx, actorOf(alice), params)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, a.ID, mine[0].ID)

	_, _, err = f.loans.List(ctx, actorOf(alice), "", params)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, total, err = f.loans.List(ctx, secretary, "", params)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	waiting, total, err := f.loans.List(ctx, secretary, "WAITING", params)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, bob.ID, waiting[0].MemberID)

	_, _, err = f.loans.List(ctx, secretary, "defaulted", params)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoan_Quote(t *testing.T) {
	f := newFixture(t)

	q, err := f.loans.Quote(&LoanRequestInput{Amount: dec("1200"), PeriodMonths: 3})
	require.NoError(t, err)
	assert.Equal(t, "1248.00", q.DueAmount)
	assert.Equal(t, "2.00", q.InterestRate)
	assert.Len(t, q.Installments, 3)

	_, err = f.loans.Quote(&LoanRequestInput{Amount: dec("1200"), PeriodMonths: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidTerm)
}
