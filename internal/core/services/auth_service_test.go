package services

import (
	"context"
	"testing"

	"sacco-backend/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_LoginRequiresApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := validRegistration()
	m, err := f.members.Register(ctx, in)
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, &LoginInput{Phone: in.Phone, Password: testPassword})
	assert.ErrorIs(t, err, domain.ErrMemberNotApproved)

	// a wrong password never reveals the approval state
	_, err = f.auth.Login(ctx, &LoginInput{Phone: in.Phone, Password: "nope12345"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, &LoginInput{Phone: "0000000000", Password: testPassword})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	admin := actorOf(f.newMember(t, domain.RoleAdmin))
	_, err = f.members.Approve(ctx, admin, m.ID)
	require.NoError(t, err)

	resp, err := f.auth.Login(ctx, &LoginInput{Phone: " " + in.Phone + " ", Password: testPassword})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, m.ID, resp.Member.ID)

	claims, err := f.auth.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, m.ID, claims.MemberID)
	assert.Equal(t, string(domain.RoleMember), claims.Role)
}

func TestAuth_RefreshRotates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.newMember(t, domain.RoleTreasurer)

	first, err := f.auth.Login(ctx, &LoginInput{Phone: m.Phone, Password: testPassword})
	require.NoError(t, err)

	second, err := f.auth.RefreshToken(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// the old refresh token is spent
	_, err = f.auth.RefreshToken(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = f.auth.RefreshToken(ctx, second.RefreshToken)
	assert.NoError(t, err)

	_, err = f.auth.RefreshToken(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// access tokens are not accepted as refresh tokens
	_, err = f.auth.RefreshToken(ctx, first.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuth_Logout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.newMember(t, domain.RoleMember)

	a, err := f.auth.Login(ctx, &LoginInput{Phone: m.Phone, Password: testPassword})
	require.NoError(t, err)
	b, err := f.auth.Login(ctx, &LoginInput{Phone: m.Phone, Password: testPassword})
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, a.RefreshToken))
	_, err = f.auth.RefreshToken(ctx, a.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	rotated, err := f.auth.RefreshToken(ctx, b.RefreshToken)
	require.NoError(t, err)

	require.NoError(t, f.auth.LogoutAll(ctx, m.ID))
	_, err = f.auth.RefreshToken(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}
