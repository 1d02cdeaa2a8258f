package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	Cost = bcrypt.MinCost
	t.Cleanup(func() { Cost = DefaultCost })

	hash, err := Hash("s3cretpass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cretpass", hash)
	assert.True(t, Verify("s3cretpass", hash))
	assert.False(t, Verify("wrongpass1", hash))
}

func TestHashToken(t *testing.T) {
	a := HashToken("token")
	assert.Len(t, a, 64)
	assert.Equal(t, a, HashToken("token"))
	assert.NotEqual(t, a, HashToken("token2"))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"short1", false},
		{"lettersonly", false},
		{"12345678", false},
		{"abcd1234", true},
		{"pässwört9", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidatePassword(tt.in), tt.in)
	}
}
