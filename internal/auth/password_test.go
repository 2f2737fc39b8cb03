package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("pw123")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "pw123", hash)

	assert.True(t, CheckPassword("pw123", hash))
	assert.False(t, CheckPassword("pw124", hash))
	assert.False(t, CheckPassword("", hash))
}

func TestHashPassword_SaltedPerCall(t *testing.T) {
	t.Parallel()

	first, err := HashPassword("same-password")
	require.NoError(t, err)
	second, err := HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, CheckPassword("same-password", first))
	assert.True(t, CheckPassword("same-password", second))
}

func TestHashPassword_EmptyPasswordAccepted(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("")
	require.NoError(t, err)
	assert.True(t, CheckPassword("", hash))
	assert.False(t, CheckPassword("x", hash))
}

func TestCheckPassword_MalformedHash(t *testing.T) {
	t.Parallel()

	assert.False(t, CheckPassword("pw123", ""))
	assert.False(t, CheckPassword("pw123", "not-a-bcrypt-hash"))
	assert.False(t, CheckPassword("pw123", "$2a$garbage"))
}
