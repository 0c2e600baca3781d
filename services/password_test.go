package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_RoundTrip(t *testing.T) {
	for _, algo := range []string{"bcrypt", "argon2id"} {
		t.Run(algo, func(t *testing.T) {
			h, err := NewPasswordHasher(algo, bcrypt.MinCost)
			require.NoError(t, err)

			hash, err := h.Hash("secret123")
			require.NoError(t, err)
			assert.NotEqual(t, "secret123", hash)

			ok, err := h.Compare(hash, "secret123")
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = h.Compare(hash, "wrong")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestPasswordHasher_VerifiesOtherAlgorithm(t *testing.T) {
	bcryptH, err := NewPasswordHasher("bcrypt", bcrypt.MinCost)
	require.NoError(t, err)
	argonH, err := NewPasswordHasher("argon2id", 0)
	require.NoError(t, err)

	legacy, err := bcryptH.Hash("pw")
	require.NoError(t, err)
	ok, err := argonH.Compare(legacy, "pw")
	require.NoError(t, err)
	assert.True(t, ok)

	modern, err := argonH.Hash("pw")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(modern, "$argon2id$"))
	ok, err = bcryptH.Compare(modern, "pw")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPasswordHasher_Errors(t *testing.T) {
	_, err := NewPasswordHasher("md5", 0)
	assert.Error(t, err)

	_, err = NewPasswordHasher("bcrypt", 99)
	assert.Error(t, err)

	h, err := NewPasswordHasher("bcrypt", 0)
	require.NoError(t, err)
	_, err = h.Compare("not-a-hash", "pw")
	assert.Error(t, err)
}

func TestPasswordHasher_BcryptRejectsLongPassword(t *testing.T) {
	h, err := NewPasswordHasher("bcrypt", bcrypt.MinCost)
	require.NoError(t, err)

	_, err = h.Hash(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = h.Hash(strings.Repeat("a", 72))
	assert.NoError(t, err)
}
