package services

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T, secret string) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(secret, time.Hour, "test")
	require.NoError(t, err)
	return issuer
}

func TestTokenIssuer_IssueAndVerify(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, "super-secret")

	tok, expiresAt, err := issuer.Issue("user-123", "alice", "alice@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "test", claims.Issuer)
	assert.NotNil(t, claims.IssuedAt)
}

func TestTokenIssuer_Expired(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, "secret")
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tok, _, err := issuer.Issue("u1", "u", "u@example.com")
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Verify(tok)
	assert.True(t, errors.Is(err, ErrExpiredToken), "got %v", err)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, _, err := newTestIssuer(t, "right-secret").Issue("u2", "u", "u@example.com")
	require.NoError(t, err)

	_, err = newTestIssuer(t, "wrong-secret").Verify(tok)
	assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
}

func TestTokenIssuer_Malformed(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, "k")

	_, err := issuer.Verify("not.a.jwt")
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = issuer.Verify("")
	assert.True(t, errors.Is(err, ErrMissingToken))
}

func TestTokenIssuer_RejectsNoneAlgorithmAndMissingClaims(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, "k")

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u3",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	tok, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Verify(tok)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	// 没有 exp
	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u4"},
	})
	tok, err = noExp.SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = issuer.Verify(tok)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	// 没有 subject
	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	tok, err = noSub.SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = issuer.Verify(tok)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestNewTokenIssuer_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewTokenIssuer("", time.Hour, "x")
	assert.Error(t, err)

	_, err = NewTokenIssuer("k", 0, "x")
	assert.Error(t, err)
}
