package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testTokenConfig() TokenConfig {
	return TokenConfig{
		Secret:     "test-secret-that-is-at-least-32-characters",
		Issuer:     "todo-api",
		Audience:   "todo-web",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	}
}

func newTestCodec(t *testing.T) (*TokenCodec, *time.Time) {
	t.Helper()
	now := testNow
	c, err := NewTokenCodec(testTokenConfig())
	require.NoError(t, err)
	return c.WithClock(func() time.Time { return now }), &now
}

func TestNewTokenCodec_RejectsIncompleteConfig(t *testing.T) {
	for name, mutate := range map[string]func(*TokenConfig){
		"secret":   func(c *TokenConfig) { c.Secret = "" },
		"issuer":   func(c *TokenConfig) { c.Issuer = "" },
		"audience": func(c *TokenConfig) { c.Audience = "" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := testTokenConfig()
			mutate(&cfg)
			_, err := NewTokenCodec(cfg)
			assert.Error(t, err)
		})
	}
}

func TestSignVerify_RoundTrip(t *testing.T) {
	c, _ := newTestCodec(t)

	token, err := c.Sign("u1", time.Hour, map[string]any{"email": "a@b.com"})
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := c.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "todo-api", claims.Issuer)
	assert.Equal(t, []string{"todo-web"}, claims.Audience)
	assert.Equal(t, testNow, claims.IssuedAt.UTC())
	assert.Equal(t, testNow.Add(time.Hour), claims.ExpiresAt.UTC())
	assert.Equal(t, "a@b.com", claims.Extra["email"])
}

func TestSign_ExtraCannotOverrideRegisteredClaims(t *testing.T) {
	c, _ := newTestCodec(t)

	token, err := c.Sign("u1", time.Hour, map[string]any{"sub": "admin", "iss": "evil", "exp": 9999999999})
	require.NoError(t, err)

	claims, err := c.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, testNow.Add(time.Hour), claims.ExpiresAt.UTC())
}

func TestSign_EmptySubject(t *testing.T) {
	c, _ := newTestCodec(t)
	_, err := c.Sign("", time.Hour, nil)
	assert.Error(t, err)
}

func TestVerify_ZeroTTLIsRejected(t *testing.T) {
	c, _ := newTestCodec(t)

	token, err := c.Sign("u1", 0, nil)
	require.NoError(t, err)

	_, err = c.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	c, now := newTestCodec(t)

	token, err := c.Sign("u1", time.Minute, nil)
	require.NoError(t, err)

	*now = testNow.Add(time.Minute - time.Second)
	_, err = c.Verify(token)
	assert.NoError(t, err)

	*now = testNow.Add(time.Minute)
	_, err = c.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_RejectsMismatchedConfig(t *testing.T) {
	c, _ := newTestCodec(t)
	token, err := c.SignAccess("u1")
	require.NoError(t, err)

	tests := map[string]func(*TokenConfig){
		"other secret":   func(cfg *TokenConfig) { cfg.Secret = "another-secret-that-is-long-enough-xx" },
		"other issuer":   func(cfg *TokenConfig) { cfg.Issuer = "someone-else" },
		"other audience": func(cfg *TokenConfig) { cfg.Audience = "mobile" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := testTokenConfig()
			mutate(&cfg)
			other := newTokenCodec(cfg, func() time.Time { return testNow })

			_, err := other.Verify(token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestVerify_RejectsMalformed(t *testing.T) {
	c, _ := newTestCodec(t)
	for _, token := range []string{"", "abc", "a.b.c", "eyJhbGciOiJIUzI1NiJ9..", "Bearer x.y.z"} {
		_, err := c.Verify(token)
		assert.ErrorIs(t, err, ErrTokenInvalid, token)
	}
}

func TestVerify_RejectsTamperedPayload(t *testing.T) {
	c, _ := newTestCodec(t)
	token, err := c.SignAccess("u1")
	require.NoError(t, err)

	other, err := c.SignAccess("u2")
	require.NoError(t, err)

	p1 := strings.Split(token, ".")
	p2 := strings.Split(other, ".")
	forged := strings.Join([]string{p1[0], p2[1], p1[2]}, ".")

	_, err = c.Verify(forged)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	c, _ := newTestCodec(t)
	cfg := testTokenConfig()
	claims := jwt.MapClaims{
		"sub": "u1",
		"iss": cfg.Issuer,
		"aud": cfg.Audience,
		"iat": testNow.Unix(),
		"exp": testNow.Add(time.Hour).Unix(),
	}

	t.Run("none", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = c.Verify(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("HS512 with same secret", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(cfg.Secret))
		require.NoError(t, err)
		_, err = c.Verify(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("RS256", func(t *testing.T) {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
		require.NoError(t, err)
		_, err = c.Verify(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestVerify_RequiresExpiryAndSubject(t *testing.T) {
	c, _ := newTestCodec(t)
	cfg := testTokenConfig()

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1", "iss": cfg.Issuer, "aud": cfg.Audience,
	}).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)
	_, err = c.Verify(noExp)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": cfg.Issuer, "aud": cfg.Audience, "exp": testNow.Add(time.Hour).Unix(),
	}).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)
	_, err = c.Verify(noSub)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyAs_TokenUse(t *testing.T) {
	c, _ := newTestCodec(t)

	access, err := c.SignAccess("u1")
	require.NoError(t, err)
	refresh, err := c.SignRefresh("u1")
	require.NoError(t, err)

	claims, err := c.VerifyAs(access, TokenUseAccess)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(time.Hour), claims.ExpiresAt.UTC())

	claims, err = c.VerifyAs(refresh, TokenUseRefresh)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(24*time.Hour), claims.ExpiresAt.UTC())

	_, err = c.VerifyAs(refresh, TokenUseAccess)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = c.VerifyAs(access, TokenUseRefresh)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_IsIndependentPerCall(t *testing.T) {
	c, now := newTestCodec(t)
	token, err := c.SignAccess("u1")
	require.NoError(t, err)

	_, err = c.Verify(token)
	require.NoError(t, err)

	*now = testNow.Add(2 * time.Hour)
	_, err = c.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
