package auth

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenUse tells access and refresh tokens apart.
type TokenUse string

const (
	TokenUseAccess  TokenUse = "access"
	TokenUseRefresh TokenUse = "refresh"
)

const claimTokenUse = "token_use"

var reservedClaims = map[string]struct{}{
	"sub": {}, "iat": {}, "exp": {}, "nbf": {}, "iss": {}, "aud": {}, "jti": {},
}

// TokenConfig is loaded once at startup and copied into the codec.
type TokenConfig struct {
	Secret     string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Claims is the verified content of a token.
type Claims struct {
	Subject   string
	Issuer    string
	Audience  []string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Use       TokenUse
	Extra     map[string]any
}

// TokenCodec signs and verifies HS256 tokens. It holds no mutable state, so
// one instance serves all requests concurrently.
type TokenCodec struct {
	cfg    TokenConfig
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenCodec validates cfg and builds a codec using the wall clock.
func NewTokenCodec(cfg TokenConfig) (*TokenCodec, error) {
	switch {
	case cfg.Secret == "":
		return nil, errors.New("token secret is empty")
	case cfg.Issuer == "":
		return nil, errors.New("token issuer is empty")
	case cfg.Audience == "":
		return nil, errors.New("token audience is empty")
	}
	return newTokenCodec(cfg, time.Now), nil
}

func newTokenCodec(cfg TokenConfig, now func() time.Time) *TokenCodec {
	c := &TokenCodec{cfg: cfg, secret: []byte(cfg.Secret), now: now}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	return c
}

// WithClock returns a copy of c that reads time from now.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	return newTokenCodec(c.cfg, now)
}

// Config returns the codec's configuration.
func (c *TokenCodec) Config() TokenConfig {
	return c.cfg
}

// Sign issues a token for subject that expires expiresIn from now. Extra
// claims are copied in, except ones that would override a registered claim.
// A token signed with expiresIn <= 0 is already expired.
func (c *TokenCodec) Sign(subject string, expiresIn time.Duration, extra map[string]any) (string, error) {
	if subject == "" {
		return "", errors.New("sign token: empty subject")
	}

	now := c.now()
	claims := jwt.MapClaims{}
	for k, v := range extra {
		if _, reserved := reservedClaims[k]; !reserved {
			claims[k] = v
		}
	}
	claims["sub"] = subject
	claims["iss"] = c.cfg.Issuer
	claims["aud"] = c.cfg.Audience
	claims["iat"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(now.Add(expiresIn))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// SignAccess issues an access token with the configured access TTL.
func (c *TokenCodec) SignAccess(subject string) (string, error) {
	return c.Sign(subject, c.cfg.AccessTTL, map[string]any{claimTokenUse: string(TokenUseAccess)})
}

// SignRefresh issues a refresh token with the configured refresh TTL.
func (c *TokenCodec) SignRefresh(subject string) (string, error) {
	return c.Sign(subject, c.cfg.RefreshTTL, map[string]any{claimTokenUse: string(TokenUseRefresh)})
}

// Verify checks signature, algorithm, issuer, audience and expiry
// (now >= exp fails, no leeway) and requires a subject. Every failure is
// ErrTokenInvalid.
func (c *TokenCodec) Verify(token string) (*Claims, error) {
	mc := jwt.MapClaims{}
	if _, err := c.parser.ParseWithClaims(token, mc, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}); err != nil {
		return nil, ErrTokenInvalid
	}

	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrTokenInvalid
	}
	iss, _ := mc.GetIssuer()
	aud, _ := mc.GetAudience()
	exp, _ := mc.GetExpirationTime()

	claims := &Claims{
		Subject:   sub,
		Issuer:    iss,
		Audience:  aud,
		ExpiresAt: exp.Time,
		Extra:     map[string]any{},
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if use, ok := mc[claimTokenUse].(string); ok {
		claims.Use = TokenUse(use)
	}

	rest := maps.Clone(mc)
	for k := range reservedClaims {
		delete(rest, k)
	}
	delete(rest, claimTokenUse)
	maps.Copy(claims.Extra, rest)

	return claims, nil
}

// VerifyAs verifies token and additionally requires it to be of kind use.
func (c *TokenCodec) VerifyAs(token string, use TokenUse) (*Claims, error) {
	claims, err := c.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.Use != use {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
