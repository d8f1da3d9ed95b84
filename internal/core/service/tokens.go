package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/speakup/session-authority/internal/core/domain"
)

const (
	AccessTokenType  = "access"
	RefreshTokenType = "refresh"

	defaultAccessTTL  = 30 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

var signingMethod = jwt.SigningMethodHS256

// TokenClaims is the payload of both token classes. TokenType pins a token to
// the class it was issued for, so a refresh token can never pass as an access
// token even if the keys were misconfigured.
type TokenClaims struct {
	TokenType string `json:"token_type"`
	UserID    string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenConfig carries the signing material and lifetimes for TokenIssuer.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// TokenIssuer signs and verifies access and refresh tokens. Each class has its
// own key and is only ever verified against that key.
type TokenIssuer struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	now        func() time.Time
}

func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token issuer: access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("token issuer: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	return &TokenIssuer{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		issuer:     cfg.Issuer,
		now:        time.Now,
	}, nil
}

// RefreshTTL reports how long a refresh token stays valid.
func (t *TokenIssuer) RefreshTTL() time.Duration { return t.refreshTTL }

func (t *TokenIssuer) IssueAccessToken(userID string) (string, error) {
	return t.sign(userID, AccessTokenType, t.accessKey, t.accessTTL)
}

func (t *TokenIssuer) IssueRefreshToken(userID string) (string, error) {
	return t.sign(userID, RefreshTokenType, t.refreshKey, t.refreshTTL)
}

func (t *TokenIssuer) ParseAccessToken(raw string) (*TokenClaims, error) {
	return t.parse(raw, AccessTokenType, t.accessKey)
}

func (t *TokenIssuer) ParseRefreshToken(raw string) (*TokenClaims, error) {
	return t.parse(raw, RefreshTokenType, t.refreshKey)
}

func (t *TokenIssuer) sign(userID, tokenType string, key []byte, ttl time.Duration) (string, error) {
	now := t.now()
	claims := TokenClaims{
		TokenType: tokenType,
		UserID:    userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

func (t *TokenIssuer) parse(raw, tokenType string, key []byte) (*TokenClaims, error) {
	if raw == "" {
		return nil, domain.ErrTokenMissing
	}

	claims := &TokenClaims{}
	tkn, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return key, nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if !tkn.Valid || claims.TokenType != tokenType || claims.UserID == "" {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}
