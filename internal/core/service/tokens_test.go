package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/speakup/session-authority/internal/core/domain"
)

func TestNewTokenIssuer_RejectsBadSecrets(t *testing.T) {
	cases := []TokenConfig{
		{AccessSecret: "", RefreshSecret: "r"},
		{AccessSecret: "a", RefreshSecret: ""},
		{AccessSecret: "same", RefreshSecret: "same"},
	}
	for _, cfg := range cases {
		if _, err := NewTokenIssuer(cfg); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}

func TestNewTokenIssuer_Defaults(t *testing.T) {
	issuer, err := NewTokenIssuer(TokenConfig{AccessSecret: "a", RefreshSecret: "r"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if issuer.accessTTL != 30*time.Minute {
		t.Fatalf("expected 30m access ttl, got %s", issuer.accessTTL)
	}
	if issuer.RefreshTTL() != 7*24*time.Hour {
		t.Fatalf("expected 7d refresh ttl, got %s", issuer.RefreshTTL())
	}
}

func TestTokenIssuer_AccessRoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)

	raw, err := issuer.IssueAccessToken("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := issuer.ParseAccessToken(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "u1" || claims.Subject != "u1" || claims.TokenType != AccessTokenType {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != "test" || claims.ID == "" {
		t.Fatalf("expected issuer and jti, got %+v", claims.RegisteredClaims)
	}
	exp := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time)
	if exp != 30*time.Minute {
		t.Fatalf("expected 30m lifetime, got %s", exp)
	}
}

func TestTokenIssuer_TokensAreUnique(t *testing.T) {
	issuer := newTestIssuer(t)
	fixed := time.Now()
	issuer.now = func() time.Time { return fixed }

	a, _ := issuer.IssueAccessToken("u1")
	b, _ := issuer.IssueAccessToken("u1")
	if a == b {
		t.Fatalf("tokens issued in the same instant must still differ")
	}
}

func TestTokenIssuer_ClassesUseSeparateKeys(t *testing.T) {
	issuer := newTestIssuer(t)

	access, _ := issuer.IssueAccessToken("u1")
	refresh, _ := issuer.IssueRefreshToken("u1")

	if _, err := issuer.ParseRefreshToken(access); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("access token accepted as refresh: %v", err)
	}
	if _, err := issuer.ParseAccessToken(refresh); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("refresh token accepted as access: %v", err)
	}
	if _, err := issuer.ParseRefreshToken(refresh); err != nil {
		t.Fatalf("refresh token rejected: %v", err)
	}
}

func TestTokenIssuer_TypeClaimEnforced(t *testing.T) {
	issuer := newTestIssuer(t)

	// Signed with the access key but claiming to be a refresh token.
	now := time.Now()
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		TokenType: RefreshTokenType,
		UserID:    "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}).SignedString([]byte("access-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := issuer.ParseAccessToken(forged); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := newTestIssuer(t)

	raw, _ := issuer.IssueAccessToken("u1")
	issuer.now = func() time.Time { return time.Now().Add(31 * time.Minute) }

	if _, err := issuer.ParseAccessToken(raw); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenIssuer_ExpiredWithBadSignatureIsInvalid(t *testing.T) {
	issuer := newTestIssuer(t)

	past := time.Now().Add(-time.Hour)
	raw, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		TokenType: AccessTokenType,
		UserID:    "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(past),
		},
	}).SignedString([]byte("wrong-key"))

	_, err := issuer.ParseAccessToken(raw)
	if !errors.Is(err, domain.ErrTokenInvalid) || errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestTokenIssuer_Tampered(t *testing.T) {
	issuer := newTestIssuer(t)

	raw, _ := issuer.IssueAccessToken("u1")
	parts := strings.Split(raw, ".")
	parts[2] = strings.Repeat("A", len(parts[2]))

	if _, err := issuer.ParseAccessToken(strings.Join(parts, ".")); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestTokenIssuer_RejectsNoneAlgAndMissingExpiry(t *testing.T) {
	issuer := newTestIssuer(t)

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, TokenClaims{
		TokenType: AccessTokenType,
		UserID:    "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := issuer.ParseAccessToken(none); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected none alg to be rejected, got %v", err)
	}

	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		TokenType: AccessTokenType,
		UserID:    "u1",
	}).SignedString([]byte("access-secret"))
	if _, err := issuer.ParseAccessToken(noExp); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected token without exp to be rejected, got %v", err)
	}
}

func TestTokenIssuer_Empty(t *testing.T) {
	issuer := newTestIssuer(t)
	if _, err := issuer.ParseAccessToken(""); !errors.Is(err, domain.ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
}
