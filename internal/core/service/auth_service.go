package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/speakup/session-authority/internal/core/domain"
	"github.com/speakup/session-authority/internal/core/ports"
)

// LoginThrottle abstracts the failed-login counter (Redis).
type LoginThrottle interface {
	Allow(ctx context.Context, identifier string) (bool, error)
	RecordFailure(ctx context.Context, identifier string) error
	Reset(ctx context.Context, identifier string) error
}

// AuditRecorder accepts session lifecycle events. Record must not block.
type AuditRecorder interface {
	Record(event domain.AuthEvent)
}

// AuthService implements registration, login, refresh, logout and token checks.
type AuthService struct {
	repo       ports.AuthRepository
	tokens     *TokenIssuer
	throttle   LoginThrottle
	audit      AuditRecorder
	bcryptCost int
	log        zerolog.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

// AuthServiceOptions holds the optional collaborators of AuthService.
// Nil Throttle and Audit disable throttling and auditing.
type AuthServiceOptions struct {
	BcryptCost int
	Throttle   LoginThrottle
	Audit      AuditRecorder
	Log        zerolog.Logger
}

func NewAuthService(repo ports.AuthRepository, tokens *TokenIssuer, opts AuthServiceOptions) *AuthService {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Throttle == nil {
		opts.Throttle = noopThrottle{}
	}
	if opts.Audit == nil {
		opts.Audit = noopAudit{}
	}
	return &AuthService{
		repo:       repo,
		tokens:     tokens,
		throttle:   opts.Throttle,
		audit:      opts.Audit,
		bcryptCost: opts.BcryptCost,
		log:        opts.Log,
	}
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", domain.ErrInvalidInput)
	}
	if strings.Contains(username, "@") {
		return nil, fmt.Errorf("%w: username must not contain @", domain.ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email must contain @", domain.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password is too long", domain.ErrInvalidInput)
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	created, err := s.repo.Create(ctx, &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.record(domain.EventRegistered, created.ID, created.Username, "")
	s.log.Info().Str("user_id", created.ID).Msg("user registered")
	return created, nil
}

// Login resolves identifier as an email when it contains "@" and as a username
// otherwise. The stored refresh token is overwritten, ending any session the
// user held elsewhere.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*domain.Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, fmt.Errorf("%w: username/email and password are required", domain.ErrInvalidInput)
	}
	throttleKey := strings.ToLower(identifier)

	allowed, err := s.throttle.Allow(ctx, throttleKey)
	if err != nil {
		s.log.Warn().Err(err).Msg("login throttle check failed, continuing")
	} else if !allowed {
		s.record(domain.EventLoginThrottled, "", identifier, "")
		return nil, domain.ErrTooManyAttempts
	}

	user, err := s.lookup(ctx, identifier)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("login: %w", err)
		}
		// Spend the same time as a real comparison so unknown accounts are not observable.
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		s.loginFailed(ctx, throttleKey, "", identifier, "unknown identifier")
		return nil, domain.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.loginFailed(ctx, throttleKey, user.ID, identifier, "password mismatch")
		return nil, domain.ErrInvalidCredentials
	}

	access, err := s.tokens.IssueAccessToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if err := s.repo.SetRefreshToken(ctx, user.ID, digest(refresh)); err != nil {
		return nil, fmt.Errorf("login: store refresh token: %w", err)
	}

	if err := s.throttle.Reset(ctx, throttleKey); err != nil {
		s.log.Warn().Err(err).Msg("failed to reset login throttle")
	}

	s.record(domain.EventLoginSucceeded, user.ID, identifier, "")
	return &domain.Session{UserID: user.ID, AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a stored, unexpired refresh token for a new access token.
// The refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", domain.ErrTokenMissing
	}

	user, err := s.repo.FindByRefreshToken(ctx, digest(refreshToken))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.record(domain.EventRefreshRejected, "", "", "not stored")
			return "", domain.ErrTokenInvalid
		}
		return "", fmt.Errorf("refresh: %w", err)
	}

	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil || claims.UserID != user.ID {
		reason := "subject mismatch"
		if err != nil {
			reason = err.Error()
		}
		s.record(domain.EventRefreshRejected, user.ID, "", reason)
		return "", domain.ErrTokenInvalid
	}

	access, err := s.tokens.IssueAccessToken(user.ID)
	if err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}

	s.record(domain.EventTokenRefreshed, user.ID, "", "")
	return access, nil
}

// Logout clears the stored refresh token. It succeeds when none is stored.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrTokenMissing
	}
	if err := s.repo.SetRefreshToken(ctx, userID, ""); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.record(domain.EventLoggedOut, userID, "", "")
	return nil
}

// ValidateToken reports whether token is a currently valid access token.
func (s *AuthService) ValidateToken(_ context.Context, token string) bool {
	_, err := s.tokens.ParseAccessToken(token)
	return err == nil
}

// VerifyAccessToken returns the user id carried by a valid access token.
func (s *AuthService) VerifyAccessToken(token string) (string, error) {
	claims, err := s.tokens.ParseAccessToken(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *AuthService) lookup(ctx context.Context, identifier string) (*domain.User, error) {
	if strings.Contains(identifier, "@") {
		return s.repo.FindByEmail(ctx, identifier)
	}
	return s.repo.FindByUsername(ctx, identifier)
}

func (s *AuthService) loginFailed(ctx context.Context, throttleKey, userID, identifier, reason string) {
	if err := s.throttle.RecordFailure(ctx, throttleKey); err != nil {
		s.log.Warn().Err(err).Msg("failed to record login failure")
	}
	s.record(domain.EventLoginFailed, userID, identifier, reason)
}

func (s *AuthService) record(t domain.AuthEventType, userID, identifier, reason string) {
	s.audit.Record(domain.AuthEvent{
		Type:       t,
		UserID:     userID,
		Identifier: identifier,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	})
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("timing-equaliser"), s.bcryptCost)
	})
	return s.dummyHash
}

// digest is what the store keeps instead of the raw refresh token.
func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type noopThrottle struct{}

func (noopThrottle) Allow(context.Context, string) (bool, error) { return true, nil }
func (noopThrottle) RecordFailure(context.Context, string) error { return nil }
func (noopThrottle) Reset(context.Context, string) error         { return nil }

type noopAudit struct{}

func (noopAudit) Record(domain.AuthEvent) {}
