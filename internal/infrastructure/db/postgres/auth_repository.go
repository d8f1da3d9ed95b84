package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/speakup/session-authority/internal/core/domain"
)

const uniqueViolation = "23505"

// AuthRepository implements ports.AuthRepository over the users table.
type AuthRepository struct {
	db DBTX
}

func NewAuthRepository(db DBTX) *AuthRepository {
	return &AuthRepository{db: db}
}

const selectUser = `
	SELECT id, username, email, password, COALESCE(refresh_token, ''), created_at, updated_at
	FROM users
`

func (r *AuthRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (username, email, password)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	created := *user
	err := r.db.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash).
		Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	created.RefreshToken = ""
	return &created, nil
}

func (r *AuthRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, selectUser+`WHERE username = $1`, username)
}

func (r *AuthRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, selectUser+`WHERE email = $1`, email)
}

func (r *AuthRepository) FindByRefreshToken(ctx context.Context, digest string) (*domain.User, error) {
	if digest == "" {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, selectUser+`WHERE refresh_token = $1`, digest)
}

// SetRefreshToken stores digest, or NULL when digest is empty.
func (r *AuthRepository) SetRefreshToken(ctx context.Context, userID, digest string) error {
	query := `
		UPDATE users
		SET refresh_token = NULLIF($2, ''), updated_at = now()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID, digest); err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	return nil
}

func (r *AuthRepository) findOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.RefreshToken, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}
