package ports

import (
	"context"

	"github.com/speakup/session-authority/internal/core/domain"
)

// AuthRepository defines the interface for user credential persistence.
//
// Lookups return domain.ErrUserNotFound when no row matches. Create returns
// domain.ErrUserExists when the username or email is already taken.
type AuthRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByRefreshToken returns the user whose stored refresh token digest equals digest.
	FindByRefreshToken(ctx context.Context, digest string) (*domain.User, error)
	// SetRefreshToken overwrites the stored digest for userID. An empty digest
	// clears it. Updating a missing user is not an error.
	SetRefreshToken(ctx context.Context, userID, digest string) error
}
