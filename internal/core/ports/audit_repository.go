package ports

import (
	"context"

	"github.com/speakup/session-authority/internal/core/domain"
)

// AuthEventRepository persists the session audit trail.
type AuthEventRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
}
