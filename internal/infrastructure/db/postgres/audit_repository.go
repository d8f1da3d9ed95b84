package postgres

import (
	"context"
	"fmt"

	"github.com/speakup/session-authority/internal/core/domain"
)

// AuditRepository implements ports.AuthEventRepository over auth_events.
type AuditRepository struct {
	db DBTX
}

func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) InsertEvent(ctx context.Context, event *domain.AuthEvent) error {
	query := `
		INSERT INTO auth_events (event_type, user_id, identifier, reason, occurred_at)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		string(event.Type), event.UserID, event.Identifier, event.Reason, event.OccurredAt.UTC())
	if err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}
