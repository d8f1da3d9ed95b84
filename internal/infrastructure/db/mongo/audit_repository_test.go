package mongo

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/speakup/session-authority/internal/core/domain"
)

func TestAuditRepository_InsertEvent(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("success", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewAuditRepository(mt.DB)

		err := repo.InsertEvent(context.Background(), &domain.AuthEvent{
			Type:       domain.EventLoginSucceeded,
			UserID:     "u-1",
			Identifier: "alice",
			OccurredAt: time.Now(),
		})
		if err != nil {
			mt.Fatalf("InsertEvent error: %v", err)
		}
	})

	mt.Run("command error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad value",
		}))
		repo := NewAuditRepository(mt.DB)

		if err := repo.InsertEvent(context.Background(), &domain.AuthEvent{Type: domain.EventLoggedOut}); err == nil {
			mt.Fatal("expected error")
		}
	})
}
