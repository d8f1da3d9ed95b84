package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakup/session-authority/internal/core/domain"
)

func TestAuthRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewAuthRepository()

	created, err := repo.Create(ctx, &domain.User{Username: "alice", Email: "alice@example.com", PasswordHash: "h"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	byName, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	byEmail, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.FindByUsername(ctx, "bob")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestAuthRepository_Uniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewAuthRepository()

	_, err := repo.Create(ctx, &domain.User{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.User{Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, domain.ErrUserExists)

	_, err = repo.Create(ctx, &domain.User{Username: "other", Email: "alice@example.com"})
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

func TestAuthRepository_RefreshToken(t *testing.T) {
	ctx := context.Background()
	repo := NewAuthRepository()
	u, err := repo.Create(ctx, &domain.User{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = repo.FindByRefreshToken(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	require.NoError(t, repo.SetRefreshToken(ctx, u.ID, "d1"))
	got, err := repo.FindByRefreshToken(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, repo.SetRefreshToken(ctx, u.ID, "d2"))
	_, err = repo.FindByRefreshToken(ctx, "d1")
	assert.ErrorIs(t, err, domain.ErrUserNotFound, "overwritten digest must no longer match")

	require.NoError(t, repo.SetRefreshToken(ctx, u.ID, ""))
	_, err = repo.FindByRefreshToken(ctx, "d2")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	assert.NoError(t, repo.SetRefreshToken(ctx, "missing", "d3"), "unknown user is not an error")
}

func TestAuthRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewAuthRepository()
	u, err := repo.Create(ctx, &domain.User{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	u.RefreshToken = "tampered"
	got, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, got.RefreshToken)
}

func TestAuthRepository_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewAuthRepository()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created, conflicts := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, &domain.User{Username: "alice", Email: "alice@example.com"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, domain.ErrUserExists):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, 19, conflicts)
}

func TestAuditRepository(t *testing.T) {
	repo := NewAuditRepository()
	require.NoError(t, repo.InsertEvent(context.Background(), &domain.AuthEvent{Type: domain.EventRegistered, UserID: "u1"}))
	require.NoError(t, repo.InsertEvent(context.Background(), &domain.AuthEvent{Type: domain.EventLoggedOut, UserID: "u1"}))

	events := repo.Events()
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventRegistered, events[0].Type)
	assert.Equal(t, domain.EventLoggedOut, events[1].Type)
}
