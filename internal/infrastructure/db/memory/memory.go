// Package memory implements the credential and audit stores in process memory.
// Data does not survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/speakup/session-authority/internal/core/domain"
)

// AuthRepository implements ports.AuthRepository with mutex-guarded maps.
type AuthRepository struct {
	mu         sync.RWMutex
	byID       map[string]*domain.User
	byUsername map[string]string
	byEmail    map[string]string
}

func NewAuthRepository() *AuthRepository {
	return &AuthRepository{
		byID:       make(map[string]*domain.User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

func (r *AuthRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUsername[user.Username]; ok {
		return nil, domain.ErrUserExists
	}
	if _, ok := r.byEmail[user.Email]; ok {
		return nil, domain.ErrUserExists
	}

	u := *user
	u.ID = uuid.NewString()
	u.RefreshToken = ""
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
		u.UpdatedAt = u.CreatedAt
	}

	r.byID[u.ID] = &u
	r.byUsername[u.Username] = u.ID
	r.byEmail[u.Email] = u.ID

	out := u
	return &out, nil
}

func (r *AuthRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(r.byUsername[username])
}

func (r *AuthRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(r.byEmail[email])
}

func (r *AuthRepository) FindByRefreshToken(_ context.Context, digest string) (*domain.User, error) {
	if digest == "" {
		return nil, domain.ErrUserNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, u := range r.byID {
		if u.RefreshToken == digest {
			return r.get(id)
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *AuthRepository) SetRefreshToken(_ context.Context, userID, digest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.byID[userID]; ok {
		u.RefreshToken = digest
		u.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// get returns a copy so callers never alias stored state. Caller holds mu.
func (r *AuthRepository) get(id string) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

// AuditRepository keeps auth events in insertion order.
type AuditRepository struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) InsertEvent(_ context.Context, event *domain.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

// Events returns a snapshot of everything recorded so far.
func (r *AuditRepository) Events() []domain.AuthEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuthEvent, len(r.events))
	copy(out, r.events)
	return out
}
