package domain

import "time"

// AuthEventType names a session lifecycle transition.
type AuthEventType string

const (
	EventRegistered      AuthEventType = "registered"
	EventLoginSucceeded  AuthEventType = "login_succeeded"
	EventLoginFailed     AuthEventType = "login_failed"
	EventLoginThrottled  AuthEventType = "login_throttled"
	EventTokenRefreshed  AuthEventType = "token_refreshed"
	EventRefreshRejected AuthEventType = "refresh_rejected"
	EventLoggedOut       AuthEventType = "logged_out"
)

// AuthEvent is an audit record of a session lifecycle transition.
// UserID is empty when the actor could not be resolved (e.g. unknown login).
type AuthEvent struct {
	Type       AuthEventType
	UserID     string
	Identifier string
	Reason     string
	OccurredAt time.Time
}

// ShardKey returns the value events are ordered by.
func (e AuthEvent) ShardKey() string {
	if e.UserID != "" {
		return e.UserID
	}
	return e.Identifier
}
