package models

import "time"

// SyncPhase is the single tag describing where a sign-in attempt is in the
// reconciliation flow. Keeping phase as one enum (instead of loose
// pending/locked/error flags) makes contradictory combinations
// unrepresentable.
type SyncPhase string

const (
	PhaseUnauthenticated SyncPhase = "unauthenticated"
	PhaseAuthenticating  SyncPhase = "authenticating"
	PhaseSyncing         SyncPhase = "syncing"
	PhaseActive          SyncPhase = "active"
	PhaseBanned          SyncPhase = "banned"
	PhaseFailed          SyncPhase = "failed"
)

// SessionState is the per-attempt sync state persisted in the session store.
// Token is set only in the active phase; Error only in banned/failed.
type SessionState struct {
	Phase     SyncPhase `json:"phase"`
	StartedAt time.Time `json:"started_at"`
	Token     string    `json:"token,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// IdentityClaims are the fields consumed from a verified identity-provider
// token. Groups are applied only at first-time account creation, never to
// existing users.
type IdentityClaims struct {
	Email             string   `json:"email"`
	Username          string   `json:"username"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
	Name              string   `json:"name,omitempty"`
	Groups            []string `json:"groups,omitempty"`
}
