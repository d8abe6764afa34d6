package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fraudwatch/fraud-monitor/internal/logger"
	"github.com/fraudwatch/fraud-monitor/internal/models"
)

// Error variables
var (
	ErrUnknownAttempt = errors.New("unknown sign-in attempt")
	ErrSessionBanned  = errors.New("account is suspended")
)

// User-facing sync messages.
const (
	MsgSignInTimeout = "Sign-in timed out. Please try again."
	MsgSignInFailed  = "Sign-in failed. Please try again."
	MsgBanned        = "Your account has been suspended. Contact support."
)

// SessionStore persists per-attempt sync state and the one-shot guards.
type SessionStore interface {
	Get(ctx context.Context, attemptID string) (*models.SessionState, error)
	Set(ctx context.Context, attemptID string, state models.SessionState) error
	Delete(ctx context.Context, attemptID string) error
	MarkStarted(ctx context.Context, attemptID string) (bool, error)
	AcquireBanLock(ctx context.Context, email string) (bool, error)
	HasBanLock(ctx context.Context, email string) (bool, error)
}

// SyncUserReader looks up application users during reconciliation.
type SyncUserReader interface {
	GetByUsernameOrEmail(ctx context.Context, username, email *string) (*models.UserDB, error)
}

// SyncUserWriter creates application users at first sync.
type SyncUserWriter interface {
	Save(ctx context.Context, user models.UserDB) (uuid.UUID, error)
}

// IdentityProvider is the hosted identity provider collaborator.
type IdentityProvider interface {
	VerifyToken(ctx context.Context, token string) (*models.IdentityClaims, error)
	GlobalSignOut(ctx context.Context, username string) error
}

// SessionTokenGenerator issues application session tokens.
type SessionTokenGenerator interface {
	Generate(ctx context.Context, userID uuid.UUID, role string) (string, error)
}

// AuditWriter appends audit log entries.
type AuditWriter interface {
	Save(ctx context.Context, actor, action, details string) error
}

// SyncService reconciles an externally-authenticated identity with the
// application user record and gates session establishment.
//
// Per-attempt flow: Begin marks the attempt pending and arms the watchdog;
// Complete runs lookup -> create-if-absent -> ban-check -> activate,
// strictly in that order. A Redis SetNX guard admits exactly one Complete
// per attempt, so a racing duplicate (provider event plus direct check)
// neither re-creates the user nor double-writes audit entries.
type SyncService struct {
	sessions SessionStore
	reader   SyncUserReader
	writer   SyncUserWriter
	identity IdentityProvider
	tokens   SessionTokenGenerator
	audit    AuditWriter

	watchdog time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewSyncService creates a SyncService. watchdog bounds how long a sign-in
// attempt may stay pending before it is declared failed.
func NewSyncService(
	sessions SessionStore,
	reader SyncUserReader,
	writer SyncUserWriter,
	identity IdentityProvider,
	tokens SessionTokenGenerator,
	audit AuditWriter,
	watchdog time.Duration,
) *SyncService {
	return &SyncService{
		sessions: sessions,
		reader:   reader,
		writer:   writer,
		identity: identity,
		tokens:   tokens,
		audit:    audit,
		watchdog: watchdog,
		timers:   make(map[string]*time.Timer),
	}
}

// Begin registers a new sign-in attempt: any stale state for the attempt
// id is overwritten, the pending marker is set and the watchdog armed.
// Returns the attempt id (generated when empty).
func (s *SyncService) Begin(ctx context.Context, attemptID string) (string, error) {
	if attemptID == "" {
		attemptID = uuid.NewString()
	}

	state := models.SessionState{
		Phase:     models.PhaseAuthenticating,
		StartedAt: time.Now(),
	}
	if err := s.sessions.Set(ctx, attemptID, state); err != nil {
		logger.Log.Errorw("failed to set pending marker", "attempt", attemptID, "err", err)
		return "", err
	}

	s.armWatchdog(attemptID)

	logger.Log.Infow("sign-in attempt started", "attempt", attemptID)
	return attemptID, nil
}

// armWatchdog starts (or restarts) the attempt's watchdog timer. When it
// fires with the attempt still pending, the attempt is marked failed with
// a retry message. The timer is advisory: nothing in flight is aborted.
func (s *SyncService) armWatchdog(attemptID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[attemptID]; ok {
		t.Stop()
	}

	s.timers[attemptID] = time.AfterFunc(s.watchdog, func() {
		s.mu.Lock()
		delete(s.timers, attemptID)
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		state, err := s.sessions.Get(ctx, attemptID)
		if err != nil || state == nil {
			return
		}
		if state.Phase != models.PhaseAuthenticating && state.Phase != models.PhaseSyncing {
			// Already resolved; banned and active attempts are never
			// overwritten by the watchdog.
			return
		}

		state.Phase = models.PhaseFailed
		state.Error = MsgSignInTimeout
		if err := s.sessions.Set(ctx, attemptID, *state); err != nil {
			logger.Log.Errorw("watchdog failed to mark attempt", "attempt", attemptID, "err", err)
			return
		}
		logger.Log.Infow("sign-in attempt timed out", "attempt", attemptID)
	})
}

// stopWatchdog cancels a pending watchdog timer, if any.
func (s *SyncService) stopWatchdog(attemptID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[attemptID]; ok {
		t.Stop()
		delete(s.timers, attemptID)
	}
}

// State returns the current state of an attempt.
func (s *SyncService) State(ctx context.Context, attemptID string) (*models.SessionState, error) {
	state, err := s.sessions.Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrUnknownAttempt
	}
	return state, nil
}

// Cancel abandons an attempt: the watchdog is stopped and attempt-scoped
// state removed, so no stale error can fire after the user has left the
// flow. The ban lock, when present, survives.
func (s *SyncService) Cancel(ctx context.Context, attemptID string) error {
	s.stopWatchdog(attemptID)
	return s.sessions.Delete(ctx, attemptID)
}

// Complete finishes a sign-in attempt with the provider-issued identity
// token. Idempotent: only the first invocation per attempt performs the
// sync; duplicates return the stored state unchanged.
func (s *SyncService) Complete(ctx context.Context, attemptID, identityToken string) (*models.SessionState, error) {
	current, err := s.sessions.Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrUnknownAttempt
	}

	admitted, err := s.sessions.MarkStarted(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if !admitted {
		// A racing event already started (or finished) this sync.
		logger.Log.Infow("duplicate sync suppressed", "attempt", attemptID)
		return current, nil
	}

	if err := s.transition(ctx, attemptID, models.SessionState{
		Phase:     models.PhaseSyncing,
		StartedAt: current.StartedAt,
	}); err != nil {
		return nil, err
	}

	state := s.reconcile(ctx, attemptID, current.StartedAt, identityToken)

	if err := s.sessions.Set(ctx, attemptID, state); err != nil {
		logger.Log.Errorw("failed to store sync outcome", "attempt", attemptID, "err", err)
		return nil, err
	}
	if state.Phase != models.PhaseSyncing && state.Phase != models.PhaseAuthenticating {
		s.stopWatchdog(attemptID)
	}

	return &state, nil
}

// reconcile executes lookup -> create-if-absent -> ban-check -> activate
// and returns the resulting terminal state for the attempt.
func (s *SyncService) reconcile(ctx context.Context, attemptID string, startedAt time.Time, identityToken string) models.SessionState {
	failed := func(msg string) models.SessionState {
		return models.SessionState{Phase: models.PhaseFailed, StartedAt: startedAt, Error: msg}
	}

	claims, err := s.identity.VerifyToken(ctx, identityToken)
	if err != nil {
		logger.Log.Errorw("identity verification failed", "attempt", attemptID, "err", err)
		return failed(MsgSignInFailed)
	}

	user, err := s.reader.GetByUsernameOrEmail(ctx, nil, &claims.Email)
	if err != nil {
		logger.Log.Errorw("user lookup failed", "attempt", attemptID, "email", claims.Email, "err", err)
		return failed(MsgSignInFailed)
	}

	if user == nil {
		user, err = s.createUser(ctx, claims)
		if err != nil {
			logger.Log.Errorw("user creation failed", "attempt", attemptID, "email", claims.Email, "err", err)
			return failed(MsgSignInFailed)
		}
	}

	if user.IsBanned {
		return s.handleBanned(ctx, attemptID, startedAt, user)
	}

	token, err := s.tokens.Generate(ctx, user.UserID, user.Role)
	if err != nil {
		logger.Log.Errorw("token generation failed", "attempt", attemptID, "err", err)
		return failed(MsgSignInFailed)
	}

	if err := s.audit.Save(ctx, user.Username, models.AuditActionLogin, "session established"); err != nil {
		logger.Log.Errorw("failed to audit login", "attempt", attemptID, "err", err)
	}

	logger.Log.Infow("session active", "attempt", attemptID, "user", user.Username)
	return models.SessionState{
		Phase:     models.PhaseActive,
		StartedAt: startedAt,
		Token:     token,
	}
}

// handleBanned locks the session out. The SetNX on the persistent ban
// lock is the one-shot guard: the forced global sign-out fires exactly
// once per ban detection, repeats only surface the message.
func (s *SyncService) handleBanned(ctx context.Context, attemptID string, startedAt time.Time, user *models.UserDB) models.SessionState {
	acquired, err := s.sessions.AcquireBanLock(ctx, user.Email)
	if err != nil {
		logger.Log.Errorw("failed to acquire ban lock", "attempt", attemptID, "err", err)
	}

	if acquired {
		if err := s.identity.GlobalSignOut(ctx, user.Username); err != nil {
			logger.Log.Errorw("forced global sign-out failed", "user", user.Username, "err", err)
		}
		if err := s.audit.Save(ctx, user.Username, models.AuditActionLoginBanned, "banned user sign-in rejected"); err != nil {
			logger.Log.Errorw("failed to audit banned login", "attempt", attemptID, "err", err)
		}
	}

	logger.Log.Infow("banned user rejected", "attempt", attemptID, "user", user.Username)
	return models.SessionState{
		Phase:     models.PhaseBanned,
		StartedAt: startedAt,
		Error:     MsgBanned,
	}
}

// createUser provisions the application record on first sync. Role comes
// from provider group claims only here; existing users never have their
// role changed by claims.
func (s *SyncService) createUser(ctx context.Context, claims *models.IdentityClaims) (*models.UserDB, error) {
	username, err := s.resolveUsername(ctx, claims)
	if err != nil {
		return nil, err
	}

	user := models.UserDB{
		Username: username,
		Email:    claims.Email,
		Role:     roleFromGroups(claims.Groups),
		Balance:  models.StartingBalance,
	}
	if claims.Name != "" {
		name := claims.Name
		user.FullName = &name
	}

	userID, err := s.writer.Save(ctx, user)
	if err != nil {
		return nil, err
	}
	user.UserID = userID

	if err := s.audit.Save(ctx, username, models.AuditActionUserCreated,
		fmt.Sprintf("account created at first sign-in for %s", claims.Email)); err != nil {
		logger.Log.Errorw("failed to audit user creation", "user", username, "err", err)
	}

	logger.Log.Infow("application user created", "user", username, "email", claims.Email)
	return &user, nil
}

// resolveUsername derives a username from the identity claims:
// preferred_username, then the provider username, then the email local
// part. Conflicts get a numeric suffix.
func (s *SyncService) resolveUsername(ctx context.Context, claims *models.IdentityClaims) (string, error) {
	base := claims.PreferredUsername
	if base == "" {
		base = claims.Username
	}
	if base == "" {
		base = usernameFromEmail(claims.Email)
	}

	candidate := base
	for i := 1; ; i++ {
		existing, err := s.reader.GetByUsernameOrEmail(ctx, &candidate, nil)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
}

// usernameFromEmail produces the fallback username from an email address.
func usernameFromEmail(email string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	local = strings.ToLower(local)
	local = strings.ReplaceAll(local, ".", "")
	local = strings.ReplaceAll(local, "-", "")
	return local
}

// roleFromGroups maps provider group claims to an application role at
// account creation time.
func roleFromGroups(groups []string) string {
	for _, g := range groups {
		switch strings.ToLower(g) {
		case "admins":
			return models.RoleAdmin
		case "employees":
			return models.RoleEmployee
		}
	}
	return models.RoleCustomer
}

func (s *SyncService) transition(ctx context.Context, attemptID string, state models.SessionState) error {
	if err := s.sessions.Set(ctx, attemptID, state); err != nil {
		logger.Log.Errorw("failed to store sync state", "attempt", attemptID, "phase", state.Phase, "err", err)
		return err
	}
	return nil
}
