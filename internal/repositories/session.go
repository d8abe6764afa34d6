package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fraudwatch/fraud-monitor/internal/logger"
	"github.com/fraudwatch/fraud-monitor/internal/models"
)

// SessionStateRepository stores per-attempt sync state in Redis.
//
// Three key families exist:
//   - sync:state:{attempt}   — one JSON SessionState, TTL-bounded
//   - sync:started:{attempt} — SetNX one-shot guard admitting a single sync
//   - sync:banlock:{email}   — persistent ban lock, survives restarts; the
//     SetNX on this key is also the once-per-ban guard for the forced
//     global sign-out
type SessionStateRepository struct {
	client *redis.Client
	exp    time.Duration
}

// NewSessionStateRepository creates a session state repository. exp bounds
// the lifetime of attempt-scoped keys; the ban lock never expires.
func NewSessionStateRepository(client *redis.Client, expiration time.Duration) *SessionStateRepository {
	return &SessionStateRepository{
		client: client,
		exp:    expiration,
	}
}

func stateKey(attemptID string) string   { return fmt.Sprintf("sync:state:%s", attemptID) }
func startedKey(attemptID string) string { return fmt.Sprintf("sync:started:%s", attemptID) }
func banLockKey(email string) string     { return fmt.Sprintf("sync:banlock:%s", email) }

// Get fetches the state for an attempt. Returns (nil, nil) when absent.
func (r *SessionStateRepository) Get(ctx context.Context, attemptID string) (*models.SessionState, error) {
	key := stateKey(attemptID)

	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		logger.Log.Infow(
			"key", key,
			"error", err,
		)
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var state models.SessionState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, err
	}

	logger.Log.Infow(
		"key", key,
		"phase", state.Phase,
		"error", nil,
	)

	return &state, nil
}

// Set stores the state for an attempt with expiration.
func (r *SessionStateRepository) Set(ctx context.Context, attemptID string, state models.SessionState) error {
	key := stateKey(attemptID)

	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	err = r.client.Set(ctx, key, data, r.exp).Err()

	logger.Log.Infow(
		"key", key,
		"phase", state.Phase,
		"error", err,
	)

	return err
}

// Delete removes all attempt-scoped keys. The ban lock is untouched.
func (r *SessionStateRepository) Delete(ctx context.Context, attemptID string) error {
	err := r.client.Del(ctx, stateKey(attemptID), startedKey(attemptID)).Err()

	logger.Log.Infow(
		"key", stateKey(attemptID),
		"result", "deleted",
		"error", err,
	)

	return err
}

// MarkStarted admits exactly one sync per attempt. Returns true for the
// first caller, false for every racing duplicate.
func (r *SessionStateRepository) MarkStarted(ctx context.Context, attemptID string) (bool, error) {
	key := startedKey(attemptID)

	ok, err := r.client.SetNX(ctx, key, time.Now().Unix(), r.exp).Result()

	logger.Log.Infow(
		"key", key,
		"admitted", ok,
		"error", err,
	)

	return ok, err
}

// AcquireBanLock sets the persistent ban lock for an email. Returns true
// when this call created the lock, false when it already existed. The
// true return is the one-shot signal for the forced global sign-out.
func (r *SessionStateRepository) AcquireBanLock(ctx context.Context, email string) (bool, error) {
	key := banLockKey(email)

	ok, err := r.client.SetNX(ctx, key, time.Now().Unix(), 0).Result()

	logger.Log.Infow(
		"key", key,
		"acquired", ok,
		"error", err,
	)

	return ok, err
}

// HasBanLock reports whether a persistent ban lock exists for an email.
func (r *SessionStateRepository) HasBanLock(ctx context.Context, email string) (bool, error) {
	n, err := r.client.Exists(ctx, banLockKey(email)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClearBanLock removes the ban lock. Called when an admin unbans the user.
func (r *SessionStateRepository) ClearBanLock(ctx context.Context, email string) error {
	err := r.client.Del(ctx, banLockKey(email)).Err()

	logger.Log.Infow(
		"key", banLockKey(email),
		"result", "cleared",
		"error", err,
	)

	return err
}
