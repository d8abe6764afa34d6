package facades

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fraudwatch/fraud-monitor/internal/logger"
	"github.com/fraudwatch/fraud-monitor/internal/models"
)

// HTTPDoer is the minimal HTTP client interface the facade needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// IdentityFacade talks to the hosted identity provider's admin API:
// token verification and global sign-out. All requests are authenticated
// with the provider API key.
type IdentityFacade struct {
	client  HTTPDoer
	baseURL string
	apiKey  string
}

// NewIdentityFacade creates a facade for the given provider endpoint.
func NewIdentityFacade(client HTTPDoer, baseURL, apiKey string) *IdentityFacade {
	if client == nil {
		client = http.DefaultClient
	}
	return &IdentityFacade{client: client, baseURL: baseURL, apiKey: apiKey}
}

// VerifyToken asks the provider to introspect an identity token and
// returns the claims it vouches for. An invalid or expired token is an
// error, not empty claims.
func (f *IdentityFacade) VerifyToken(ctx context.Context, token string) (*models.IdentityClaims, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/oauth2/introspect", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.apiKey)

	resp, err := f.client.Do(req)
	if err != nil {
		logger.Log.Errorw("identity token introspection failed", "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Log.Errorw("identity token rejected", "status", resp.StatusCode)
		return nil, fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var out struct {
		Active bool                   `json:"active"`
		Claims models.IdentityClaims `json:"claims"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if !out.Active {
		return nil, fmt.Errorf("identity token is not active")
	}
	if out.Claims.Email == "" {
		return nil, fmt.Errorf("identity token has no email claim")
	}

	return &out.Claims, nil
}

// GlobalSignOut invalidates every provider session for the given user.
// Used when a banned user is detected during sync.
func (f *IdentityFacade) GlobalSignOut(ctx context.Context, username string) error {
	body, err := json.Marshal(map[string]string{"username": username})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/admin/global-sign-out", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.apiKey)

	resp, err := f.client.Do(req)
	if err != nil {
		logger.Log.Errorw("global sign-out request failed", "username", username, "error", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		logger.Log.Errorw("global sign-out rejected", "username", username, "status", resp.StatusCode)
		return fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	logger.Log.Infow("global sign-out completed", "username", username)
	return nil
}
