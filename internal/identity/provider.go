package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sparkyfit/authority/internal/authority"
	"github.com/sparkyfit/authority/internal/models"
)

// ProviderClient is a SessionProvider backed by the identity service's
// session endpoints. In production the session provider is a separate
// authentication product; this client serves development and testing
// setups where identityd stands in for it.
type ProviderClient struct {
	baseURL string
	token   string
	hc      *http.Client
}

// NewProviderClient constructs a ProviderClient for the service at
// baseURL. hc may be nil.
func NewProviderClient(baseURL, token string, hc *http.Client) *ProviderClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &ProviderClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		hc:      hc,
	}
}

// GetSession returns the current session, or nil when the service no
// longer honors the token.
func (p *ProviderClient) GetSession(ctx context.Context) (*models.ProviderSession, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/identity/session", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, nil // signed out
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get session: unexpected status %d", resp.StatusCode)
	}

	var session models.ProviderSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if session.User.ID == "" {
		return nil, nil
	}
	return &session, nil
}

// SignOut revokes the session behind the token.
func (p *ProviderClient) SignOut(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/identity/signout", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.hc.Do(req)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sign out: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// StartSessionPoll re-polls the provider session on the given interval
// and feeds every result into the engine, standing in for the
// provider's session-change subscription. It stops when ctx is done.
func StartSessionPoll(
	ctx context.Context,
	provider authority.SessionProvider,
	engine *authority.Engine,
	interval time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				session, err := provider.GetSession(ctx)
				if err != nil {
					log.Error("session poll failed", zap.Error(err))
					continue
				}
				engine.HandleSessionChange(ctx, session)
			}
		}
	}()
}
