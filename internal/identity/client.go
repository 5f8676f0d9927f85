// Package identity implements HTTP clients for the backend identity
// service: the identity API consumed by the authority engine, and a
// session provider backed by the same service for development setups
// without a separate authentication provider.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sparkyfit/authority/internal/authority"
)

// Client talks to the backend identity service. It implements
// authority.IdentityAPI. The opaque session token is sent as a bearer
// token on every request.
type Client struct {
	baseURL string
	token   string
	hc      *http.Client
}

// NewClient constructs a Client for the service at baseURL. hc may be
// nil, in which case http.DefaultClient is used.
func NewClient(baseURL, token string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		hc:      hc,
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ActiveIdentity fetches the authoritative active-principal identity
// from GET /identity/user.
func (c *Client) ActiveIdentity(ctx context.Context) (*authority.ActiveIdentity, error) {
	var body struct {
		ActiveUserID       string `json:"activeUserId"`
		ActiveUserFullName string `json:"activeUserFullName"`
		ActiveUserEmail    string `json:"activeUserEmail"`
	}
	if err := c.get(ctx, "/identity/user", &body); err != nil {
		return nil, err
	}
	return &authority.ActiveIdentity{
		ActiveUserID:       body.ActiveUserID,
		ActiveUserFullName: body.ActiveUserFullName,
		ActiveUserEmail:    body.ActiveUserEmail,
	}, nil
}

// accessibleUser is the wire shape of one accessible-users entry.
// Permissions stays a raw flag map; older servers emit legacy field
// names that the delegation directory canonicalizes.
type accessibleUser struct {
	UserID        string          `json:"user_id"`
	FullName      string          `json:"full_name"`
	Email         string          `json:"email"`
	Permissions   map[string]bool `json:"permissions"`
	AccessEndDate string          `json:"access_end_date"`
}

// AccessibleUsers lists the principals who granted the authenticated
// principal access, from GET /identity/users/accessible-users.
func (c *Client) AccessibleUsers(ctx context.Context) ([]authority.AccessibleUser, error) {
	var raw []accessibleUser
	if err := c.get(ctx, "/identity/users/accessible-users", &raw); err != nil {
		return nil, err
	}

	users := make([]authority.AccessibleUser, 0, len(raw))
	for _, u := range raw {
		users = append(users, authority.AccessibleUser{
			UserID:        u.UserID,
			FullName:      u.FullName,
			Email:         u.Email,
			Permissions:   u.Permissions,
			AccessEndDate: parseEndDate(u.AccessEndDate),
		})
	}
	return users, nil
}

// parseEndDate accepts the timestamp and date-only shapes the backend
// has used for access_end_date. Empty or unparseable values mean no
// expiry.
func parseEndDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// SwitchContext posts the context-switch request. A non-2xx response is
// returned as a *authority.ContextSwitchError carrying the server's
// error message.
func (c *Client) SwitchContext(ctx context.Context, targetUserID string) (string, error) {
	payload, err := json.Marshal(map[string]string{"targetUserId": targetUserID})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/identity/switch-context", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("switch context: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var fail struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&fail)
		return "", &authority.ContextSwitchError{
			Message:    fail.Error,
			StatusCode: resp.StatusCode,
		}
	}

	// A success response without an active id is valid; the engine
	// falls back to the requested target.
	var ok struct {
		ActiveUserID string `json:"activeUserId"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&ok)
	return ok.ActiveUserID, nil
}
