// Package roblox resolves opaque Roblox user IDs to display names.
//
// Resolution is strictly best-effort: the ledger must stay writable even
// when the identity service is down, so every failure path degrades to a
// deterministic placeholder instead of an error.
package roblox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// DefaultEndpoint is the public Roblox users API.
const DefaultEndpoint = "https://users.roblox.com/v1/users"

// Placeholder returns the deterministic fallback name for a player whose
// username could not be resolved.
func Placeholder(playerID string) string {
	return "User_" + playerID
}

// Resolver looks up usernames via the Roblox users API.
type Resolver struct {
	endpoint string
	client   *http.Client

	// OnFallback, when set, is called every time a lookup degrades to the
	// placeholder. Used to feed metrics.
	OnFallback func()
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithEndpoint overrides the users API endpoint (used by tests).
func WithEndpoint(url string) Option {
	return func(r *Resolver) { r.endpoint = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// NewResolver creates a Resolver with a short request timeout; a slow
// identity service should not hold up a ban.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type usersRequest struct {
	UserIDs            []int64 `json:"userIds"`
	ExcludeBannedUsers bool    `json:"excludeBannedUsers"`
}

type usersResponse struct {
	Data []struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
	} `json:"data"`
}

// Username resolves a player ID to a username. It never fails: network
// errors, non-200 responses, malformed bodies, and unknown IDs all return
// Placeholder(playerID).
func (r *Resolver) Username(ctx context.Context, playerID string) string {
	name, err := r.lookup(ctx, playerID)
	if err != nil {
		slog.Warn("username lookup failed, using placeholder", "player_id", playerID, "err", err)
		if r.OnFallback != nil {
			r.OnFallback()
		}
		return Placeholder(playerID)
	}
	return name
}

func (r *Resolver) lookup(ctx context.Context, playerID string) (string, error) {
	id, err := strconv.ParseInt(playerID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("roblox: non-numeric player id %q", playerID)
	}

	body, err := json.Marshal(usersRequest{UserIDs: []int64{id}, ExcludeBannedUsers: false})
	if err != nil {
		return "", fmt.Errorf("roblox: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("roblox: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("roblox: users request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("roblox: users request: status %d", resp.StatusCode)
	}

	var parsed usersResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("roblox: decode response: %w", err)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].Name == "" {
		return "", fmt.Errorf("roblox: unknown user %s", playerID)
	}
	return parsed.Data[0].Name, nil
}
