package backend

import (
	"context"
	"net/url"
)

// UserSource says which allowlist admitted an authenticated user.
type UserSource string

const (
	SourceCommunity      UserSource = "community-md"
	SourceExtraAllowlist UserSource = "extra-allowlist"
	SourceAccessDisabled UserSource = "access-control-disabled"
)

// AuthUser is a verified identity. Produced only by a successful /auth/me.
type AuthUser struct {
	Login  string     `json:"login"`
	Source UserSource `json:"source"`
}

// Me verifies the current credential against the identity endpoint. With no
// credential attached it probes whether the backend runs with access
// control disabled.
func (c *Client) Me(ctx context.Context) (*AuthUser, error) {
	var user AuthUser
	if err := c.http.Get(ctx, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GitHubStartURL builds the OAuth kickoff URL. returnTo is echoed back by
// the backend after the provider flow so the caller lands where it started.
func (c *Client) GitHubStartURL(returnTo string) (string, error) {
	q := url.Values{}
	if returnTo != "" {
		q.Set("returnTo", returnTo)
	}
	return c.http.URL("/auth/github/start", q)
}
