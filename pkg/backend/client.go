// Package backend is the typed surface over the release-session HTTP API.
// One method per endpoint; request shaping only, no domain logic.
package backend

import (
	"context"
	"net/url"

	"github.com/releasekit/releasekit-go/pkg/transport"
)

// Client exposes every backend endpoint as a typed method.
type Client struct {
	http *transport.Client
}

// New wraps a transport client.
func New(http *transport.Client) *Client {
	return &Client{http: http}
}

// Configured reports whether the underlying transport has a base URL.
func (c *Client) Configured() bool { return c != nil && c.http.Configured() }

// ListSessions returns every release session.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var sessions []Session
	if err := c.http.Get(ctx, "/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// CreateSession creates a new release session for a commit range.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	var session Session
	if err := c.http.Post(ctx, "/sessions", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession fetches one session by id.
func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	var session Session
	if err := c.http.Get(ctx, "/sessions/"+url.PathEscape(id), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes a session and its artifacts.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.http.Delete(ctx, "/sessions/"+url.PathEscape(id))
}

// ListJobs returns the processing stages of one session.
func (c *Client) ListJobs(ctx context.Context, sessionID string) ([]Job, error) {
	var jobs []Job
	if err := c.http.Get(ctx, "/sessions/"+url.PathEscape(sessionID)+"/jobs", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetChanges fetches the read-only changes artifact.
func (c *Client) GetChanges(ctx context.Context, sessionID string) (*Changes, error) {
	var changes Changes
	if err := c.http.Get(ctx, artifactPath(sessionID, "changes"), nil, &changes); err != nil {
		return nil, err
	}
	return &changes, nil
}

// GetReleaseNotes fetches the release-notes artifact.
func (c *Client) GetReleaseNotes(ctx context.Context, sessionID string) (*ReleaseNotes, error) {
	var notes ReleaseNotes
	if err := c.http.Get(ctx, artifactPath(sessionID, "release-notes"), nil, &notes); err != nil {
		return nil, err
	}
	return &notes, nil
}

// PatchReleaseNotes applies an ordered op batch and returns the canonical
// artifact, which callers adopt wholesale.
func (c *Client) PatchReleaseNotes(ctx context.Context, sessionID string, ops []PatchOp) (*ReleaseNotes, error) {
	var notes ReleaseNotes
	body := map[string][]PatchOp{"operations": ops}
	if err := c.http.Patch(ctx, artifactPath(sessionID, "release-notes"), body, &notes); err != nil {
		return nil, err
	}
	return &notes, nil
}

// RegenerateNoteItem triggers a backend regeneration job for one item.
// Completion is observed by polling GetReleaseNotes, not by this call.
func (c *Client) RegenerateNoteItem(ctx context.Context, sessionID, itemID string) error {
	path := artifactPath(sessionID, "release-notes") + "/items/" + url.PathEscape(itemID) + "/regenerate"
	return c.http.Post(ctx, path, nil, nil)
}

// GetHotspots fetches the read-only hotspots artifact.
func (c *Client) GetHotspots(ctx context.Context, sessionID string) (*Hotspots, error) {
	var hotspots Hotspots
	if err := c.http.Get(ctx, artifactPath(sessionID, "hotspots"), nil, &hotspots); err != nil {
		return nil, err
	}
	return &hotspots, nil
}

// GetTestPlan fetches the test-plan artifact.
func (c *Client) GetTestPlan(ctx context.Context, sessionID string) (*TestPlan, error) {
	var plan TestPlan
	if err := c.http.Get(ctx, artifactPath(sessionID, "test-plan"), nil, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// PatchTestPlan applies an ordered op batch and returns the canonical plan.
func (c *Client) PatchTestPlan(ctx context.Context, sessionID string, ops []PatchOp) (*TestPlan, error) {
	var plan TestPlan
	body := map[string][]PatchOp{"operations": ops}
	if err := c.http.Patch(ctx, artifactPath(sessionID, "test-plan"), body, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// QueueChecklists asks the backend to generate checklists for the given cases.
func (c *Client) QueueChecklists(ctx context.Context, sessionID string, caseIDs []string) error {
	path := artifactPath(sessionID, "test-plan") + "/checklists/queue"
	body := map[string][]string{"caseIds": caseIDs}
	return c.http.Post(ctx, path, body, nil)
}

// Export renders a session's artifacts into the requested format.
func (c *Client) Export(ctx context.Context, sessionID string, req ExportRequest) (*ExportResult, error) {
	var result ExportResult
	if err := c.http.Post(ctx, "/sessions/"+url.PathEscape(sessionID)+"/exports", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func artifactPath(sessionID, name string) string {
	return "/sessions/" + url.PathEscape(sessionID) + "/artifacts/" + name
}
