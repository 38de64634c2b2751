package backend

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// IssueSummary is one GitHub issue as indexed by the backend.
type IssueSummary struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	Product   string    `json:"product,omitempty"`
	Version   string    `json:"version,omitempty"`
	Reactions int       `json:"reactions"`
	Comments  int       `json:"comments"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// Cluster is a backend-computed group of semantically similar issues.
type Cluster struct {
	ID      string         `json:"id"`
	Label   string         `json:"label"`
	Size    int            `json:"size"`
	Issues  []IssueSummary `json:"issues"`
	Product string         `json:"product,omitempty"`
	Version string         `json:"version,omitempty"`
}

// IssueDetail extends a summary with body and cluster membership.
type IssueDetail struct {
	IssueSummary
	Body      string   `json:"body"`
	Labels    []string `json:"labels,omitempty"`
	ClusterID string   `json:"clusterId,omitempty"`
}

// SimilarIssue pairs an issue with its semantic distance to the query issue.
type SimilarIssue struct {
	Issue IssueSummary `json:"issue"`
	Score float64      `json:"score"`
}

// SearchResult is one hit from plain or semantic search.
type SearchResult struct {
	Issue   IssueSummary `json:"issue"`
	Score   float64      `json:"score,omitempty"`
	Snippet string       `json:"snippet,omitempty"`
}

// SyncStatus reports the state of the backend's issue-sync pipeline.
type SyncStatus struct {
	State      string     `json:"state"` // "idle", "syncing", "failed"
	Synced     int        `json:"synced"`
	Total      int        `json:"total"`
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// IssueStats aggregates counts for the issue dashboard.
type IssueStats struct {
	TotalIssues   int            `json:"totalIssues"`
	OpenIssues    int            `json:"openIssues"`
	ClusterCount  int            `json:"clusterCount"`
	ByProduct     map[string]int `json:"byProduct,omitempty"`
	ByVersion     map[string]int `json:"byVersion,omitempty"`
	LastRecluster *time.Time     `json:"lastRecluster,omitempty"`
}

// IssueDashboard is the combined payload behind the dashboard view.
type IssueDashboard struct {
	Stats       IssueStats     `json:"stats"`
	TopClusters []Cluster      `json:"topClusters"`
	Recent      []IssueSummary `json:"recent"`
}

// IssueFilter scopes cluster and top-issue queries.
type IssueFilter struct {
	Product string
	Version string
}

func (f IssueFilter) values() url.Values {
	q := url.Values{}
	if f.Product != "" {
		q.Set("product", f.Product)
	}
	if f.Version != "" {
		q.Set("version", f.Version)
	}
	return q
}

// IssueVersions lists the product versions available for filtering.
func (c *Client) IssueVersions(ctx context.Context) ([]string, error) {
	var versions []string
	if err := c.http.Get(ctx, "/issues/versions", nil, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

// IssueProducts lists the products available for filtering.
func (c *Client) IssueProducts(ctx context.Context) ([]string, error) {
	var products []string
	if err := c.http.Get(ctx, "/issues/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Clusters returns the issue clusters for the given filter.
func (c *Client) Clusters(ctx context.Context, filter IssueFilter) ([]Cluster, error) {
	var clusters []Cluster
	if err := c.http.Get(ctx, "/issues/clusters", filter.values(), &clusters); err != nil {
		return nil, err
	}
	return clusters, nil
}

// SearchIssues performs a plain text search scoped by filter.
func (c *Client) SearchIssues(ctx context.Context, query string, filter IssueFilter) ([]SearchResult, error) {
	q := filter.values()
	q.Set("q", query)
	var results []SearchResult
	if err := c.http.Get(ctx, "/issues/search", q, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// SemanticSearch performs embedding-based search scoped by filter.
func (c *Client) SemanticSearch(ctx context.Context, query string, filter IssueFilter) ([]SearchResult, error) {
	q := filter.values()
	q.Set("q", query)
	var results []SearchResult
	if err := c.http.Get(ctx, "/issues/semantic-search", q, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// IssueSyncStatus reports sync pipeline progress.
func (c *Client) IssueSyncStatus(ctx context.Context) (*SyncStatus, error) {
	var status SyncStatus
	if err := c.http.Get(ctx, "/issues/sync-status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// IssueStats returns aggregate issue counts.
func (c *Client) IssueStats(ctx context.Context) (*IssueStats, error) {
	var stats IssueStats
	if err := c.http.Get(ctx, "/issues/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// IssueDashboard returns the combined dashboard payload.
func (c *Client) IssueDashboard(ctx context.Context) (*IssueDashboard, error) {
	var dash IssueDashboard
	if err := c.http.Get(ctx, "/issues/dashboard", nil, &dash); err != nil {
		return nil, err
	}
	return &dash, nil
}

// TopIssuesByReactions lists the most-reacted issues for the filter.
func (c *Client) TopIssuesByReactions(ctx context.Context, filter IssueFilter) ([]IssueSummary, error) {
	var issues []IssueSummary
	if err := c.http.Get(ctx, "/issues/top-by-reactions", filter.values(), &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// StartIssueSync kicks off a backend sync run.
func (c *Client) StartIssueSync(ctx context.Context) error {
	return c.http.Post(ctx, "/issues/sync", nil, nil)
}

// ResetIssueSync clears backend sync state.
func (c *Client) ResetIssueSync(ctx context.Context) error {
	return c.http.Post(ctx, "/issues/sync-reset", nil, nil)
}

// Recluster recomputes issue clusters server-side.
func (c *Client) Recluster(ctx context.Context) error {
	return c.http.Post(ctx, "/issues/recluster", nil, nil)
}

// SimilarIssues lists issues semantically close to issue n.
func (c *Client) SimilarIssues(ctx context.Context, n int) ([]SimilarIssue, error) {
	var similar []SimilarIssue
	if err := c.http.Get(ctx, "/issues/"+strconv.Itoa(n)+"/similar", nil, &similar); err != nil {
		return nil, err
	}
	return similar, nil
}

// IssueDetail fetches the full detail for issue n. A 404 means the issue has
// not been indexed yet; callers distinguish that through transport.IsNotFound.
func (c *Client) IssueDetail(ctx context.Context, n int) (*IssueDetail, error) {
	var detail IssueDetail
	if err := c.http.Get(ctx, "/issues/"+strconv.Itoa(n)+"/detail", nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}
