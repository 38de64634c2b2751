package backend

import "time"

// SessionStatus is the server-authoritative lifecycle state of a Session.
// The client renders whatever the backend reports and never enforces
// transitions itself.
type SessionStatus string

const (
	SessionDraft      SessionStatus = "draft"
	SessionGenerating SessionStatus = "generating"
	SessionReady      SessionStatus = "ready"
	SessionExported   SessionStatus = "exported"
)

// JobType identifies one asynchronous backend processing stage.
type JobType string

const (
	JobParseChanges       JobType = "parse-changes"
	JobGenerateNotes      JobType = "generate-notes"
	JobAnalyzeHotspots    JobType = "analyze-hotspots"
	JobGenerateTestplan   JobType = "generate-testplan"
	JobGenerateChecklists JobType = "generate-testchecklists"
)

// JobStatus is the lifecycle state of a Job. Entirely server-driven.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is one asynchronous processing stage owned by exactly one Session.
type Job struct {
	ID          string     `json:"id"`
	Type        JobType    `json:"type"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// SessionStats summarizes the analyzed commit range.
type SessionStats struct {
	PRCount     int `json:"prCount"`
	CommitCount int `json:"commitCount"`
	FileCount   int `json:"fileCount"`
	Additions   int `json:"additions"`
	Deletions   int `json:"deletions"`
}

// Session is a user-created unit of work scoping one repository commit
// range and its generated artifacts.
type Session struct {
	ID           string        `json:"id"`
	RepoFullName string        `json:"repoFullName"`
	Name         string        `json:"name"`
	Status       SessionStatus `json:"status"`
	BaseRef      string        `json:"baseRef"`
	HeadRef      string        `json:"headRef"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	Jobs         []Job         `json:"jobs"`
	Stats        SessionStats  `json:"stats"`
}

// CreateSessionRequest is the payload for POST /sessions.
type CreateSessionRequest struct {
	Name         string `json:"name"`
	RepoFullName string `json:"repoFullName"`
	BaseRef      string `json:"baseRef"`
	HeadRef      string `json:"headRef"`
}

// PatchOp is one typed operation in an ordered artifact patch batch.
type PatchOp struct {
	Op       string `json:"op"`
	ItemID   string `json:"itemId,omitempty"`
	CaseID   string `json:"caseId,omitempty"`
	Section  string `json:"section,omitempty"`
	Text     string `json:"text,omitempty"`
	Checked  *bool  `json:"checked,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// Patch operation names understood by the artifact endpoints.
const (
	OpUpdateText     = "updateText"
	OpCheck          = "check"
	OpChangePriority = "changePriority"
	OpExclude        = "exclude"
	OpInclude        = "include"
	OpAddItem        = "addItem"
	OpAddCase        = "addCase"
	OpDeleteCase     = "deleteCase"
)

// ItemStatus marks per-item regeneration state inside an artifact.
type ItemStatus string

const (
	ItemReady        ItemStatus = "ready"
	ItemRegenerating ItemStatus = "regenerating"
)

// NoteItem is one release-note entry.
type NoteItem struct {
	ID       string     `json:"id"`
	Text     string     `json:"text"`
	PRNumber int        `json:"prNumber,omitempty"`
	Excluded bool       `json:"excluded"`
	Status   ItemStatus `json:"status,omitempty"`
}

// NoteSection groups release-note items under a heading.
type NoteSection struct {
	Title string     `json:"title"`
	Items []NoteItem `json:"items"`
}

// ReleaseNotes is the release-notes artifact. The backend is the sole
// source of truth; a patch response replaces it wholesale.
type ReleaseNotes struct {
	SessionID string        `json:"sessionId"`
	Sections  []NoteSection `json:"sections"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Change is one analyzed pull request or commit in the changes artifact.
type Change struct {
	PRNumber int      `json:"prNumber,omitempty"`
	SHA      string   `json:"sha,omitempty"`
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Category string   `json:"category"`
	Labels   []string `json:"labels,omitempty"`
	MergedAt string   `json:"mergedAt,omitempty"`
}

// Changes is the read-only changes artifact.
type Changes struct {
	SessionID string       `json:"sessionId"`
	Items     []Change     `json:"items"`
	Stats     SessionStats `json:"stats"`
}

// Hotspot is one risk-ranked file or area in the hotspots artifact.
type Hotspot struct {
	Path       string  `json:"path"`
	Score      float64 `json:"score"`
	ChangeRate int     `json:"changeRate"`
	Reason     string  `json:"reason,omitempty"`
}

// Hotspots is the read-only hotspots artifact.
type Hotspots struct {
	SessionID string    `json:"sessionId"`
	Items     []Hotspot `json:"items"`
}

// TestCase is one checkable entry in the test plan.
type TestCase struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	Priority  string     `json:"priority"`
	Checked   bool       `json:"checked"`
	Status    ItemStatus `json:"status,omitempty"`
	Checklist []string   `json:"checklist,omitempty"`
}

// TestSection groups test cases under a feature or area heading.
type TestSection struct {
	Title string     `json:"title"`
	Cases []TestCase `json:"cases"`
}

// TestPlan is the test-plan artifact.
type TestPlan struct {
	SessionID string        `json:"sessionId"`
	Sections  []TestSection `json:"sections"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// ExportRequest asks the backend to render a session's artifacts.
type ExportRequest struct {
	Format string `json:"format"` // "markdown", "json" or "github"
	Target string `json:"target,omitempty"`
}

// ExportResult is the backend's rendering of an export request.
type ExportResult struct {
	Format  string `json:"format"`
	Content string `json:"content,omitempty"`
	URL     string `json:"url,omitempty"`
}
