// Package domain defines the job types and port contracts for asynchronous
// repository detection
package domain

import "time"

// State is the job lifecycle state
type State string

// Job lifecycle states. Pending moves to running when a worker picks the job
// up; cancelled is reachable from pending and running
const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether the state admits no further transitions
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// ErrKind names the structured failure classes a job can end with
type ErrKind string

const (
	ErrKindNone       ErrKind = ""
	ErrKindScanLimit  ErrKind = "scan_limit_exceeded"
	ErrKindClone      ErrKind = "clone_failure"
	ErrKindStoreWrite ErrKind = "store_write_failure"
	ErrKindTimeout    ErrKind = "job_timeout"
	ErrKindCancelled  ErrKind = "job_cancelled"
	ErrKindEnrichment ErrKind = "enrichment_failure"
	ErrKindInternal   ErrKind = "internal"
)

// Source distinguishes local paths from remote clone URLs
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// Job is one detection request. TenantID is immutable after creation
type Job struct {
	ID         string            `json:"id"`
	TenantID   string            `json:"tenant_id"`
	Repository string            `json:"repository"`
	RepoKey    string            `json:"repo_key"` // normalized identity used for coalescing
	Source     string            `json:"source"`   // "local" | "remote"
	Priority   int               `json:"priority"`
	Force      bool              `json:"force,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`

	State    State  `json:"state"`
	Progress int    `json:"progress"` // 0..100
	Message  string `json:"message,omitempty"`

	RecordID   string  `json:"record_id,omitempty"`
	ErrKind    ErrKind `json:"error_kind,omitempty"`
	ErrMessage string  `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubmitInput is the request payload for a new detection job
type SubmitInput struct {
	Repository string            `json:"repository" validate:"required,max=500"`
	Priority   int               `json:"priority,omitempty" validate:"omitempty,min=-100,max=100"`
	Force      bool              `json:"force,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty" validate:"omitempty,max=20"`
}

// ListInput filters the job listing
type ListInput struct {
	State State `json:"state,omitempty"`
	Page  int   `json:"page,omitempty"`
	Size  int   `json:"size,omitempty"`
}

// Normalize applies paging defaults
func (in *ListInput) Normalize() {
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Size < 1 || in.Size > 100 {
		in.Size = 20
	}
}
