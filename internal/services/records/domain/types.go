// Package domain holds the record types and port contracts for stored
// repository descriptions
package domain

import (
	"time"

	"repolens/internal/core/synthesize"
)

// Record is one versioned repository description owned by a tenant.
// Re-detections append a new version; records are never mutated in place
// except through an explicit Update
type Record struct {
	ID        string                 `json:"id"`
	TenantID  string                 `json:"tenant_id"`
	RepoKey   string                 `json:"repo_key"` // normalized repository identity
	Version   int                    `json:"version"`
	CreatedAt time.Time              `json:"created_at"`
	Desc      synthesize.Description `json:"description"`
}

// SearchQuery filters the search endpoint
type SearchQuery struct {
	Text        string `json:"q,omitempty" validate:"omitempty,max=200"`
	Language    string `json:"language,omitempty" validate:"omitempty,max=50"`
	ProjectType string `json:"project_type,omitempty" validate:"omitempty,max=50"`
	Page        int    `json:"page,omitempty" validate:"omitempty,min=1"`
	Size        int    `json:"size,omitempty" validate:"omitempty,min=1,max=100"`
}

// Normalize applies paging defaults
func (q *SearchQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Size < 1 || q.Size > 100 {
		q.Size = 20
	}
}
