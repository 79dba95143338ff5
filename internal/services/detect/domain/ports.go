package domain

import (
	"context"

	recordsdom "repolens/internal/services/records/domain"
)

// ServicePort is the external contract of the job orchestrator
type ServicePort interface {
	// Submit validates and enqueues a detection job. When an active job for
	// the same (tenant, normalized repository) already exists and Force is
	// not set, the existing job is returned with coalesced=true
	Submit(ctx context.Context, tenantID string, in SubmitInput) (job *Job, coalesced bool, err error)

	Get(ctx context.Context, tenantID, id string) (*Job, error)
	List(ctx context.Context, tenantID string, in ListInput) ([]Job, int, error)

	// Cancel stops a pending job immediately or signals a running one; the
	// resulting state is returned
	Cancel(ctx context.Context, tenantID, id string) (*Job, error)
}

// JobStore persists jobs. Every read and update is tenant-scoped; a
// cross-tenant id behaves like a missing one
type JobStore interface {
	Create(ctx context.Context, job Job) error
	Get(ctx context.Context, tenantID, id string) (*Job, error)
	List(ctx context.Context, tenantID string, in ListInput) ([]Job, int, error)
	Update(ctx context.Context, job Job) error

	// FindActive returns the pending or running job for the repo key, or nil
	FindActive(ctx context.Context, tenantID, repoKey string) (*Job, error)
}

// Ports are dependencies injected into the detect module
type Ports struct {
	Records recordsdom.WriterPort // required
}

// EventSink receives job lifecycle transitions for analytics. Emission is
// fire-and-forget; sinks must not block job execution
type EventSink interface {
	Emit(ctx context.Context, job Job, event string)
}
