package repo

import (
	"context"
	"sort"
	"sync"

	perr "repolens/internal/platform/errors"
	"repolens/internal/services/detect/domain"
)

// Memory is an in-process JobStore, the default for tests and single-node
// deployments without Postgres
type Memory struct {
	mu   sync.RWMutex
	jobs map[string]domain.Job
}

// NewMemory creates an empty in-memory job store
func NewMemory() *Memory {
	return &Memory{jobs: make(map[string]domain.Job, 16)}
}

func (m *Memory) Create(_ context.Context, job domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return perr.DuplicateKeyf("job %s already exists", job.ID)
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *Memory) Get(_ context.Context, tenantID, id string) (*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok || job.TenantID != tenantID {
		return nil, perr.NotFoundf("job not found")
	}
	out := job
	return &out, nil
}

func (m *Memory) List(_ context.Context, tenantID string, in domain.ListInput) ([]domain.Job, int, error) {
	in.Normalize()
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []domain.Job
	for _, job := range m.jobs {
		if job.TenantID != tenantID {
			continue
		}
		if in.State != "" && job.State != in.State {
			continue
		}
		matched = append(matched, job)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	start := (in.Page - 1) * in.Size
	if start >= total {
		return nil, total, nil
	}
	end := start + in.Size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *Memory) Update(_ context.Context, job domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.jobs[job.ID]
	if !ok || existing.TenantID != job.TenantID {
		return perr.NotFoundf("job not found")
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *Memory) FindActive(_ context.Context, tenantID, repoKey string) (*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *domain.Job
	for _, job := range m.jobs {
		if job.TenantID != tenantID || job.RepoKey != repoKey {
			continue
		}
		if job.State != domain.StatePending && job.State != domain.StateRunning {
			continue
		}
		if best == nil || job.CreatedAt.Before(best.CreatedAt) {
			j := job
			best = &j
		}
	}
	return best, nil
}
