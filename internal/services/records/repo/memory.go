package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	perr "repolens/internal/platform/errors"
	"repolens/internal/services/records/domain"
)

// Memory is an in-process Repo for tests and the offline detection binary.
// It applies the same tenant filtering discipline as the SQL implementation
type Memory struct {
	mu   sync.RWMutex
	recs map[string]domain.Record
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{recs: make(map[string]domain.Record, 16)}
}

// Write appends a new version for the record's (tenant, repo key) identity
func (m *Memory) Write(_ context.Context, rec domain.Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	maxVersion := 0
	for _, existing := range m.recs {
		if existing.TenantID == rec.TenantID && existing.RepoKey == rec.RepoKey && existing.Version > maxVersion {
			maxVersion = existing.Version
		}
	}
	rec.Version = maxVersion + 1
	m.recs[rec.ID] = rec
	return rec.ID, nil
}

// Get returns the record only when the tenant owns it
func (m *Memory) Get(_ context.Context, tenantID, id string) (*domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.recs[id]
	if !ok || rec.TenantID != tenantID {
		return nil, perr.NotFoundf("record not found")
	}
	out := rec
	return &out, nil
}

// Search filters the tenant's records and pages the result
func (m *Memory) Search(_ context.Context, tenantID string, q domain.SearchQuery) ([]domain.Record, int, error) {
	q.Normalize()
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []domain.Record
	for _, rec := range m.recs {
		if rec.TenantID != tenantID {
			continue
		}
		if q.Text != "" &&
			!strings.Contains(strings.ToLower(rec.Desc.Name), strings.ToLower(q.Text)) &&
			!strings.Contains(strings.ToLower(rec.Desc.Description), strings.ToLower(q.Text)) {
			continue
		}
		if q.Language != "" && rec.Desc.PrimaryLanguage != q.Language {
			continue
		}
		if q.ProjectType != "" && rec.Desc.ProjectType != q.ProjectType {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	start := (q.Page - 1) * q.Size
	if start >= total {
		return nil, total, nil
	}
	end := start + q.Size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// Update replaces the description when the tenant owns the record
func (m *Memory) Update(_ context.Context, tenantID, id string, rec domain.Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.recs[id]
	if !ok || existing.TenantID != tenantID {
		return false, nil
	}
	existing.Desc = rec.Desc
	m.recs[id] = existing
	return true, nil
}

// Delete removes the record when the tenant owns it
func (m *Memory) Delete(_ context.Context, tenantID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.recs[id]
	if !ok || existing.TenantID != tenantID {
		return false, nil
	}
	delete(m.recs, id)
	return true, nil
}
