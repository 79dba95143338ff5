// Package service contains record store workflows
package service

import (
	"context"

	"repolens/internal/modkit/repokit"
	perr "repolens/internal/platform/errors"
	"repolens/internal/platform/net/http/bind"
	"repolens/internal/services/records/domain"
	"repolens/internal/services/records/repo"
)

// Service defines the service contract for records
type Service interface{ domain.StorePort }

// Svc implements the Service interface
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner
}

// New creates a new records service bound to postgres
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo]) *Svc {
	if db == nil {
		panic("records.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("records.Service requires a non nil Repo binder")
	}
	return &Svc{Repo: binder.Bind(db), binder: binder, db: db}
}

// NewWithRepo creates a service over an already bound repo.
// Used by the offline binary and tests with the in-memory store
func NewWithRepo(r repo.Repo) *Svc {
	if r == nil {
		panic("records.Service requires a non nil Repo")
	}
	return &Svc{Repo: r}
}

// Write stores a new version of the repository description
func (s *Svc) Write(ctx context.Context, rec domain.Record) (string, error) {
	if rec.TenantID == "" {
		return "", perr.InvalidArgf("tenant id is required")
	}
	if rec.RepoKey == "" {
		return "", perr.InvalidArgf("repo key is required")
	}
	return s.Repo.Write(ctx, rec)
}

// Get fetches one record owned by the tenant
func (s *Svc) Get(ctx context.Context, tenantID, id string) (*domain.Record, error) {
	if id == "" {
		return nil, perr.InvalidArgf("record id is required")
	}
	return s.Repo.Get(ctx, tenantID, id)
}

// Search pages through the tenant's records
func (s *Svc) Search(ctx context.Context, tenantID string, q domain.SearchQuery) ([]domain.Record, int, error) {
	q.Normalize()
	if err := bind.Get().Validator.StructCtx(ctx, &q); err != nil {
		return nil, 0, perr.Wrap(err, perr.ErrorCodeValidation, "records: invalid search query")
	}
	return s.Repo.Search(ctx, tenantID, q)
}

// Update replaces the description of an existing record
func (s *Svc) Update(ctx context.Context, tenantID, id string, rec domain.Record) (bool, error) {
	if id == "" {
		return false, perr.InvalidArgf("record id is required")
	}
	if rec.Desc.Name == "" {
		return false, perr.InvalidArgf("description name is required")
	}
	ok, err := s.Repo.Update(ctx, tenantID, id, rec)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, perr.NotFoundf("record not found")
	}
	return true, nil
}

// Delete removes a record owned by the tenant
func (s *Svc) Delete(ctx context.Context, tenantID, id string) (bool, error) {
	if id == "" {
		return false, perr.InvalidArgf("record id is required")
	}
	ok, err := s.Repo.Delete(ctx, tenantID, id)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, perr.NotFoundf("record not found")
	}
	return true, nil
}
