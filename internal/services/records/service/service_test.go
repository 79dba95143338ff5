package service_test

import (
	"context"
	"testing"

	perr "repolens/internal/platform/errors"
	"repolens/internal/services/records/domain"
	"repolens/internal/services/records/repo"
	svc "repolens/internal/services/records/service"

	"repolens/internal/core/synthesize"
)

func newSvc() *svc.Svc { return svc.NewWithRepo(repo.NewMemory()) }

func record(tenant, key, name string) domain.Record {
	return domain.Record{
		TenantID: tenant,
		RepoKey:  key,
		Desc: synthesize.Description{
			Name:            name,
			PrimaryLanguage: "go",
			ProjectType:     "application",
		},
	}
}

func TestWriteAssignsVersions(t *testing.T) {
	s := newSvc()
	ctx := context.Background()

	id1, err := s.Write(ctx, record("acme", "github.com/acme/widget", "widget"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	id2, err := s.Write(ctx, record("acme", "github.com/acme/widget", "widget"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected distinct ids per version")
	}

	r1, err := s.Get(ctx, "acme", id1)
	if err != nil {
		t.Fatalf("get v1: %v", err)
	}
	r2, err := s.Get(ctx, "acme", id2)
	if err != nil {
		t.Fatalf("get v2: %v", err)
	}
	if r1.Version != 1 || r2.Version != 2 {
		t.Fatalf("versions = %d, %d; want 1, 2", r1.Version, r2.Version)
	}
}

func TestWriteRequiresIdentity(t *testing.T) {
	s := newSvc()
	ctx := context.Background()

	if _, err := s.Write(ctx, domain.Record{RepoKey: "k"}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("missing tenant: got %v", err)
	}
	if _, err := s.Write(ctx, domain.Record{TenantID: "acme"}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("missing repo key: got %v", err)
	}
}

func TestCrossTenantLooksMissing(t *testing.T) {
	s := newSvc()
	ctx := context.Background()

	id, err := s.Write(ctx, record("acme", "github.com/acme/widget", "widget"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	_, missErr := s.Get(ctx, "acme", "no-such-id")
	_, crossErr := s.Get(ctx, "rival", id)

	if !perr.IsCode(missErr, perr.ErrorCodeNotFound) || !perr.IsCode(crossErr, perr.ErrorCodeNotFound) {
		t.Fatalf("want not found for both, got %v / %v", missErr, crossErr)
	}
	if missErr.Error() != crossErr.Error() {
		t.Fatalf("cross-tenant get must be indistinguishable from a miss: %q vs %q", missErr, crossErr)
	}

	if _, err := s.Delete(ctx, "rival", id); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("cross-tenant delete: got %v", err)
	}
	if _, err := s.Get(ctx, "acme", id); err != nil {
		t.Fatalf("record must survive a rival delete attempt: %v", err)
	}
}

func TestSearchFiltersAndPages(t *testing.T) {
	s := newSvc()
	ctx := context.Background()

	seed := []domain.Record{
		record("acme", "r/alpha", "alpha-service"),
		record("acme", "r/beta", "beta-tool"),
		record("acme", "r/gamma", "gamma-service"),
		record("rival", "r/delta", "delta-service"),
	}
	seed[1].Desc.PrimaryLanguage = "python"
	for _, rec := range seed {
		if _, err := s.Write(ctx, rec); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rows, total, err := s.Search(ctx, "acme", domain.SearchQuery{Text: "service"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("text search: total=%d rows=%d, want 2/2", total, len(rows))
	}
	for _, r := range rows {
		if r.TenantID != "acme" {
			t.Fatalf("search leaked tenant %q", r.TenantID)
		}
	}

	rows, total, err = s.Search(ctx, "acme", domain.SearchQuery{Language: "python"})
	if err != nil {
		t.Fatalf("search by language: %v", err)
	}
	if total != 1 || rows[0].Desc.Name != "beta-tool" {
		t.Fatalf("language filter: total=%d name=%q", total, rows[0].Desc.Name)
	}

	rows, total, err = s.Search(ctx, "acme", domain.SearchQuery{Page: 2, Size: 2})
	if err != nil {
		t.Fatalf("paged search: %v", err)
	}
	if total != 3 || len(rows) != 1 {
		t.Fatalf("page 2 of 3 with size 2: total=%d rows=%d", total, len(rows))
	}
}

func TestUpdateReplacesDescription(t *testing.T) {
	s := newSvc()
	ctx := context.Background()

	id, err := s.Write(ctx, record("acme", "r/alpha", "alpha"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	next := record("acme", "r/alpha", "alpha-renamed")
	if _, err := s.Update(ctx, "acme", id, next); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.Get(ctx, "acme", id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Desc.Name != "alpha-renamed" {
		t.Fatalf("name = %q, want alpha-renamed", got.Desc.Name)
	}
	if got.Version != 1 {
		t.Fatalf("update must not bump the version, got %d", got.Version)
	}

	if _, err := s.Update(ctx, "acme", id, domain.Record{}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("empty description name: got %v", err)
	}
}

func TestDeleteRemovesRecord(t *testing.T) {
	s := newSvc()
	ctx := context.Background()

	id, err := s.Write(ctx, record("acme", "r/alpha", "alpha"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.Delete(ctx, "acme", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "acme", id); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("get after delete: got %v", err)
	}
	if _, err := s.Delete(ctx, "acme", id); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("double delete: got %v", err)
	}
}
