// Package repo provides postgres access for repository description records
package repo

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"repolens/internal/modkit/repokit"
	perr "repolens/internal/platform/errors"
	"repolens/internal/services/records/domain"
)

// Repo is the storage contract bound to a queryer. Tenant filtering happens
// inside every statement, not in the caller
type Repo interface {
	Write(ctx context.Context, rec domain.Record) (string, error)
	Get(ctx context.Context, tenantID, id string) (*domain.Record, error)
	Search(ctx context.Context, tenantID string, q domain.SearchQuery) ([]domain.Record, int, error)
	Update(ctx context.Context, tenantID, id string, rec domain.Record) (bool, error)
	Delete(ctx context.Context, tenantID, id string) (bool, error)
}

type (
	// PG implements the Repo interface using Postgres
	PG struct{}

	queries struct{ q repokit.Queryer }
)

// NewPG creates a new Postgres repository binder
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind binds a Postgres queryer to the Repo implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func (r *queries) Write(ctx context.Context, rec domain.Record) (string, error) {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	desc, err := json.Marshal(rec.Desc)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeJSON, "records: marshal description")
	}
	const sql = `
insert into repository_records (id, tenant_id, repo_key, version, description, created_at)
values (
  $1, $2, $3,
  1 + coalesce((select max(version) from repository_records where tenant_id = $2 and repo_key = $3), 0),
  $4, now()
)
returning id::text
`
	row := r.q.QueryRow(ctx, sql, id, rec.TenantID, rec.RepoKey, desc)
	var out string
	if err := row.Scan(&out); err != nil {
		return "", perr.FromPostgres(err, "records: write")
	}
	return out, nil
}

func (r *queries) Get(ctx context.Context, tenantID, id string) (*domain.Record, error) {
	const sql = `
select id::text, tenant_id, repo_key, version, created_at, description
from repository_records
where id = $1 and tenant_id = $2
`
	row := r.q.QueryRow(ctx, sql, id, tenantID)
	var rec domain.Record
	var desc []byte
	if err := row.Scan(&rec.ID, &rec.TenantID, &rec.RepoKey, &rec.Version, &rec.CreatedAt, &desc); err != nil {
		// absent and cross-tenant are indistinguishable on purpose
		return nil, perr.NotFoundf("record not found")
	}
	if err := json.Unmarshal(desc, &rec.Desc); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "records: unmarshal description")
	}
	return &rec, nil
}

func (r *queries) Search(ctx context.Context, tenantID string, q domain.SearchQuery) ([]domain.Record, int, error) {
	q.Normalize()
	offset := (q.Page - 1) * q.Size

	const sql = `
select id::text, tenant_id, repo_key, version, created_at, description, count(*) over() as total
from repository_records
where tenant_id = $1
and ($2 = '' or description->>'name' ilike '%' || $2 || '%' or description->>'description' ilike '%' || $2 || '%')
and ($3 = '' or description->>'primary_language' = $3)
and ($4 = '' or description->>'project_type' = $4)
order by created_at desc, id
limit $5 offset $6
`
	rows, err := r.q.Query(ctx, sql, tenantID, q.Text, q.Language, q.ProjectType, q.Size, offset)
	if err != nil {
		return nil, 0, perr.FromPostgres(err, "records: search")
	}
	defer rows.Close()

	var out []domain.Record
	total := 0
	for rows.Next() {
		var rec domain.Record
		var desc []byte
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.RepoKey, &rec.Version, &rec.CreatedAt, &desc, &total); err != nil {
			return nil, 0, perr.FromPostgres(err, "records: scan search row")
		}
		if err := json.Unmarshal(desc, &rec.Desc); err != nil {
			return nil, 0, perr.Wrapf(err, perr.ErrorCodeJSON, "records: unmarshal description")
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (r *queries) Update(ctx context.Context, tenantID, id string, rec domain.Record) (bool, error) {
	desc, err := json.Marshal(rec.Desc)
	if err != nil {
		return false, perr.Wrapf(err, perr.ErrorCodeJSON, "records: marshal description")
	}
	const sql = `
update repository_records set description = $3
where id = $1 and tenant_id = $2
`
	tag, err := r.q.Exec(ctx, sql, id, tenantID, desc)
	if err != nil {
		return false, perr.FromPostgres(err, "records: update")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *queries) Delete(ctx context.Context, tenantID, id string) (bool, error) {
	const sql = `delete from repository_records where id = $1 and tenant_id = $2`
	tag, err := r.q.Exec(ctx, sql, id, tenantID)
	if err != nil {
		return false, perr.FromPostgres(err, "records: delete")
	}
	return tag.RowsAffected() == 1, nil
}
