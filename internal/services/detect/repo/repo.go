// Package repo provides job store implementations for the detect service
package repo

import (
	"context"
	"encoding/json"

	"repolens/internal/modkit/repokit"
	perr "repolens/internal/platform/errors"
	"repolens/internal/services/detect/domain"
)

// binder implements repokit.Binder[domain.JobStore]
type binder struct{}

// NewPG returns a Postgres binder for the job store
func NewPG() repokit.Binder[domain.JobStore] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) domain.JobStore { return &pg{q: q} }

type pg struct{ q repokit.Queryer }

const jobColumns = `
id::text, tenant_id, repository, repo_key, source, priority, force, metadata,
state, progress, message, record_id, error_kind, error_message,
created_at, updated_at`

func (s *pg) Create(ctx context.Context, job domain.Job) error {
	meta, err := json.Marshal(job.Metadata)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "detect: marshal metadata")
	}
	const sql = `
insert into detection_jobs
  (id, tenant_id, repository, repo_key, source, priority, force, metadata,
   state, progress, message, record_id, error_kind, error_message,
   created_at, updated_at)
values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`
	_, err = s.q.Exec(ctx, sql,
		job.ID, job.TenantID, job.Repository, job.RepoKey, job.Source,
		job.Priority, job.Force, meta,
		string(job.State), job.Progress, job.Message,
		job.RecordID, string(job.ErrKind), job.ErrMessage,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return perr.FromPostgres(err, "detect: create job")
	}
	return nil
}

func (s *pg) Get(ctx context.Context, tenantID, id string) (*domain.Job, error) {
	const sql = `select ` + jobColumns + ` from detection_jobs where id = $1 and tenant_id = $2`
	row := s.q.QueryRow(ctx, sql, id, tenantID)
	job, err := scanJob(row)
	if err != nil {
		// absent and cross-tenant are indistinguishable on purpose
		return nil, perr.NotFoundf("job not found")
	}
	return job, nil
}

func (s *pg) List(ctx context.Context, tenantID string, in domain.ListInput) ([]domain.Job, int, error) {
	in.Normalize()
	offset := (in.Page - 1) * in.Size

	const sql = `
select ` + jobColumns + `, count(*) over() as total
from detection_jobs
where tenant_id = $1 and ($2 = '' or state = $2)
order by created_at desc, id
limit $3 offset $4`
	rows, err := s.q.Query(ctx, sql, tenantID, string(in.State), in.Size, offset)
	if err != nil {
		return nil, 0, perr.FromPostgres(err, "detect: list jobs")
	}
	defer rows.Close()

	var out []domain.Job
	total := 0
	for rows.Next() {
		var job domain.Job
		var meta []byte
		var state, errKind string
		if err := rows.Scan(
			&job.ID, &job.TenantID, &job.Repository, &job.RepoKey, &job.Source,
			&job.Priority, &job.Force, &meta,
			&state, &job.Progress, &job.Message,
			&job.RecordID, &errKind, &job.ErrMessage,
			&job.CreatedAt, &job.UpdatedAt, &total,
		); err != nil {
			return nil, 0, perr.FromPostgres(err, "detect: scan job row")
		}
		job.State, job.ErrKind = domain.State(state), domain.ErrKind(errKind)
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &job.Metadata)
		}
		out = append(out, job)
	}
	return out, total, rows.Err()
}

func (s *pg) Update(ctx context.Context, job domain.Job) error {
	const sql = `
update detection_jobs
set state = $3, progress = $4, message = $5, record_id = $6,
    error_kind = $7, error_message = $8, updated_at = $9
where id = $1 and tenant_id = $2`
	tag, err := s.q.Exec(ctx, sql,
		job.ID, job.TenantID,
		string(job.State), job.Progress, job.Message, job.RecordID,
		string(job.ErrKind), job.ErrMessage, job.UpdatedAt,
	)
	if err != nil {
		return perr.FromPostgres(err, "detect: update job")
	}
	if tag.RowsAffected() != 1 {
		return perr.NotFoundf("job not found")
	}
	return nil
}

func (s *pg) FindActive(ctx context.Context, tenantID, repoKey string) (*domain.Job, error) {
	const sql = `
select ` + jobColumns + `
from detection_jobs
where tenant_id = $1 and repo_key = $2 and state in ('pending', 'running')
order by created_at
limit 1`
	row := s.q.QueryRow(ctx, sql, tenantID, repoKey)
	job, err := scanJob(row)
	if err != nil {
		return nil, nil // no active job
	}
	return job, nil
}

// rowScanner is satisfied by both Row and Rows
type rowScanner interface{ Scan(dest ...any) error }

func scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	var meta []byte
	var state, errKind string
	if err := row.Scan(
		&job.ID, &job.TenantID, &job.Repository, &job.RepoKey, &job.Source,
		&job.Priority, &job.Force, &meta,
		&state, &job.Progress, &job.Message,
		&job.RecordID, &errKind, &job.ErrMessage,
		&job.CreatedAt, &job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.State, job.ErrKind = domain.State(state), domain.ErrKind(errKind)
	if len(meta) > 0 {
		_ = json.Unmarshal(meta, &job.Metadata)
	}
	return &job, nil
}
