package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"repolens/internal/adapters/gitclone"
	"repolens/internal/core/scan"
	"repolens/internal/core/synthesize"
	perr "repolens/internal/platform/errors"
	"repolens/internal/platform/logger"
	"repolens/internal/providers"
	"repolens/internal/services/detect/domain"
	recordsdom "repolens/internal/services/records/domain"
)

// Run starts the worker pool and blocks until ctx is cancelled. At most
// Config.Workers jobs execute concurrently
func (s *Svc) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.workerLoop(ctx)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Svc) workerLoop(ctx context.Context) {
	t := time.NewTicker(250 * time.Millisecond)
	defer t.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		item, ok := s.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
			case <-t.C:
			}
			continue
		}
		s.runJob(ctx, item)
	}
}

func (s *Svc) runJob(ctx context.Context, item queueItem) {
	job, err := s.store.Get(ctx, item.tenantID, item.jobID)
	if err != nil {
		return
	}
	if job.State != domain.StatePending {
		return // cancelled while queued
	}

	job.State = domain.StateRunning
	job.Message = "started"
	job.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, *job); err != nil {
		// the stored state is still pending; requeue so the job is not
		// stranded, and back off before the next attempt
		s.requeue(item)
		select {
		case <-ctx.Done():
		case <-time.After(250 * time.Millisecond):
		}
		return
	}
	s.emit(ctx, *job, "started")

	jctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	s.mu.Lock()
	s.cancels[job.ID] = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.cancels, job.ID)
		s.mu.Unlock()
	}()

	s.execute(ctx, jctx, *job)
}

func (s *Svc) execute(runCtx, jctx context.Context, job domain.Job) {
	log := logger.Named("detect").With().Str("job_id", job.ID).Str("tenant", job.TenantID).Logger()

	root := job.Repository
	url := ""
	if job.Source == domain.SourceRemote {
		url = job.Repository
		dir, err := gitclone.TempDir()
		if err != nil {
			s.finish(runCtx, jctx, job, domain.ErrKindInternal, err)
			return
		}
		defer os.RemoveAll(dir)

		s.progress(runCtx, &job, 5, "cloning")
		if err := s.Cloner.Clone(jctx, job.Repository, dir); err != nil {
			s.finish(runCtx, jctx, job, domain.ErrKindClone, err)
			return
		}
		root = dir
	}

	desc, err := Describe(jctx, root, DescribeInputs{
		Name:   providers.RepoName(job.Repository),
		URL:    url,
		Source: job.Source,
	}, s.pack, DescribeOptions{
		MaxEntries:   s.cfg.MaxEntries,
		MaxReadBytes: s.cfg.MaxReadBytes,
		OnStage: func(stage string, pct int) {
			s.progress(runCtx, &job, pct, stage)
		},
	})
	if err != nil {
		kind := domain.ErrKindInternal
		if errors.Is(err, scan.ErrLimitNoEntries) {
			kind = domain.ErrKindScanLimit
		}
		s.finish(runCtx, jctx, job, kind, err)
		return
	}

	if job.Source == domain.SourceRemote && s.Providers != nil {
		if e, err := s.Providers.Enrich(jctx, job.Repository); err == nil {
			desc.Enrich(synthEnrichment(e))
		} else if s.cfg.EnrichMandatory && !perr.IsCode(err, perr.ErrorCodeNotFound) {
			s.finish(runCtx, jctx, job, domain.ErrKindEnrichment, err)
			return
		} else {
			log.Warn().Err(err).Msg("enrichment skipped")
		}
	}

	s.progress(runCtx, &job, 90, "storing")
	rec := recordsdom.Record{TenantID: job.TenantID, RepoKey: job.RepoKey, Desc: desc}
	var recordID string
	backoff := retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
	err = retry.Do(jctx, backoff, func(ctx context.Context) error {
		id, werr := s.records.Write(ctx, rec)
		if werr != nil {
			return retry.RetryableError(werr)
		}
		recordID = id
		return nil
	})
	if err != nil {
		s.finish(runCtx, jctx, job, domain.ErrKindStoreWrite, err)
		return
	}

	job.State = domain.StateCompleted
	job.Progress = 100
	job.Message = "completed"
	job.RecordID = recordID
	job.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(context.WithoutCancel(runCtx), job); err != nil {
		log.Error().Err(err).Msg("persist completed state")
		return
	}
	s.emit(runCtx, job, "completed")
	log.Info().Str("record_id", recordID).Msg("job completed")
}

// finish persists the terminal state for a failed, timed out or cancelled
// job. Timeout and cancellation are read off the job context so stage errors
// caused by a dying context are classified correctly
func (s *Svc) finish(runCtx, jctx context.Context, job domain.Job, kind domain.ErrKind, err error) {
	event := "failed"
	switch {
	case errors.Is(jctx.Err(), context.DeadlineExceeded):
		job.State = domain.StateFailed
		job.ErrKind = domain.ErrKindTimeout
		job.ErrMessage = "job exceeded " + s.cfg.JobTimeout.String()
	case errors.Is(jctx.Err(), context.Canceled) && runCtx.Err() == nil:
		job.State = domain.StateCancelled
		job.ErrKind = domain.ErrKindCancelled
		job.ErrMessage = "cancelled while running"
		event = "cancelled"
	default:
		job.State = domain.StateFailed
		job.ErrKind = kind
		job.ErrMessage = err.Error()
	}
	job.Message = job.ErrMessage
	job.UpdatedAt = time.Now().UTC()

	persistCtx := context.WithoutCancel(runCtx)
	if uerr := s.store.Update(persistCtx, job); uerr != nil {
		logger.Named("detect").Error().Err(uerr).Str("job_id", job.ID).Msg("persist terminal state")
		return
	}
	s.emit(persistCtx, job, event)
}

func (s *Svc) progress(ctx context.Context, job *domain.Job, pct int, msg string) {
	job.Progress = pct
	job.Message = msg
	job.UpdatedAt = time.Now().UTC()
	_ = s.store.Update(ctx, *job)
}

func synthEnrichment(e providers.Enrichment) synthesize.Enrichment {
	return synthesize.Enrichment{
		Stars:         e.Stars,
		Forks:         e.Forks,
		Contributors:  e.Contributors,
		DefaultBranch: e.DefaultBranch,
		Description:   e.Description,
	}
}
