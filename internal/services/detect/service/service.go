// Package service implements the asynchronous detection orchestrator
package service

import (
	"container/heap"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"repolens/internal/adapters/gitclone"
	"repolens/internal/core/ruleset"
	perr "repolens/internal/platform/errors"
	"repolens/internal/platform/net/http/bind"
	"repolens/internal/providers"
	"repolens/internal/services/detect/domain"
	recordsdom "repolens/internal/services/records/domain"
)

// Config for the orchestrator
type Config struct {
	Workers         int           // concurrent job slots
	JobTimeout      time.Duration // wall clock per job
	MaxEntries      int           // scanner entry cap, 0 = scanner default
	MaxReadBytes    int64         // per-file read cap, 0 = ruleset default
	EnrichMandatory bool          // enrichment failure fails the job
}

// Service defines the orchestrator contract
type Service interface{ domain.ServicePort }

// Svc implements the Service interface plus the worker runner
type Svc struct {
	store   domain.JobStore
	records recordsdom.WriterPort
	pack    *ruleset.Pack
	cfg     Config

	// Cloner handles remote sources; Providers enriches remote records;
	// Sink receives lifecycle events. All optional, set before Run
	Cloner    *gitclone.Cloner
	Providers *providers.Registry
	Sink      domain.EventSink

	mu      sync.Mutex
	queue   jobQueue
	seq     uint64
	cancels map[string]context.CancelFunc

	// subMu serializes the coalesce check with the job insert so two
	// concurrent submissions of one (tenant, repo key) cannot both pass
	// FindActive
	subMu sync.Mutex

	wake chan struct{}
}

// New constructs the orchestrator
func New(store domain.JobStore, records recordsdom.WriterPort, pack *ruleset.Pack, cfg Config) *Svc {
	if store == nil {
		panic("detect.Service requires a non nil JobStore")
	}
	if records == nil {
		panic("detect.Service requires a non nil records writer")
	}
	if pack == nil {
		panic("detect.Service requires a non nil ruleset")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	return &Svc{
		store:   store,
		records: records,
		pack:    pack,
		cfg:     cfg,
		Cloner:  gitclone.New(),
		cancels: make(map[string]context.CancelFunc),
		wake:    make(chan struct{}, 1),
	}
}

// Submit validates and enqueues a job. Returns the existing active job when
// one covers the same (tenant, normalized repository) and Force is unset
func (s *Svc) Submit(ctx context.Context, tenantID string, in domain.SubmitInput) (*domain.Job, bool, error) {
	if tenantID == "" {
		return nil, false, perr.Unauthorizedf("tenant id is required")
	}
	if err := bind.Get().Validator.StructCtx(ctx, &in); err != nil {
		return nil, false, perr.Wrap(err, perr.ErrorCodeValidation, "detect: invalid submission")
	}

	source := domain.SourceLocal
	if looksRemote(in.Repository) {
		source = domain.SourceRemote
	}
	repoKey := normalizeRepoKey(in.Repository, source)

	s.subMu.Lock()
	defer s.subMu.Unlock()

	if !in.Force {
		if active, err := s.store.FindActive(ctx, tenantID, repoKey); err == nil && active != nil {
			return active, true, nil
		}
	}

	now := time.Now().UTC()
	job := domain.Job{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		Repository: in.Repository,
		RepoKey:    repoKey,
		Source:     source,
		Priority:   in.Priority,
		Force:      in.Force,
		Metadata:   in.Metadata,
		State:      domain.StatePending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Create(ctx, job); err != nil {
		// a rival writer may still win the insert; treat its job as ours
		if !in.Force && perr.IsCode(err, perr.ErrorCodeDuplicateKey) {
			if active, ferr := s.store.FindActive(ctx, tenantID, repoKey); ferr == nil && active != nil {
				return active, true, nil
			}
		}
		return nil, false, err
	}
	s.emit(ctx, job, "submitted")

	s.mu.Lock()
	s.seq++
	heap.Push(&s.queue, queueItem{jobID: job.ID, tenantID: job.TenantID, priority: job.Priority, seq: s.seq})
	s.mu.Unlock()
	s.signal()

	return &job, false, nil
}

// Get returns one job owned by the tenant
func (s *Svc) Get(ctx context.Context, tenantID, id string) (*domain.Job, error) {
	if id == "" {
		return nil, perr.InvalidArgf("job id is required")
	}
	return s.store.Get(ctx, tenantID, id)
}

// List pages through the tenant's jobs
func (s *Svc) List(ctx context.Context, tenantID string, in domain.ListInput) ([]domain.Job, int, error) {
	in.Normalize()
	return s.store.List(ctx, tenantID, in)
}

// Cancel stops a pending job immediately or signals a running one. The
// returned job reflects the state after the call; a running job transitions
// once its worker observes the cancellation at a stage boundary
func (s *Svc) Cancel(ctx context.Context, tenantID, id string) (*domain.Job, error) {
	job, err := s.store.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if job.State.Terminal() {
		return nil, perr.Conflictf("job already %s", job.State)
	}

	if job.State == domain.StatePending {
		job.State = domain.StateCancelled
		job.ErrKind = domain.ErrKindCancelled
		job.Message = "cancelled before execution"
		job.UpdatedAt = time.Now().UTC()
		if err := s.store.Update(ctx, *job); err != nil {
			return nil, err
		}
		s.emit(ctx, *job, "cancelled")
		return job, nil
	}

	// running: cut the job context; the worker persists the final state
	s.mu.Lock()
	cancel := s.cancels[id]
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	job.Message = "cancellation requested"
	return job, nil
}

// pop removes the highest-priority queued job, or ok=false when empty
func (s *Svc) pop() (queueItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue.Len() == 0 {
		return queueItem{}, false
	}
	return heap.Pop(&s.queue).(queueItem), true
}

// requeue puts a popped job back with a fresh sequence number, preserving
// its priority
func (s *Svc) requeue(item queueItem) {
	s.mu.Lock()
	s.seq++
	item.seq = s.seq
	heap.Push(&s.queue, item)
	s.mu.Unlock()
	s.signal()
}

func (s *Svc) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Svc) emit(ctx context.Context, job domain.Job, event string) {
	if s.Sink != nil {
		s.Sink.Emit(ctx, job, event)
	}
}

// looksRemote reports whether the repository reference needs a clone
func looksRemote(repo string) bool {
	for _, p := range []string{"http://", "https://", "ssh://", "git://"} {
		if strings.HasPrefix(repo, p) {
			return true
		}
	}
	// scp-style git@host:owner/repo
	if strings.HasPrefix(repo, "git@") && strings.Contains(repo, ":") {
		return true
	}
	return false
}

// normalizeRepoKey produces the identity used for coalescing and record
// versioning: scheme-insensitive, .git-insensitive for remotes, cleaned
// path for local trees
func normalizeRepoKey(repo, source string) string {
	if source == domain.SourceLocal {
		return filepath.ToSlash(filepath.Clean(repo))
	}
	key := strings.ToLower(strings.TrimSpace(repo))
	for _, p := range []string{"https://", "http://", "ssh://", "git://"} {
		key = strings.TrimPrefix(key, p)
	}
	if rest, ok := strings.CutPrefix(key, "git@"); ok {
		key = strings.Replace(rest, ":", "/", 1)
	}
	key = strings.TrimSuffix(strings.TrimSuffix(key, "/"), ".git")
	return key
}
