package repo

import (
	"context"
	"time"

	"repolens/internal/platform/logger"
	"repolens/internal/platform/store"
	"repolens/internal/services/detect/domain"
)

// Events appends job lifecycle transitions to ClickHouse as an analytics
// sink. Emission never blocks or fails the job; errors are logged and dropped
type Events struct {
	ch store.Clickhouse
}

// NewEvents creates the sink. A nil client yields a no-op sink
func NewEvents(ch store.Clickhouse) *Events { return &Events{ch: ch} }

// eventRow mirrors the detection_events table
type eventRow struct {
	JobID      string    `ch:"job_id"`
	TenantID   string    `ch:"tenant_id"`
	Repository string    `ch:"repository"`
	Event      string    `ch:"event"`
	State      string    `ch:"state"`
	Progress   int32     `ch:"progress"`
	ErrorKind  string    `ch:"error_kind"`
	OccurredAt time.Time `ch:"occurred_at"`
}

// Emit implements domain.EventSink
func (e *Events) Emit(ctx context.Context, job domain.Job, event string) {
	if e == nil || e.ch == nil {
		return
	}
	row := eventRow{
		JobID:      job.ID,
		TenantID:   job.TenantID,
		Repository: job.Repository,
		Event:      event,
		State:      string(job.State),
		Progress:   int32(job.Progress),
		ErrorKind:  string(job.ErrKind),
		OccurredAt: time.Now().UTC(),
	}
	if err := e.ch.Insert(ctx, "detection_events", row); err != nil {
		logger.C(ctx).Warn().Err(err).Str("job_id", job.ID).Msg("detect: event sink insert failed")
	}
}
