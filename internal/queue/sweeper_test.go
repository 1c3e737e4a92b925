package queue

import (
	"context"
	"testing"
	"time"

	"github.com/five82/coreorc/internal/domain"
)

func TestSweepOnceReclaimsExpiredLease(t *testing.T) {
	q := newTestQueue(t, Options{})
	ctx := context.Background()

	if _, _, err := q.Enqueue(ctx, domain.Job{ID: "job-1"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := q.Lease(ctx); err != nil {
		t.Fatalf("Lease: %v", err)
	}

	rec, err := q.getRecord(ctx, "job-1")
	if err != nil {
		t.Fatalf("getRecord: %v", err)
	}
	rec.LeaseExpiresAt = time.Now().Add(-time.Minute).Unix()
	if err := q.putRecord(ctx, "job-1", rec); err != nil {
		t.Fatalf("putRecord: %v", err)
	}

	q.sweepOnce(ctx)

	stats, err := q.QueueStats(ctx)
	if err != nil {
		t.Fatalf("QueueStats: %v", err)
	}
	if stats.Waiting != 1 || stats.Active != 0 {
		t.Fatalf("stats = %+v, want Waiting=1 Active=0 after sweeping an expired lease", stats)
	}

	rec, err = q.getRecord(ctx, "job-1")
	if err != nil {
		t.Fatalf("getRecord after sweep: %v", err)
	}
	if rec.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1 after one reclaim", rec.Attempts)
	}
	if rec.Job.State != domain.JobQueued {
		t.Errorf("Job.State = %q, want %q", rec.Job.State, domain.JobQueued)
	}
}

func TestSweepOnceLeavesUnexpiredLeaseAlone(t *testing.T) {
	q := newTestQueue(t, Options{})
	ctx := context.Background()

	if _, _, err := q.Enqueue(ctx, domain.Job{ID: "job-1"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := q.Lease(ctx); err != nil {
		t.Fatalf("Lease: %v", err)
	}

	q.sweepOnce(ctx)

	stats, err := q.QueueStats(ctx)
	if err != nil {
		t.Fatalf("QueueStats: %v", err)
	}
	if stats.Active != 1 || stats.Waiting != 0 {
		t.Errorf("stats = %+v, want Active=1 Waiting=0: a fresh lease must not be reclaimed", stats)
	}
}
