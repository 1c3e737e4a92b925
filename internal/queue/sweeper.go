package queue

import (
	"context"
	"time"

	"github.com/five82/coreorc/internal/domain"
)

// sweepLoop periodically reclaims jobs whose lease has expired, moving
// them back onto the waiting list so another worker can pick them up.
//
// Implements the decision recorded in SPEC_FULL.md §9: the sweeper runs
// in-process, started by New, ticking at lease_timeout/3.
func (q *Queue) sweepLoop() {
	interval := q.leaseTimeout / 3
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopSweep:
			return
		case <-ticker.C:
			q.sweepOnce(context.Background())
		}
	}
}

// sweepOnce reclaims any active job whose lease has expired.
func (q *Queue) sweepOnce(ctx context.Context) {
	ids, err := q.rdb.LRange(ctx, keyActive, 0, -1).Result()
	if err != nil {
		return
	}
	now := time.Now().Unix()
	for _, id := range ids {
		rec, err := q.getRecord(ctx, id)
		if err != nil {
			continue
		}
		if rec.LeaseExpiresAt == 0 || rec.LeaseExpiresAt > now {
			continue
		}

		rec.Attempts++
		rec.Job.State = domain.JobQueued
		rec.LeaseExpiresAt = 0
		if err := q.putRecord(ctx, id, rec); err != nil {
			continue
		}

		pipe := q.rdb.TxPipeline()
		pipe.LRem(ctx, keyActive, 0, id)
		pipe.RPush(ctx, keyWaiting, id)
		pipe.Exec(ctx)
	}
}
