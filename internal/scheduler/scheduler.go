// Package scheduler runs the five independent bucket tickers that drive the
// monitor worker fleet (C6): one ticker per frequency bucket, each tick paging
// due monitors and fanning workers out with bounded concurrency.
package scheduler

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/watchtower/controlplane/internal/metrics"
	"github.com/watchtower/controlplane/internal/model"
	"github.com/watchtower/controlplane/internal/store"
	"github.com/watchtower/controlplane/internal/worker"
)

const (
	duePageSize       = 100
	maxPageConcurrent = 100
)

// epsilon returns the small slack subtracted from the bucket's own duration
// to build the due-window W(B) = B - epsilon(B), absorbing tick jitter
// without double-servicing a monitor that was just touched.
func epsilon(bucketMinutes int) time.Duration {
	if bucketMinutes >= 60 {
		return 10 * time.Second
	}
	return 3 * time.Second
}

// Scheduler owns one ticker per entry in model.FrequencyBuckets.
type Scheduler struct {
	store  store.Store
	worker *worker.Worker
}

// New constructs a Scheduler.
func New(st store.Store, w *worker.Worker) *Scheduler {
	return &Scheduler{store: st, worker: w}
}

// Run starts a goroutine per bucket and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	var wg errgroup.Group
	for _, bucket := range model.FrequencyBuckets {
		bucket := bucket
		wg.Go(func() error {
			s.runBucket(ctx, bucket)
			return nil
		})
	}
	_ = wg.Wait()
}

func (s *Scheduler) runBucket(ctx context.Context, bucket int) {
	interval := time.Duration(bucket) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, bucket)
		}
	}
}

// tick pages through every due monitor in bucket and fans workers out within
// a page bounded to maxPageConcurrent, awaiting the page before paging again.
// DueMonitors claims the rows it returns (bumping updated_at to now), so a
// claimed page drops out of the due set and every page is read at offset 0.
func (s *Scheduler) tick(ctx context.Context, bucket int) {
	start := time.Now()
	now := start.UnixMilli()
	window := time.Duration(bucket)*time.Minute - epsilon(bucket)

	total := 0
	for {
		due, err := s.store.DueMonitors(bucket, window, now, duePageSize, 0)
		if err != nil {
			log.Printf("[scheduler] bucket %dm: due query failed: %v", bucket, err)
			break
		}
		if len(due) == 0 {
			break
		}
		total += len(due)
		s.runPage(ctx, due)
		if len(due) < duePageSize {
			break
		}
	}

	metrics.TickDuration.WithLabelValues(bucketLabel(bucket)).Observe(time.Since(start).Seconds())
	if total > 0 {
		log.Printf("[scheduler] bucket %dm: ran %d monitors in %s", bucket, total, time.Since(start))
	}
}

func (s *Scheduler) runPage(ctx context.Context, due []model.Monitor) {
	sem := make(chan struct{}, maxPageConcurrent)
	var g errgroup.Group

	for i := range due {
		m := due[i]
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			if err := s.worker.Run(ctx, &m, time.Now().UnixMilli()); err != nil {
				log.Printf("[scheduler] monitor %s: worker error: %v", m.ID, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func bucketLabel(bucket int) string {
	switch bucket {
	case 1:
		return "1m"
	case 5:
		return "5m"
	case 10:
		return "10m"
	case 30:
		return "30m"
	case 60:
		return "60m"
	default:
		return "other"
	}
}
