package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/sismos-dashboard/internal/analysis"
	"github.com/couchcryptid/sismos-dashboard/internal/domain"
	"github.com/couchcryptid/sismos-dashboard/internal/observability"
)

// Fetcher downloads the current list of raw reports.
type Fetcher interface {
	Fetch(ctx context.Context) ([]domain.RawQuake, error)
}

// Cleaner turns raw reports into cleaned quakes.
type Cleaner interface {
	Clean(ctx context.Context, raws []domain.RawQuake) ([]domain.Quake, domain.CleanReport)
}

// Publisher forwards cleaned quakes downstream.
type Publisher interface {
	PublishBatch(ctx context.Context, quakes []domain.Quake) error
}

// Snapshot is the result of one successful refresh. It is never mutated after
// it is stored.
type Snapshot struct {
	Quakes    []domain.Quake
	Report    domain.CleanReport
	Table     *analysis.Table
	FetchedAt time.Time
}

// Refresher periodically fetches, cleans and publishes quakes and keeps the
// latest Snapshot for the dashboard.
type Refresher struct {
	fetcher   Fetcher
	cleaner   Cleaner
	publisher Publisher
	interval  time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics

	refreshMu   sync.Mutex
	snapshot    atomic.Pointer[Snapshot]
	subMu       sync.RWMutex
	subscribers []func(*Snapshot)
}

// New creates a Refresher. publisher may be nil to disable publishing.
func New(f Fetcher, c Cleaner, p Publisher, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Refresher {
	return &Refresher{
		fetcher:   f,
		cleaner:   c,
		publisher: p,
		interval:  interval,
		logger:    logger,
		metrics:   metrics,
	}
}

// Subscribe registers fn to be called with every new snapshot. fn runs on the
// refreshing goroutine and must not block.
func (r *Refresher) Subscribe(fn func(*Snapshot)) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

// Snapshot returns the latest snapshot, or nil before the first successful
// refresh.
func (r *Refresher) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

// CheckReadiness returns nil once a snapshot is available.
func (r *Refresher) CheckReadiness(_ context.Context) error {
	if r.snapshot.Load() == nil {
		return errors.New("no quake data loaded yet")
	}
	return nil
}

// Refresh runs one fetch-clean-publish cycle and stores the resulting
// snapshot. Publish failures are logged and counted but do not fail the
// refresh.
func (r *Refresher) Refresh(ctx context.Context) (*Snapshot, error) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	start := time.Now()

	raws, err := r.fetcher.Fetch(ctx)
	if err != nil {
		r.metrics.RefreshErrors.Inc()
		return nil, fmt.Errorf("fetch quakes: %w", err)
	}

	quakes, report := r.cleaner.Clean(ctx, raws)
	r.metrics.ImputedFields.WithLabelValues("coords").Add(float64(report.SyntheticCoords))
	r.metrics.ImputedFields.WithLabelValues("time").Add(float64(report.SyntheticTimes))

	table, err := analysis.NewTable(quakes)
	if err != nil {
		r.metrics.RefreshErrors.Inc()
		return nil, fmt.Errorf("build table: %w", err)
	}

	if r.publisher != nil && len(quakes) > 0 {
		if err := r.publisher.PublishBatch(ctx, quakes); err != nil {
			r.logger.Error("publish quakes failed", "error", err, "count", len(quakes))
			r.metrics.PublishErrors.Inc()
		} else {
			r.metrics.QuakesPublished.Add(float64(len(quakes)))
		}
	}

	snap := &Snapshot{
		Quakes:    quakes,
		Report:    report,
		Table:     table,
		FetchedAt: domain.Clock().Now(),
	}
	r.snapshot.Store(snap)

	r.metrics.QuakesLoaded.Set(float64(len(quakes)))
	r.metrics.LastRefresh.Set(float64(snap.FetchedAt.Unix()))
	r.metrics.RefreshDuration.Observe(time.Since(start).Seconds())

	r.logger.Info("quakes refreshed",
		"count", len(quakes),
		"geocoded", report.GeocodedCoords,
		"synthetic_coords", report.SyntheticCoords,
		"synthetic_times", report.SyntheticTimes,
		"duration", time.Since(start),
	)

	r.notify(snap)
	return snap, nil
}

func (r *Refresher) notify(snap *Snapshot) {
	r.subMu.RLock()
	defer r.subMu.RUnlock()
	for _, fn := range r.subscribers {
		fn(snap)
	}
}

// Run refreshes immediately and then every interval until the context is
// cancelled. Failed refreshes are retried with exponential backoff.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("refresher started", "interval", r.interval)
	r.metrics.RefresherActive.Set(1)
	defer r.metrics.RefresherActive.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		if ctx.Err() != nil {
			r.logger.Info("refresher stopping", "reason", ctx.Err())
			return nil
		}

		wait := r.interval
		if _, err := r.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				r.logger.Info("refresher stopping", "reason", ctx.Err())
				return nil
			}
			r.logger.Error("refresh failed", "error", err, "retry_in", backoff)
			wait = backoff
			backoff = nextBackoff(backoff, maxBackoff)
		} else {
			backoff = 200 * time.Millisecond
		}

		if !sleepWithContext(ctx, wait) {
			r.logger.Info("refresher stopping", "reason", ctx.Err())
			return nil
		}
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
