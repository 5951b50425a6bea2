// Package dashboard keeps a polled view of the monitor backend: health, one
// page of backups and recent log lines.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"backupmon/pkg/log"
	"backupmon/pkg/models"

	"golang.org/x/sync/errgroup"
)

// DefaultInterval is the time between two timer-driven refreshes.
const DefaultInterval = 30 * time.Second

// API is the part of the backend the dashboard reads.
type API interface {
	Health(ctx context.Context) (models.HealthStatus, error)
	Backups(ctx context.Context, page, pageSize int) (models.BackupPage, error)
	Logs(ctx context.Context) ([]models.LogEntry, error)
}

// Dashboard refreshes its Store from the API on a timer and on page changes.
// Refresh cycles never overlap: a timer tick that finds one in flight is
// skipped, a page change waits for it.
type Dashboard struct {
	api      API
	store    *Store
	metrics  *Metrics
	interval time.Duration

	refreshMu sync.Mutex

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a dashboard polling api every interval, requesting pageSize
// records per page. Non-positive values fall back to the defaults; a nil
// metrics gets an unregistered set.
func New(api API, interval time.Duration, pageSize int, metrics *Metrics) *Dashboard {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	store := NewStore()
	if pageSize > 0 {
		store.state.Backups.PageSize = pageSize
	}

	return &Dashboard{
		api:      api,
		store:    store,
		metrics:  metrics,
		interval: interval,
	}
}

// Snapshot returns the current state.
func (d *Dashboard) Snapshot() State {
	return d.store.Snapshot()
}

// Subscribe registers l to be called after every state change.
func (d *Dashboard) Subscribe(l Listener) (unsubscribe func()) {
	return d.store.Subscribe(l)
}

// FetchData refreshes health, the current backup page and logs. The three
// requests run concurrently and the state changes only if all of them
// succeed. Failures are logged and returned; the state is left untouched.
func (d *Dashboard) FetchData(ctx context.Context) error {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	return d.refresh(ctx)
}

// ChangePage moves to page and refreshes everything. Pages outside
// [1, total_pages] of the last successful refresh are ignored without a
// request.
func (d *Dashboard) ChangePage(ctx context.Context, page int) error {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	return d.changePage(ctx, page)
}

// MovePage moves delta pages from the current one. The current page is read
// after any refresh in flight has finished.
func (d *Dashboard) MovePage(ctx context.Context, delta int) error {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	return d.changePage(ctx, d.store.Snapshot().Backups.Page+delta)
}

// changePage must be called with refreshMu held.
func (d *Dashboard) changePage(ctx context.Context, page int) error {
	totalPages := d.store.Snapshot().Backups.TotalPages
	if page < 1 || page > totalPages {
		log.Debug().Int("page", page).Int("total_pages", totalPages).Msg("Ignoring page change out of range")
		return nil
	}

	d.store.Update(func(s *State) {
		s.Backups.Page = page
	})

	return d.refresh(ctx)
}

// refresh must be called with refreshMu held.
func (d *Dashboard) refresh(ctx context.Context) error {
	start := time.Now()
	current := d.store.Snapshot().Backups

	var (
		health  models.HealthStatus
		backups models.BackupPage
		logs    []models.LogEntry
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		health, err = d.api.Health(groupCtx)
		return err
	})
	group.Go(func() error {
		var err error
		backups, err = d.api.Backups(groupCtx, current.Page, current.PageSize)
		return err
	})
	group.Go(func() error {
		var err error
		logs, err = d.api.Logs(groupCtx)
		return err
	})

	err := group.Wait()
	d.metrics.refreshDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		d.metrics.refreshes.WithLabelValues(resultFailure).Inc()
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			log.Debug().Err(err).Msg("Refresh cancelled")
		} else {
			log.Error().Err(err).Int("page", current.Page).Msg("Error fetching data")
		}
		return err
	}

	now := time.Now()
	d.store.Update(func(s *State) {
		s.Health = health
		s.Backups = backups
		s.Logs = logs
		s.UpdatedAt = now
	})

	d.metrics.refreshes.WithLabelValues(resultSuccess).Inc()
	d.metrics.lastSuccess.Set(float64(now.Unix()))
	d.metrics.backupsTotal.Set(float64(backups.Total))

	log.Debug().
		Str("health", health.Status).
		Int("page", backups.Page).
		Int("total_pages", backups.TotalPages).
		Int("logs", len(logs)).
		Dur("took", time.Since(start)).
		Msg("Dashboard refreshed")
	return nil
}

// Start refreshes once immediately, then every interval until ctx is done or
// Stop is called.
func (d *Dashboard) Start(ctx context.Context) error {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	if d.done != nil {
		select {
		case <-d.done:
			// The previous loop ended with its parent context.
			d.cancel()
		default:
			return ErrAlreadyRunning
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})

	go d.pollLoop(loopCtx, d.done)

	log.Info().Dur("interval", d.interval).Msg("Dashboard poller started")
	return nil
}

// Stop cancels the poller, including an in-flight refresh, and waits for it.
func (d *Dashboard) Stop() {
	d.runMu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Info().Msg("Dashboard poller stopped")
}

// Done is closed when the running poller exits. It returns nil when the
// poller is not running.
func (d *Dashboard) Done() <-chan struct{} {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	return d.done
}

func (d *Dashboard) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	d.tick(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// tick runs a timer-driven refresh unless one is already in flight.
func (d *Dashboard) tick(ctx context.Context) {
	if !d.refreshMu.TryLock() {
		d.metrics.skipped.Inc()
		log.Debug().Msg("Refresh still in flight, skipping tick")
		return
	}
	defer d.refreshMu.Unlock()

	_ = d.refresh(ctx)
}
