package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arifmahmud/uptimebot/internal/domain"
	"github.com/arifmahmud/uptimebot/internal/notify"
	"github.com/arifmahmud/uptimebot/internal/probe"
	"github.com/arifmahmud/uptimebot/internal/repo"
)

type job struct {
	cancel   context.CancelFunc
	interval int
}

// Scheduler drives one recurring probe-and-update cycle per active target.
// Each target gets its own goroutine keyed by target id, so cycles for one
// target are strictly serialized while different targets overlap freely.
type Scheduler struct {
	Logger   *zap.Logger
	Store    repo.Store
	Checker  probe.Checker
	Notifier notify.Notifier
	Timeout  time.Duration

	// IntervalUnit is one scheduling time unit: a target with interval N
	// probes every N units. Production uses a minute; tests shrink it.
	IntervalUnit time.Duration

	mu   sync.Mutex
	jobs map[domain.TargetID]*job
	wg   sync.WaitGroup
}

func New(logger *zap.Logger, store repo.Store, checker probe.Checker, notifier notify.Notifier, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Scheduler{
		Logger:       logger,
		Store:        store,
		Checker:      checker,
		Notifier:     notifier,
		Timeout:      timeout,
		IntervalUnit: time.Minute,
		jobs:         make(map[domain.TargetID]*job),
	}
}

// Resync rebuilds the job set from every active target in the registry.
// Called on process start: the registry is the source of truth, timers are
// not persisted.
func (s *Scheduler) Resync(ctx context.Context) error {
	targets, err := s.Store.ListActiveTargets(ctx)
	if err != nil {
		return fmt.Errorf("list active targets: %w", err)
	}
	for _, t := range targets {
		s.Register(t)
	}
	s.Logger.Info("scheduler_resynced", zap.Int("jobs", len(targets)))
	return nil
}

// Register starts (or restarts, on interval change) the recurring job for
// a target. Inactive targets are ignored.
func (s *Scheduler) Register(t domain.Target) {
	if !t.Active() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.jobs[t.ID]; ok {
		if old.interval == t.IntervalMinutes {
			return
		}
		old.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.jobs[t.ID] = &job{cancel: cancel, interval: t.IntervalMinutes}

	s.wg.Add(1)
	go s.run(ctx, t.ID, t.IntervalMinutes)

	s.Logger.Info("job_registered",
		zap.String("target_id", string(t.ID)),
		zap.Int("interval", t.IntervalMinutes),
	)
}

// Cancel stops the recurring job for a target. A cycle already in flight
// may complete; its tail writes are safe no-ops once the target row is
// gone.
func (s *Scheduler) Cancel(id domain.TargetID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		j.cancel()
		delete(s.jobs, id)
		s.Logger.Info("job_cancelled", zap.String("target_id", string(id)))
	}
}

// Stop cancels every job and waits for in-flight cycles to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for id, j := range s.jobs {
		j.cancel()
		delete(s.jobs, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
	s.Logger.Info("scheduler_stopped")
}

// Running reports the number of registered jobs.
func (s *Scheduler) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *Scheduler) run(ctx context.Context, id domain.TargetID, intervalUnits int) {
	defer s.wg.Done()

	// immediate first cycle, then one per elapsed interval
	s.runCycle(ctx, id)

	t := time.NewTicker(time.Duration(intervalUnits) * s.IntervalUnit)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.runCycle(ctx, id)
		}
	}
}

// runCycle is one probe-and-update pass: probe, hysteresis, registry
// update, history append, conditional alert. Storage failures are logged
// under their own event name so an operator can tell "the monitor is
// broken" apart from "targets are down"; the loop always continues.
func (s *Scheduler) runCycle(ctx context.Context, id domain.TargetID) {
	t, err := s.Store.GetTarget(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return
	}
	if err != nil {
		s.Logger.Error("cycle_storage_error",
			zap.String("target_id", string(id)),
			zap.Error(err),
		)
		return
	}

	cctx, cancel := context.WithTimeout(ctx, s.Timeout)
	out := s.Checker.Check(cctx, t.URL)
	cancel()

	// the target may have been deleted while the probe was in flight;
	// drop the result rather than resurrecting anything
	if _, err := s.Store.GetTarget(ctx, id); errors.Is(err, repo.ErrNotFound) {
		return
	}

	tr := domain.Evaluate(t.FailCount, out.Up)
	now := time.Now().UTC()

	if err := s.Store.UpdateAfterProbe(ctx, id, tr.FailCount, tr.Status, now); err != nil {
		s.Logger.Error("cycle_storage_error",
			zap.String("target_id", string(id)),
			zap.Error(err),
		)
	}
	entry := &domain.HistoryEntry{TargetID: id, Up: out.Up, Detail: out.Detail, CheckedAt: now}
	if err := s.Store.AppendHistory(ctx, entry); err != nil {
		s.Logger.Error("cycle_storage_error",
			zap.String("target_id", string(id)),
			zap.Error(err),
		)
	}

	s.Logger.Debug("cycle_checked",
		zap.String("target_id", string(id)),
		zap.String("url", t.URL),
		zap.Bool("up", out.Up),
		zap.Int("fail_count", tr.FailCount),
		zap.String("status", string(tr.Status)),
		zap.Float64("latency_ms", out.LatencyMS),
	)

	if tr.Alert {
		text := fmt.Sprintf("🚨 *ALERT: %s is DOWN*\nReason: %s", t.URL, out.Detail)
		if err := s.Notifier.Send(ctx, t.OwnerID, text); err != nil {
			// best-effort delivery; never retried, never blocks the loop
			s.Logger.Warn("alert_send_error",
				zap.String("target_id", string(id)),
				zap.Int64("owner_id", t.OwnerID),
				zap.Error(err),
			)
		}
	}
}
