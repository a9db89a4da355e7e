/*
scheduler.go - Automated shift auto-close

PURPOSE:
  Periodically force-closes shifts that have been open longer than the
  auto-close cap (default 8 hours), so a forgotten clock-out never produces
  an unbounded shift.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start
  - A due shift is closed at clockIn + cap and priced by pay.AutoClosePolicy
  - The close is conditional on clock_out still being NULL; if the owner
    clocked out in between, the shift is counted as skipped
  - Every sweep is recorded as a run for audit and the admin UI

RATE MODE:
  "weekday" pays cap x weekday rate without an overtime split, whatever the
  day type (the behavior staff have been paid under so far). "day_type"
  prices the capped interval exactly like a manual clock-out. The mode is
  stored on every run.

CONFIGURATION:
  - CheckInterval: How often to check (AUTO_CLOSE_INTERVAL, default 15m)
  - Enabled: Whether scheduler is active (AUTO_CLOSE_ENABLED, default true)

USAGE:
  scheduler := NewAutoCloseScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: GetActiveShift (auto-close on read), TriggerAutoClose
  - pay/autoclose.go: AutoClosePolicy
*/
package api

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/roster-engine/pay"
	"github.com/warp/roster-engine/store/sqlite"
)

// DefaultCheckInterval is how often the sweep runs unless configured.
const DefaultCheckInterval = 15 * time.Minute

// AutoCloseScheduler runs the auto-close sweep on a ticker.
type AutoCloseScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAutoCloseScheduler creates a new scheduler.
func NewAutoCloseScheduler(handler *Handler) *AutoCloseScheduler {
	return &AutoCloseScheduler{
		Handler:       handler,
		CheckInterval: DefaultCheckInterval,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (s *AutoCloseScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		log.Println("[AutoClose] Disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan bool)
	s.wg.Add(1)

	go s.run()

	log.Printf("[AutoClose] Started with check interval: %v, cap: %v, mode: %s",
		s.CheckInterval, s.Handler.AutoClose.MaxDuration, s.Handler.AutoClose.Mode)
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *AutoCloseScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		log.Println("[AutoClose] Stopped")
	}
}

func (s *AutoCloseScheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.RunNow()

	for {
		select {
		case <-s.ticker.C:
			s.RunNow()
		case <-s.stop:
			return
		}
	}
}

// RunNow triggers an immediate sweep.
func (s *AutoCloseScheduler) RunNow() {
	if _, err := s.Handler.SweepAutoClose(context.Background()); err != nil {
		log.Printf("[AutoClose] Sweep failed: %v", err)
	}
}

// SweepAutoClose closes every open shift past the cap and records the run.
// Per-shift failures are counted, not returned; the error is for the run
// itself (listing shifts or saving the run record).
func (h *Handler) SweepAutoClose(ctx context.Context) (sqlite.AutoCloseRun, error) {
	now := h.now()
	run := sqlite.AutoCloseRun{
		ID:        uuid.NewString(),
		RateMode:  string(h.AutoClose.Mode),
		MaxHours:  pay.Hours(h.AutoClose.MaxDuration),
		StartedAt: now,
	}
	if run.RateMode == "" {
		run.RateMode = string(pay.AutoCloseWeekdayRate)
	}

	if err := h.Store.SaveAutoCloseRun(ctx, run); err != nil {
		return run, fmt.Errorf("failed to save run record: %w", err)
	}

	open, err := h.Store.ListOpenShifts(ctx)
	if err != nil {
		run.Error = err.Error()
		h.finishRun(ctx, &run)
		return run, err
	}

	var firstErr error
	for _, sh := range open {
		if !h.AutoClose.Due(sh.ClockIn, now) {
			continue
		}
		run.Checked++

		closed, err := h.autoCloseShift(ctx, sh)
		switch {
		case err != nil:
			run.Failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("shift %s: %w", sh.ID, err)
			}
			log.Printf("[AutoClose] Error closing shift %s for %s: %v", sh.ID, sh.StaffID, err)
		case closed:
			run.Closed++
		default:
			run.Skipped++
		}
	}
	if firstErr != nil {
		run.Error = firstErr.Error()
	}

	if err := h.finishRun(ctx, &run); err != nil {
		return run, fmt.Errorf("failed to update run record: %w", err)
	}

	if run.Checked > 0 {
		log.Printf("[AutoClose] Completed: %d closed, %d skipped (closed by owner), %d failed",
			run.Closed, run.Skipped, run.Failed)
	}
	return run, nil
}

func (h *Handler) finishRun(ctx context.Context, run *sqlite.AutoCloseRun) error {
	completed := h.now()
	run.CompletedAt = &completed
	return h.Store.SaveAutoCloseRun(ctx, *run)
}
