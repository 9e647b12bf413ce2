// Package scheduler re-runs the scan on a cron schedule and answers chat
// commands between runs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"PullbackScanner/internal/model"
	"PullbackScanner/internal/notifier"
	"PullbackScanner/internal/scanner"
)

var log = logrus.WithField("component", "scheduler")

// ErrBusy is returned when a scan is requested while another is running.
var ErrBusy = errors.New("scan already running")

// Scanner runs one scan over a symbol list.
type Scanner interface {
	Scan(ctx context.Context, symbols []string) (model.ResultTable, []scanner.Outcome)
}

// Reporter publishes a scan result.
type Reporter interface {
	Report(ctx context.Context, table model.ResultTable)
}

// SymbolSource returns the current universe. It is called on every run so
// edits to the ticker file are picked up without a restart.
type SymbolSource func() ([]string, error)

// Scheduler manages the repeat-mode cron job.
type Scheduler struct {
	Cron     *cron.Cron
	Scanner  Scanner
	Reporter Reporter
	Symbols  SymbolSource
	Ctx      context.Context

	run    sync.Mutex
	mu     sync.RWMutex
	last   model.ResultTable
	lastAt time.Time
}

// NewScheduler creates a Scheduler. Cron specs include a seconds field.
func NewScheduler(ctx context.Context, sc Scanner, rep Reporter, symbols SymbolSource) *Scheduler {
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cron.PrintfLogger(log)),
		),
		Scanner:  sc,
		Reporter: rep,
		Symbols:  symbols,
		Ctx:      ctx,
	}
}

// Register adds the scan job under expr, e.g. "0 */30 * * * *".
func (s *Scheduler) Register(expr string) error {
	if _, err := s.Cron.AddFunc(expr, s.scanTask); err != nil {
		return fmt.Errorf("register scan task %q: %w", expr, err)
	}
	log.Infof("scan task registered: %s", expr)
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info("scheduler started")
}

// Stop stops the scheduler and waits for a running scan to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info("scheduler stopped")
}

func (s *Scheduler) scanTask() {
	if _, err := s.RunNow(); err != nil {
		log.Errorf("scheduled scan: %v", err)
	}
}

// RunNow executes a scan immediately and reports it. Concurrent calls
// return ErrBusy instead of queueing.
func (s *Scheduler) RunNow() (model.ResultTable, error) {
	if !s.run.TryLock() {
		return nil, ErrBusy
	}
	defer s.run.Unlock()

	symbols, err := s.Symbols()
	if err != nil {
		return nil, fmt.Errorf("load symbols: %w", err)
	}

	log.Info("running scan")
	table, _ := s.Scanner.Scan(s.Ctx, symbols)
	s.Reporter.Report(s.Ctx, table)

	s.mu.Lock()
	s.last = table
	s.lastAt = time.Now()
	s.mu.Unlock()
	return table, nil
}

// Last returns the most recent result and when it completed. The time is
// zero before the first run.
func (s *Scheduler) Last() (model.ResultTable, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.lastAt
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	switch command {
	case "/scan":
		if _, err := s.RunNow(); err != nil {
			if errors.Is(err, ErrBusy) {
				return "A scan is already running."
			}
			return fmt.Sprintf("❌ Scan failed: %v", err)
		}
		// the reporter already pushed the result
		return ""
	case "/last":
		table, at := s.Last()
		return notifier.FormatLast(table, at)
	default:
		return notifier.FormatHelp()
	}
}
