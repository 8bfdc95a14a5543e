// Package scheduler runs periodic reminder sweeps on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/m3rciful/fanrelay/core/logger"
	"github.com/m3rciful/fanrelay/internal/relay"
)

const component = "scheduler"

// Reminder runs one reminder sweep.
type Reminder interface {
	Remind(ctx context.Context) (relay.BatchReport, error)
}

// Scheduler wraps a cron runner with a single reminder job.
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	timeout time.Duration
}

// Validate checks a standard five-field cron spec or a descriptor such as @daily.
func Validate(spec string) error {
	if _, err := cron.ParseStandard(strings.TrimSpace(spec)); err != nil {
		return fmt.Errorf("scheduler: invalid spec %q: %w", spec, err)
	}
	return nil
}

// New registers job under spec, evaluated in loc. Every run gets its own
// context bounded by timeout.
func New(spec string, loc *time.Location, timeout time.Duration, job Reminder) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	spec = strings.TrimSpace(spec)
	if err := Validate(spec); err != nil {
		return nil, err
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		spec:    spec,
		timeout: timeout,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.run(job) }); err != nil {
		return nil, fmt.Errorf("scheduler: add job: %w", err)
	}
	return s, nil
}

func (s *Scheduler) run(job Reminder) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	started := time.Now()
	report, err := job.Remind(ctx)
	if err != nil {
		logger.Error(ctx, component, "scheduler.remind",
			slog.String("status", "fail"),
			slog.Duration("duration", time.Since(started)),
			logger.Err(err),
		)
		return
	}
	logger.Info(ctx, component, "scheduler.remind",
		slog.String("status", "ok"),
		slog.String("batch_id", report.ID),
		slog.Int("total", report.Total),
		slog.Int("sent", report.Sent),
		slog.Int("failed", report.Failed),
		slog.Int("skipped", report.Skipped),
		slog.Duration("duration", time.Since(started)),
	)
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info(context.Background(), component, "scheduler.start", slog.String("spec", s.spec))
}

// Stop waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next reports when the sweep fires next. It is zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
