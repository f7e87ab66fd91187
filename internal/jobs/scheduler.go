package jobs

import (
	"context"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrUnknownJob is returned by RunOnce for an unregistered job name.
var ErrUnknownJob = errors.New("unknown job")

// cronLogger routes robfig/cron logs to zap.
type cronLogger struct {
	lg *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.lg.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.lg.Errorw(msg, append(keysAndValues, "error", err)...)
}

// Scheduler runs registered jobs on independent cron schedules.
type Scheduler struct {
	lg      *zap.Logger
	cron    *cron.Cron
	jobs    map[string]Job
	timeout time.Duration

	// ctx is the base context of scheduled runs, set by Run.
	ctx context.Context
}

// NewScheduler returns a Scheduler. Each run is bounded by timeout when it
// is positive.
func NewScheduler(lg *zap.Logger, timeout time.Duration) *Scheduler {
	logger := cronLogger{lg: lg.Sugar()}
	return &Scheduler{
		lg: lg,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger)),
		),
		jobs:    make(map[string]Job),
		timeout: timeout,
		ctx:     context.Background(),
	}
}

// Add registers job under name with a standard five-field cron schedule.
func (s *Scheduler) Add(name, schedule string, job Job) error {
	if _, ok := s.jobs[name]; ok {
		return errors.Errorf("job %q already registered", name)
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.run(s.ctx, name, job) }); err != nil {
		return errors.Wrapf(err, "schedule %q", name)
	}
	s.jobs[name] = job
	s.lg.Info("Job scheduled", zap.String("job", name), zap.String("schedule", schedule))
	return nil
}

// Names returns the registered job names in lexical order.
func (s *Scheduler) Names() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run starts the cron loop and blocks until ctx is done, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	s.lg.Info("Scheduler started", zap.Strings("jobs", s.Names()))

	<-ctx.Done()
	s.lg.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
	return nil
}

// RunOnce runs the named job immediately and returns its error.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return errors.Wrapf(ErrUnknownJob, "%q", name)
	}
	return s.run(ctx, name, job)
}

func (s *Scheduler) run(ctx context.Context, name string, job Job) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	lg := s.lg.With(zap.String("job", name))
	start := time.Now()
	err := job.Run(ctx)
	if err != nil {
		lg.Warn("Job failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return err
	}
	lg.Info("Job finished", zap.Duration("duration", time.Since(start)))
	return nil
}
