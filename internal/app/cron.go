package app

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/crm/internal/jobs"
)

// Job names accepted by --once.
const (
	JobHeartbeat = "heartbeat"
	JobLowStock  = "low-stock"
	JobReport    = "report"
	JobReminders = "reminders"
)

// NewScheduler registers every CRM job with its configured schedule.
func NewScheduler(lg *zap.Logger, cfg CronConfig) (*jobs.Scheduler, error) {
	client := jobs.NewClient(cfg.Endpoint, nil)
	s := jobs.NewScheduler(lg, cfg.Timeout)

	entries := []struct {
		name     string
		schedule string
		job      jobs.Job
	}{
		{JobHeartbeat, cfg.HeartbeatSchedule, &jobs.Heartbeat{
			Client: client, Log: jobs.NewLogFile(cfg.HeartbeatLog),
		}},
		{JobLowStock, cfg.LowStockSchedule, &jobs.LowStock{
			Client: client, Log: jobs.NewLogFile(cfg.LowStockLog),
		}},
		{JobReport, cfg.ReportSchedule, &jobs.Report{
			Client: client, Log: jobs.NewLogFile(cfg.ReportLog), Lookback: cfg.ReportLookback,
		}},
		{JobReminders, cfg.RemindersSchedule, &jobs.Reminders{
			Client: client, Log: jobs.NewLogFile(cfg.RemindersLog),
		}},
	}
	for _, e := range entries {
		if err := s.Add(e.name, e.schedule, e.job); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// RunCron runs the job scheduler until ctx is done. With cfg.Once set
// it runs that single job and returns its error instead.
func RunCron(ctx context.Context, lg *zap.Logger, cfg *Config) error {
	s, err := NewScheduler(lg, cfg.Cron)
	if err != nil {
		return errors.Wrap(err, "create scheduler")
	}

	if name := cfg.Once; name != "" {
		lg.Info("Running job once", zap.String("job", name))
		return s.RunOnce(ctx, name)
	}
	return s.Run(ctx)
}
