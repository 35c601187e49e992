package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// maintenanceJob is a periodic sweep. run returns how many items it removed.
type maintenanceJob struct {
	name     string
	schedule string
	run      func() int
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

// scheduleMaintenance registers jobs on a new cron scheduler and starts it.
// Runs of the same job never overlap.
func scheduleMaintenance(jobs []maintenanceJob, logger *slog.Logger) (*cron.Cron, error) {
	log := cronLogger{logger: logger.With("component", "maintenance")}
	c := cron.New(
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
	)

	for _, job := range jobs {
		_, err := c.AddFunc(job.schedule, func() {
			start := time.Now()
			removed := job.run()
			if removed > 0 {
				log.logger.Info("maintenance sweep finished",
					"job", job.name,
					"removed", removed,
					"duration", time.Since(start))
			}
		})
		if err != nil {
			return nil, fmt.Errorf("invalid schedule %q for %s: %w", job.schedule, job.name, err)
		}
	}

	c.Start()
	return c, nil
}
