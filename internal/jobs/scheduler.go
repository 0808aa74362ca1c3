// internal/jobs/scheduler.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/insurance-backend/internal/config"
)

const jobTimeout = 4 * time.Minute

// PolicyExpirer moves lapsed customer policies to expired.
type PolicyExpirer interface {
	ExpireLapsed(ctx context.Context) (int, error)
}

// ClaimFlagger flags claims whose review deadline has passed.
type ClaimFlagger interface {
	FlagOverdue(ctx context.Context) (int, error)
}

// Scheduler runs the periodic maintenance jobs.
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler(cfg config.JobsConfig, policies PolicyExpirer, claims ClaimFlagger) (*Scheduler, error) {
	logger := cron.VerbosePrintfLogger(logrus.StandardLogger())
	c := cron.New(cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))

	if _, err := c.AddFunc(cfg.ExpirePoliciesSpec, run("expire_policies", policies.ExpireLapsed)); err != nil {
		return nil, fmt.Errorf("invalid schedule for policy expiry %q: %w", cfg.ExpirePoliciesSpec, err)
	}
	if _, err := c.AddFunc(cfg.FlagOverdueClaimSpec, run("flag_overdue_claims", claims.FlagOverdue)); err != nil {
		return nil, fmt.Errorf("invalid schedule for overdue claims %q: %w", cfg.FlagOverdueClaimSpec, err)
	}

	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logrus.WithField("jobs", len(s.cron.Entries())).Info("Maintenance jobs scheduled")
}

// Stop waits for running jobs to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logrus.Warn("Maintenance jobs did not finish before shutdown")
	}
}

func run(name string, fn func(ctx context.Context) (int, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		n, err := fn(ctx)
		entry := logrus.WithFields(logrus.Fields{
			"job":      name,
			"affected": n,
			"duration": time.Since(start).String(),
		})
		if err != nil {
			entry.WithError(err).Error("Maintenance job failed")
			return
		}
		entry.Debug("Maintenance job finished")
	}
}
