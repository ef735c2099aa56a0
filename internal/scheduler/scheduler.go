// Package scheduler runs background jobs on cron schedules
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// AliasRefresher reloads the coin alias table from the price service
type AliasRefresher interface {
	RefreshAliases(ctx context.Context) (int, error)
}

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron    *cron.Cron
	aliases AliasRefresher
	spec    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewScheduler creates a scheduler refreshing aliases on spec, a cron
// expression with a leading seconds field
func NewScheduler(aliases AliasRefresher, spec string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		aliases: aliases,
		spec:    spec,
		timeout: time.Minute,
		logger:  logger.With(slog.String("component", "scheduler")),
	}
}

// Start registers the jobs and starts the cron runner
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.refreshAliases); err != nil {
		return fmt.Errorf("failed to schedule alias refresh %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started", slog.String("alias_refresh", s.spec))
	return nil
}

// Stop stops the runner and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) refreshAliases() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.aliases.RefreshAliases(ctx)
	if err != nil {
		s.logger.Error("scheduled alias refresh failed", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("alias table refreshed", slog.Int("coins", n))
}
