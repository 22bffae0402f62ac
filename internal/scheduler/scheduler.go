// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler owns the cron runner and its job registry.
type Scheduler struct {
	cron     *cron.Cron
	registry *Registry
	logger   *slog.Logger
}

// New creates a new scheduler instance. Jobs are added through Jobs().
func New(logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger)))
	return &Scheduler{
		cron:     c,
		registry: newRegistry(c, logger),
		logger:   logger,
	}
}

// Jobs returns the job registry.
func (s *Scheduler) Jobs() *Registry {
	return s.registry
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}
