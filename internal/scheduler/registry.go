// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context) error

// registeredJob holds metadata about a registered cron job.
type registeredJob struct {
	name        string
	description string
	schedule    string
	entryID     cron.EntryID
	run         JobFunc
	lastErr     error
	lastRun     time.Time
	running     sync.Mutex
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name        string
	Description string
	Schedule    string
	LastRun     time.Time
	NextRun     time.Time
	LastError   string
}

// Registry tracks the jobs added to a cron instance so they can be listed
// and triggered by hand.
type Registry struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
	mu      sync.RWMutex
	jobs    map[string]*registeredJob
}

// DefaultJobTimeout bounds a single job run.
const DefaultJobTimeout = 5 * time.Minute

func newRegistry(c *cron.Cron, logger *slog.Logger) *Registry {
	return &Registry{
		cron:    c,
		logger:  logger,
		timeout: DefaultJobTimeout,
		jobs:    make(map[string]*registeredJob),
	}
}

// Add schedules fn under name. Names are unique.
func (r *Registry) Add(name, description, schedule string, fn JobFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[name]; exists {
		return fmt.Errorf("job already registered: %s", name)
	}

	job := &registeredJob{
		name:        name,
		description: description,
		schedule:    schedule,
		run:         fn,
	}
	entryID, err := r.cron.AddFunc(schedule, func() {
		_ = r.execute(context.Background(), job)
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q for %s: %w", schedule, name, err)
	}
	job.entryID = entryID
	r.jobs[name] = job

	r.logger.Debug("registered scheduled job", "name", name, "schedule", schedule)
	return nil
}

// execute runs a job once. Overlapping runs of the same job are skipped.
func (r *Registry) execute(ctx context.Context, job *registeredJob) error {
	if !job.running.TryLock() {
		r.logger.Warn("scheduled job still running, skipping", "name", job.name)
		return fmt.Errorf("job %s is already running", job.name)
	}
	defer job.running.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	err := job.run(ctx)

	r.mu.Lock()
	job.lastRun = start
	job.lastErr = err
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("scheduled job failed", "name", job.name, "error", err)
		return err
	}
	r.logger.Debug("scheduled job finished", "name", job.name, "duration", time.Since(start))
	return nil
}

// List returns all registered jobs sorted by name.
func (r *Registry) List() []JobInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]JobInfo, 0, len(r.jobs))
	for _, job := range r.jobs {
		entry := r.cron.Entry(job.entryID)
		info := JobInfo{
			Name:        job.name,
			Description: job.description,
			Schedule:    job.schedule,
			LastRun:     job.lastRun,
			NextRun:     entry.Next,
		}
		if job.lastErr != nil {
			info.LastError = job.lastErr.Error()
		}
		result = append(result, info)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// TriggerNow runs a job immediately and returns its error.
func (r *Registry) TriggerNow(ctx context.Context, name string) error {
	r.mu.RLock()
	job, ok := r.jobs[name]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("job not found: %s", name)
	}

	r.logger.Info("manually triggering job", "name", name)
	return r.execute(ctx, job)
}

// Remove unschedules a job.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[name]
	if !ok {
		return
	}
	r.cron.Remove(job.entryID)
	delete(r.jobs, name)
	r.logger.Debug("unregistered scheduled job", "name", name)
}
