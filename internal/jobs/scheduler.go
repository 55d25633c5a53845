// Package jobs runs the API's background work on a cron schedule.
//
// Today that is one job: the legacy mirror replication pass, which drains the
// maintenance_events outbox into whichever legacy sink is configured
// (gorm table, MongoDB or Firestore) so older dashboards keep reading
// current maintenance state. A pass can outlast its tick when a sink is slow,
// so overlapping runs are skipped rather than queued, and a panicking sink is
// logged and recovered so the next tick still fires.
package jobs

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobStatus describes a registered job for health and debugging output
type JobStatus struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	Next     time.Time `json:"next"`
	Prev     time.Time `json:"prev"`
}

type registeredJob struct {
	id       cron.EntryID
	schedule string
}

// Scheduler owns the cron runner for replication and any later periodic work
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger

	mu   sync.Mutex
	jobs map[string]registeredJob
}

// NewScheduler creates a scheduler whose cron internals log through logger.
// Schedules take a leading seconds field so replication can tick faster than
// once a minute.
func NewScheduler(logger *zap.Logger) *Scheduler {
	cronLog := zapCronLogger{logger: logger.Named("cron")}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		logger: logger,
		jobs:   make(map[string]registeredJob),
	}
}

// Start begins firing registered jobs
func (s *Scheduler) Start() {
	s.logger.Info("starting job scheduler", zap.Strings("jobs", s.names()))
	s.cron.Start()
}

// Stop halts scheduling. The returned context is done once an in-flight
// replication pass has returned.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("stopping job scheduler")
	return s.cron.Stop()
}

// AddJob registers job under a unique name. Expressions look like
// "*/30 * * * * *"; descriptors such as "@every 1m" work too.
func (s *Scheduler) AddJob(name string, schedule string, job func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	id, err := s.cron.AddFunc(schedule, func() {
		s.logger.Debug("running scheduled job", zap.String("jobName", name))
		job()
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, name, err)
	}

	s.jobs[name] = registeredJob{id: id, schedule: schedule}
	s.logger.Info("added scheduled job", zap.String("jobName", name), zap.String("schedule", schedule))
	return nil
}

// RemoveJob unregisters a job. A run already in progress finishes.
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}
	s.cron.Remove(job.id)
	delete(s.jobs, name)

	s.logger.Info("removed scheduled job", zap.String("jobName", name))
	return nil
}

// Jobs lists registered jobs sorted by name. Next is zero until Start.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for name, job := range s.jobs {
		entry := s.cron.Entry(job.id)
		out = append(out, JobStatus{Name: name, Schedule: job.schedule, Next: entry.Next, Prev: entry.Prev})
	}
	slices.SortFunc(out, func(a, b JobStatus) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func (s *Scheduler) names() []string {
	jobs := s.Jobs()
	names := make([]string, len(jobs))
	for i, job := range jobs {
		names[i] = job.Name
	}
	return names
}

// zapCronLogger adapts zap to cron.Logger. cron passes alternating key/value
// pairs, which zap's sugared logger accepts as is.
type zapCronLogger struct {
	logger *zap.Logger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().With(zap.Error(err)).Errorw(msg, keysAndValues...)
}
