// Package scheduler runs the recurring jobs (daily update, similarity
// run, attention ranking) on cron schedules and supports manual triggers
// from the dashboard.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/interfaces"
)

// jobEntry represents a registered job with metadata
type jobEntry struct {
	name        string
	schedule    string
	description string
	handler     func() error
	cronID      cron.EntryID
	lastRun     *time.Time
	isRunning   bool
	lastError   string
}

// Service implements SchedulerService
type Service struct {
	eventService interfaces.EventService
	cron         *cron.Cron
	logger       arbor.ILogger
	jobMu        sync.Mutex // Protects jobs map
	globalMu     sync.Mutex // Serializes job execution
	jobs         map[string]*jobEntry
	running      bool
}

// NewService creates a new scheduler service
func NewService(eventService interfaces.EventService, logger arbor.ILogger) interfaces.SchedulerService {
	return &Service{
		eventService: eventService,
		cron:         cron.New(),
		logger:       logger,
		jobs:         make(map[string]*jobEntry),
	}
}

// Start begins the scheduler
func (s *Service) Start() error {
	s.jobMu.Lock()
	if s.running {
		s.jobMu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	count := len(s.jobs)
	s.jobMu.Unlock()

	s.cron.Start()

	s.logger.Info().
		Int("jobs", count).
		Msg("Scheduler started")

	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Service) Stop() error {
	s.jobMu.Lock()
	if !s.running {
		s.jobMu.Unlock()
		return nil
	}
	s.running = false
	s.jobMu.Unlock()

	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Scheduled jobs did not finish within shutdown timeout")
	}

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// IsRunning returns true if scheduler is active
func (s *Service) IsRunning() bool {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	return s.running
}

// RegisterJob registers a new job with the scheduler
func (s *Service) RegisterJob(name, schedule, description string, handler func() error) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}

	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	entry := &jobEntry{
		name:        name,
		schedule:    schedule,
		description: description,
		handler:     handler,
	}

	cronID, err := s.cron.AddFunc(schedule, func() {
		s.executeJob(name)
	})
	if err != nil {
		return fmt.Errorf("failed to add job to cron: %w", err)
	}

	entry.cronID = cronID
	s.jobs[name] = entry

	s.logger.Info().
		Str("job_name", name).
		Str("schedule", schedule).
		Msg("Job registered")

	return nil
}

// TriggerJob runs a registered job immediately in the background.
func (s *Service) TriggerJob(name string) error {
	s.jobMu.Lock()
	entry, exists := s.jobs[name]
	if !exists {
		s.jobMu.Unlock()
		return fmt.Errorf("job %s not found", name)
	}
	if entry.isRunning {
		s.jobMu.Unlock()
		return fmt.Errorf("job %s is already running", name)
	}
	s.jobMu.Unlock()

	s.logger.Info().
		Str("job_name", name).
		Msg("Manual job trigger requested")

	go s.executeJob(name)
	return nil
}

// JobStatuses returns the current status of all registered jobs.
func (s *Service) JobStatuses() []interfaces.JobStatus {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	nextRuns := make(map[cron.EntryID]time.Time)
	for _, entry := range s.cron.Entries() {
		nextRuns[entry.ID] = entry.Next
	}

	statuses := make([]interfaces.JobStatus, 0, len(s.jobs))
	for _, entry := range s.jobs {
		status := interfaces.JobStatus{
			Name:      entry.name,
			Schedule:  entry.schedule,
			LastRun:   entry.lastRun,
			IsRunning: entry.isRunning,
			LastError: entry.lastError,
		}
		if next, ok := nextRuns[entry.cronID]; ok && !next.IsZero() {
			status.NextRun = &next
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// executeJob runs one job under the global execution lock so scheduled
// and manually triggered jobs never overlap.
func (s *Service) executeJob(name string) {
	s.jobMu.Lock()
	entry, exists := s.jobs[name]
	if !exists {
		s.jobMu.Unlock()
		return
	}
	handler := entry.handler
	s.jobMu.Unlock()

	s.globalMu.Lock()
	defer s.globalMu.Unlock()

	started := time.Now()
	s.setRunning(name, true)
	s.publishEvent(interfaces.EventJobStarted, name, fmt.Sprintf("Job %s started", name))

	err := handler()

	s.jobMu.Lock()
	entry.isRunning = false
	entry.lastRun = &started
	if err != nil {
		entry.lastError = err.Error()
	} else {
		entry.lastError = ""
	}
	s.jobMu.Unlock()

	if err != nil {
		s.logger.Error().
			Err(err).
			Str("job_name", name).
			Dur("duration", time.Since(started)).
			Msg("Job failed")
		s.publishEvent(interfaces.EventJobFailed, name, fmt.Sprintf("Job %s failed: %v", name, err))
		return
	}

	s.logger.Info().
		Str("job_name", name).
		Dur("duration", time.Since(started)).
		Msg("Job finished")
	s.publishEvent(interfaces.EventJobCompleted, name, fmt.Sprintf("Job %s finished", name))
}

func (s *Service) setRunning(name string, running bool) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	if entry, exists := s.jobs[name]; exists {
		entry.isRunning = running
	}
}

func (s *Service) publishEvent(eventType interfaces.EventType, job, message string) {
	if s.eventService == nil {
		return
	}
	s.eventService.Publish(context.Background(), interfaces.Event{
		Type:      eventType,
		Job:       job,
		Message:   message,
		Timestamp: time.Now(),
	})
}
