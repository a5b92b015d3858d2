package interfaces

import (
	"context"
	"time"
)

// CalendarService answers trading-day questions from the provider's
// exchange calendar.
type CalendarService interface {
	// IsTradingDay reports whether the given date is a trading day.
	// Unknown (calendar unavailable) is reported as false.
	IsTradingDay(ctx context.Context, date time.Time) bool

	// LatestTradingDay returns the most recent trading day at or before
	// the given date.
	LatestTradingDay(ctx context.Context, date time.Time) (time.Time, error)
}

// UpdaterService performs the daily market data refresh.
type UpdaterService interface {
	// UpdateAll refreshes stock, index, and ETF data and derives
	// daily returns. Skips work when the date is not a trading day
	// unless force is set.
	UpdateAll(ctx context.Context, force bool) error
}

// JobStatus represents the current status of a scheduled job
type JobStatus struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	IsRunning bool       `json:"is_running"`
	LastError string     `json:"last_error,omitempty"`
}

// SchedulerService manages cron-based scheduling of update and
// similarity jobs.
type SchedulerService interface {
	Start() error
	Stop() error
	RegisterJob(name, schedule, description string, handler func() error) error
	TriggerJob(name string) error
	JobStatuses() []JobStatus
	IsRunning() bool
}

// EventType identifies a class of task progress events.
type EventType string

const (
	EventJobStarted   EventType = "job_started"
	EventJobProgress  EventType = "job_progress"
	EventJobCompleted EventType = "job_completed"
	EventJobFailed    EventType = "job_failed"
)

// Event is one task progress notification.
type Event struct {
	Type      EventType `json:"type"`
	Job       string    `json:"job,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// EventHandler processes a published event.
type EventHandler func(ctx context.Context, event Event) error

// EventService broadcasts task progress events to subscribers
// (the dashboard websocket, log sinks).
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) error
	Publish(ctx context.Context, event Event) error
	PublishSync(ctx context.Context, event Event) error
}
