package status

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/interfaces"
)

// AppState represents the application state
type AppState string

const (
	StateIdle    AppState = "idle"
	StateWorking AppState = "working"
)

// Service tracks the application state derived from job events.
type Service struct {
	state        AppState
	activeJob    string
	mu           sync.RWMutex
	eventService interfaces.EventService
	logger       arbor.ILogger
}

// NewService creates a new StatusService
func NewService(eventService interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		state:        StateIdle,
		eventService: eventService,
		logger:       logger,
	}
}

// GetState returns the current application state (thread-safe)
func (s *Service) GetState() AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// GetStatus returns the full status including state and the active job.
func (s *Service) GetStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"state":      string(s.state),
		"active_job": s.activeJob,
		"timestamp":  time.Now(),
	}
}

// SubscribeToJobEvents tracks running jobs through the event service.
func (s *Service) SubscribeToJobEvents() {
	s.eventService.Subscribe(interfaces.EventJobStarted, func(ctx context.Context, event interfaces.Event) error {
		s.setState(StateWorking, event.Job)
		return nil
	})

	finish := func(ctx context.Context, event interfaces.Event) error {
		s.setState(StateIdle, "")
		return nil
	}
	s.eventService.Subscribe(interfaces.EventJobCompleted, finish)
	s.eventService.Subscribe(interfaces.EventJobFailed, finish)

	s.logger.Info().Msg("StatusService subscribed to job events")
}

func (s *Service) setState(state AppState, job string) {
	s.mu.Lock()
	oldState := s.state
	s.state = state
	s.activeJob = job
	s.mu.Unlock()

	if oldState != state {
		s.logger.Info().
			Str("old_state", string(oldState)).
			Str("new_state", string(state)).
			Str("job", job).
			Msg("Application state changed")
	}
}
