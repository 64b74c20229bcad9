package session

import (
	"fmt"
	"sort"
	"sync"

	"browser-replay/internal/application/port/output"
	"browser-replay/internal/domain/entity"
)

// Registry tracks live sessions by id so external callers can route input
// to the right one.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	listeners []Listener
	config    Config
	logger    output.LoggerPort
}

func NewRegistry(config Config, logger output.LoggerPort) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		config:   config,
		logger:   logger.Named("sessions"),
	}
}

// OnStatusChange registers fn on every session created afterwards.
func (r *Registry) OnStatusChange(fn Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *Registry) Create(objective string) *Session {
	s := New(objective, r.config, r.logger)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fn := range r.listeners {
		s.OnStatusChange(fn)
	}
	r.sessions[s.ID()] = s
	r.logger.Info("Session created", "session_id", s.ID(), "objective", objective)
	return s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, entity.ErrSessionNotFound)
	}
	return s, nil
}

func (r *Registry) ProvideInput(id, value string) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	return s.Provide(value)
}

func (r *Registry) PendingInput(id string) (*entity.InputRequest, error) {
	s, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	req, ok := s.PendingInput()
	if !ok {
		return nil, entity.ErrNoPendingInput
	}
	return req, nil
}

func (r *Registry) Cancel(id string) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	return s.Cancel()
}

// Delete removes the session, cancelling it first if it is still live.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, entity.ErrSessionNotFound)
	}
	if !s.Status().IsTerminal() {
		_ = s.Cancel()
	}
	return nil
}

// List returns session snapshots, oldest first.
func (r *Registry) List() []entity.SessionState {
	r.mu.RLock()
	result := make([]entity.SessionState, 0, len(r.sessions))
	for _, s := range r.sessions {
		result = append(result, s.State())
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}
