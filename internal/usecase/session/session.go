// Package session implements the interactive discovery session: a small
// state machine whose only blocking point is waiting for a human to supply
// a parameter value.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"browser-replay/internal/application/port/output"
	"browser-replay/internal/domain/entity"
	"browser-replay/internal/usecase/collector"

	"github.com/google/uuid"
)

type Config struct {
	InputTimeout time.Duration `mapstructure:"input_timeout"`
}

func DefaultConfig() Config {
	return Config{
		InputTimeout: 300 * time.Second,
	}
}

// InputSpec describes the value a discovery flow asks the human for.
type InputSpec struct {
	Field    string
	Label    string
	Prompt   string
	XPath    string
	Example  string
	Optional bool
}

type Listener func(entity.SessionEvent)

var transitions = map[entity.SessionStatus][]entity.SessionStatus{
	entity.SessionInitialized:     {entity.SessionRunning, entity.SessionFailed, entity.SessionCancelled},
	entity.SessionRunning:         {entity.SessionWaitingForInput, entity.SessionCompleted, entity.SessionFailed, entity.SessionCancelled},
	entity.SessionWaitingForInput: {entity.SessionRunning, entity.SessionFailed, entity.SessionCancelled},
}

type Session struct {
	mu sync.Mutex

	id        string
	objective string
	status    entity.SessionStatus
	createdAt time.Time
	updatedAt time.Time
	step      int
	errMsg    string

	current *entity.InputRequest
	waiter  chan string
	result  *entity.ResultLocation
	done    chan struct{}

	params    *collector.Collector
	listeners []Listener
	config    Config
	logger    output.LoggerPort
}

func New(objective string, config Config, logger output.LoggerPort) *Session {
	if config.InputTimeout <= 0 {
		config.InputTimeout = DefaultConfig().InputTimeout
	}
	id := newID()
	now := time.Now().UTC()
	log := logger.WithField("session_id", id)
	return &Session{
		id:        id,
		objective: objective,
		status:    entity.SessionInitialized,
		createdAt: now,
		updatedAt: now,
		done:      make(chan struct{}),
		params:    collector.New(log),
		config:    config,
		logger:    log,
	}
}

func (s *Session) ID() string {
	return s.id
}

// OnStatusChange registers fn to be called after every transition.
// Listeners run on the goroutine that caused the transition, outside the
// session lock.
func (s *Session) OnStatusChange(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) Start() error {
	return s.transitionAndNotify(entity.SessionRunning, "")
}

// RequestInput suspends the caller until a value is provided, the session
// ends, the input timeout elapses or ctx is done. A timeout fails the
// session.
func (s *Session) RequestInput(ctx context.Context, spec InputSpec) (string, error) {
	s.mu.Lock()
	switch {
	case s.current != nil:
		s.mu.Unlock()
		return "", fmt.Errorf("request %q: %w", spec.Field, entity.ErrInputPending)
	case s.status == entity.SessionCancelled:
		s.mu.Unlock()
		return "", entity.ErrSessionCancelled
	}

	label := spec.Label
	if label == "" {
		label = spec.Field
	}
	prompt := spec.Prompt
	if prompt == "" {
		prompt = "Please provide " + label
	}
	req := &entity.InputRequest{
		ID:          newID(),
		FieldName:   spec.Field,
		FieldLabel:  label,
		Prompt:      prompt,
		XPath:       spec.XPath,
		Example:     spec.Example,
		CurrentStep: s.step,
		Required:    !spec.Optional,
	}
	event, err := s.transition(entity.SessionWaitingForInput, "")
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	ch := make(chan string, 1)
	s.current = req
	s.waiter = ch
	s.mu.Unlock()
	s.notify(event)

	s.logger.Info("Waiting for user input", "field", req.FieldName, "request_id", req.ID)

	timer := time.NewTimer(s.config.InputTimeout)
	defer timer.Stop()

	select {
	case value := <-ch:
		return s.accept(req, value)
	case <-s.done:
		return "", s.endedError()
	case <-timer.C:
		return s.expire(req, ch)
	case <-ctx.Done():
		return s.abandon(req, ch, ctx.Err())
	}
}

// Provide delivers value to the pending input request.
func (s *Session) Provide(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.waiter == nil {
		return entity.ErrNoPendingInput
	}
	s.waiter <- value
	s.waiter = nil
	return nil
}

func (s *Session) PendingInput() (*entity.InputRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, false
	}
	req := *s.current
	return &req, true
}

func (s *Session) accept(req *entity.InputRequest, value string) (string, error) {
	s.mu.Lock()
	if s.status.IsTerminal() {
		s.mu.Unlock()
		return "", s.endedError()
	}
	step := req.CurrentStep
	s.params.Collect(req.FieldName, value, collector.CollectOptions{
		Label:       req.FieldLabel,
		XPath:       req.XPath,
		Description: req.Prompt,
		Example:     req.Example,
		Step:        &step,
		Optional:    !req.Required,
	})
	s.current = nil
	event, err := s.transition(entity.SessionRunning, "")
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	s.notify(event)
	return value, nil
}

// late returns a value that Provide delivered before the lock was taken.
// The caller must hold s.mu.
func late(ch chan string) (string, bool) {
	select {
	case value := <-ch:
		return value, true
	default:
		return "", false
	}
}

func (s *Session) expire(req *entity.InputRequest, ch chan string) (string, error) {
	s.mu.Lock()
	if s.status.IsTerminal() {
		s.mu.Unlock()
		return "", s.endedError()
	}
	if value, ok := late(ch); ok {
		s.mu.Unlock()
		return s.accept(req, value)
	}

	msg := fmt.Sprintf("timed out after %s waiting for %s", s.config.InputTimeout, req.FieldName)
	s.logger.Warn("Input request timed out", "field", req.FieldName, "timeout", s.config.InputTimeout)

	s.current = nil
	s.waiter = nil
	event, err := s.transition(entity.SessionFailed, msg)
	s.mu.Unlock()
	if err == nil {
		s.notify(event)
	}
	return "", fmt.Errorf("%s: %w", req.FieldName, entity.ErrInputTimeout)
}

func (s *Session) abandon(req *entity.InputRequest, ch chan string, cause error) (string, error) {
	s.mu.Lock()
	if s.status.IsTerminal() {
		s.mu.Unlock()
		return "", s.endedError()
	}
	if value, ok := late(ch); ok {
		s.mu.Unlock()
		return s.accept(req, value)
	}

	s.current = nil
	s.waiter = nil
	event, err := s.transition(entity.SessionRunning, "")
	s.mu.Unlock()
	if err == nil {
		s.notify(event)
	}
	return "", fmt.Errorf("waiting for %s: %w", req.FieldName, cause)
}

func (s *Session) endedError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == entity.SessionCancelled {
		return entity.ErrSessionCancelled
	}
	return fmt.Errorf("%w: session %s while waiting for input", entity.ErrInvalidTransition, s.status)
}

// MarkResultLocation records which element holds the objective's answer.
func (s *Session) MarkResultLocation(index int, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.IsTerminal() {
		return fmt.Errorf("%w: session is %s", entity.ErrInvalidTransition, s.status)
	}
	s.result = &entity.ResultLocation{Index: index, Description: description}
	s.updatedAt = time.Now().UTC()
	s.logger.Info("Marked result location", "index", index, "description", description)
	return nil
}

// AdvanceStep bumps the discovery step counter and returns the new value.
func (s *Session) AdvanceStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step++
	s.updatedAt = time.Now().UTC()
	return s.step
}

func (s *Session) Complete() error {
	return s.transitionAndNotify(entity.SessionCompleted, "")
}

func (s *Session) Fail(message string) error {
	return s.transitionAndNotify(entity.SessionFailed, message)
}

// Cancel ends the session and releases any pending wait without delivering
// a value. Parameters already collected are kept.
func (s *Session) Cancel() error {
	return s.transitionAndNotify(entity.SessionCancelled, "")
}

func (s *Session) Status() entity.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Parameters() []entity.CollectedParameter {
	return s.params.List()
}

func (s *Session) State() entity.SessionState {
	params := s.params.List()

	s.mu.Lock()
	defer s.mu.Unlock()
	state := entity.SessionState{
		ID:                  s.id,
		Objective:           s.objective,
		Status:              s.status,
		CreatedAt:           s.createdAt,
		UpdatedAt:           s.updatedAt,
		StepsCompleted:      s.step,
		CollectedParameters: params,
		ErrorMessage:        s.errMsg,
	}
	if s.current != nil {
		req := *s.current
		state.CurrentInput = &req
	}
	if s.result != nil {
		loc := *s.result
		state.ResultLocation = &loc
	}
	return state
}

// Record bundles the trace with what this session collected, ready for
// compilation.
func (s *Session) Record(trace entity.Trace) *entity.DiscoveryRecord {
	state := s.State()
	if trace.Objective == "" {
		trace.Objective = state.Objective
	}
	return &entity.DiscoveryRecord{
		SessionID:      state.ID,
		Trace:          trace,
		Parameters:     state.CollectedParameters,
		ResultLocation: state.ResultLocation,
	}
}

func (s *Session) transitionAndNotify(to entity.SessionStatus, msg string) error {
	s.mu.Lock()
	event, err := s.transition(to, msg)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(event)
	return nil
}

// transition must be called with s.mu held.
func (s *Session) transition(to entity.SessionStatus, msg string) (entity.SessionEvent, error) {
	from := s.status
	if !allowed(from, to) {
		return entity.SessionEvent{}, fmt.Errorf("%w: %s -> %s", entity.ErrInvalidTransition, from, to)
	}
	now := time.Now().UTC()
	s.status = to
	s.updatedAt = now
	if msg != "" {
		s.errMsg = msg
	}
	if to.IsTerminal() {
		s.current = nil
		s.waiter = nil
		close(s.done)
	}
	s.logger.Debug("Session transition", "from", from, "to", to)
	return entity.SessionEvent{SessionID: s.id, From: from, To: to, At: now}, nil
}

func (s *Session) notify(event entity.SessionEvent) {
	s.mu.Lock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(event)
	}
}

func allowed(from, to entity.SessionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
