// Package scheduler runs maintenance tasks on fixed intervals.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"kinoshka/internal/logging"
)

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrTaskRunning   = errors.New("task is already running")
	ErrDuplicateTask = errors.New("task id already registered")
	ErrInvalidTask   = errors.New("task needs an id, a positive interval and a run func")
	ErrStopped       = errors.New("scheduler is stopped")
)

const defaultCheckEvery = time.Minute

// TaskStatus is the outcome of a task's last run.
type TaskStatus string

const (
	StatusPending TaskStatus = "pending"
	StatusRunning TaskStatus = "running"
	StatusSuccess TaskStatus = "success"
	StatusError   TaskStatus = "error"
)

// Task is a unit of periodic work. Run returns how many items it processed.
type Task struct {
	ID       string
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int, error)
}

// TaskState describes a registered task.
type TaskState struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Interval   string     `json:"interval"`
	LastRunAt  *time.Time `json:"lastRunAt,omitempty"`
	LastStatus TaskStatus `json:"lastStatus"`
	LastError  string     `json:"lastError,omitempty"`
	Items      int        `json:"items"`
}

type entry struct {
	task    Task
	state   TaskState
	running bool
}

// Service manages scheduled task execution.
type Service struct {
	checkEvery time.Duration
	now        func() time.Time
	log        zerolog.Logger

	mu      sync.Mutex
	tasks   map[string]*entry
	running bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type Option func(*Service)

// WithCheckInterval sets how often due tasks are looked for.
func WithCheckInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.checkEvery = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(opts ...Option) *Service {
	s := &Service{
		checkEvery: defaultCheckEvery,
		now:        time.Now,
		log:        logging.Component("scheduler"),
		tasks:      make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a task. Tasks never run before are due immediately.
func (s *Service) Register(task Task) error {
	if task.ID == "" || task.Interval <= 0 || task.Run == nil {
		return ErrInvalidTask
	}
	if task.Name == "" {
		task.Name = task.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, task.ID)
	}
	s.tasks[task.ID] = &entry{
		task: task,
		state: TaskState{
			ID:         task.ID,
			Name:       task.Name,
			Interval:   task.Interval.String(),
			LastStatus: StatusPending,
		},
	}
	return nil
}

// Start begins the scheduler background loop. A stopped scheduler stays stopped.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.stopped {
		return
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.wg.Add(1)
	go s.loop()
	s.log.Info().Int("tasks", len(s.tasks)).Msg("scheduler started")
}

// Stop cancels running tasks and waits for them until ctx expires. No task
// starts after Stop.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	s.running = false
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info().Msg("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stopped before tasks finished")
	}
}

func (s *Service) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.checkEvery)
	defer ticker.Stop()

	s.RunDue()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.RunDue()
		}
	}
}

// RunDue starts every task whose interval has elapsed and returns how many
// were started.
func (s *Service) RunDue() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return 0
	}

	now := s.now()
	started := 0
	for _, e := range s.tasks {
		if e.running {
			continue
		}
		if e.state.LastRunAt != nil && now.Sub(*e.state.LastRunAt) < e.task.Interval {
			continue
		}
		s.startLocked(e)
		started++
	}
	return started
}

// RunTaskNow triggers immediate execution of a task.
func (s *Service) RunTaskNow(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	e, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if e.running {
		return ErrTaskRunning
	}
	s.startLocked(e)
	return nil
}

func (s *Service) startLocked(e *entry) {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	e.running = true
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(ctx, e)
	}()
}

func (s *Service) execute(ctx context.Context, e *entry) {
	s.log.Debug().Str("task", e.task.ID).Msg("executing task")
	items, err := e.task.Run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	finished := s.now().UTC()
	e.running = false
	e.state.LastRunAt = &finished
	e.state.Items = items
	if err != nil {
		e.state.LastStatus = StatusError
		e.state.LastError = err.Error()
		s.log.Warn().Err(err).Str("task", e.task.ID).Msg("task failed")
		return
	}
	e.state.LastStatus = StatusSuccess
	e.state.LastError = ""
	s.log.Debug().Str("task", e.task.ID).Int("items", items).Msg("task completed")
}

// Wait blocks until every started task has returned. Only meaningful when the
// background loop is not running.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Tasks returns all tasks ordered by id; running tasks report StatusRunning.
func (s *Service) Tasks() []TaskState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskState, 0, len(s.tasks))
	for _, e := range s.tasks {
		st := e.state
		if e.running {
			st.LastStatus = StatusRunning
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IsTaskRunning checks if a specific task is currently running.
func (s *Service) IsTaskRunning(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tasks[id]
	return ok && e.running
}
