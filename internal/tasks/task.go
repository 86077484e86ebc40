package tasks

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sort"
	"sync"
	"time"
)

// Status is a task lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Task is one tracked background job.
type Task struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Status     Status     `json:"status"`
	Done       int        `json:"done"`
	Total      int        `json:"total"`
	Attempts   int        `json:"attempts"`
	Result     any        `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Terminal reports whether the task reached a final state.
func (t Task) Terminal() bool {
	switch t.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Store is an in-memory task registry safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewStore constructs a Store.
func NewStore() *Store {
	return &Store{tasks: make(map[string]*Task)}
}

// Create registers a pending task and returns its snapshot.
func (s *Store) Create(kind string) (Task, error) {
	if kind == "" {
		return Task{}, errors.New("tasks: empty kind")
	}
	task := &Task{
		ID:        NewID(),
		Kind:      kind,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.tasks[task.ID] = task
	s.mu.Unlock()
	return *task, nil
}

// Get returns a snapshot of a task.
func (s *Store) Get(id string) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

// List returns snapshots of all tasks, newest first.
func (s *Store) List() []Task {
	s.mu.RLock()
	out := make([]Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		out = append(out, *task)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Store) update(id string, mutate func(*Task)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[id]; ok {
		mutate(task)
	}
}

// NewID generates a random task id.
func NewID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "task-" + hex.EncodeToString(buf)
}
