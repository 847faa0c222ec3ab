package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry is the passive store of task records. The orchestrator is the
// only writer; readers always observe a record in full, never a
// half-updated mix of status and payload.
type Registry interface {
	Create(ctx context.Context) (*Task, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, result map[string]any) error
	MarkFailed(ctx context.Context, id string, message string) error
	Get(ctx context.Context, id string) (*Task, error)
}

// MemoryRegistry keeps task records in process memory.
type MemoryRegistry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	now   func() time.Time
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		tasks: make(map[string]*Task),
		now:   time.Now,
	}
}

func (r *MemoryRegistry) Create(ctx context.Context) (*Task, error) {
	now := r.now()
	task := &Task{
		ID:        uuid.New().String(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.tasks[task.ID] = task
	r.mu.Unlock()

	return copyTask(task), nil
}

func (r *MemoryRegistry) MarkProcessing(ctx context.Context, id string) error {
	return r.transition(id, StatusProcessing, func(t *Task) {})
}

func (r *MemoryRegistry) MarkCompleted(ctx context.Context, id string, result map[string]any) error {
	return r.transition(id, StatusCompleted, func(t *Task) {
		t.Result = result
		t.Error = ""
	})
}

func (r *MemoryRegistry) MarkFailed(ctx context.Context, id string, message string) error {
	return r.transition(id, StatusFailed, func(t *Task) {
		t.Error = message
		t.Result = nil
	})
}

func (r *MemoryRegistry) Get(ctx context.Context, id string) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}

	return copyTask(task), nil
}

func (r *MemoryRegistry) transition(id string, to Status, apply func(*Task)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}

	if !validTransition(task.Status, to) {
		return ErrInvalidTransition
	}

	task.Status = to
	apply(task)

	// UpdatedAt is monotonically non-decreasing even under clock skew.
	if now := r.now(); now.After(task.UpdatedAt) {
		task.UpdatedAt = now
	}

	return nil
}

func copyTask(t *Task) *Task {
	clone := *t
	if t.Result != nil {
		clone.Result = make(map[string]any, len(t.Result))
		for k, v := range t.Result {
			clone.Result[k] = v
		}
	}
	return &clone
}
