package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/homekeeper/internal/client/storage"
	"github.com/iudanet/homekeeper/internal/models"
)

var (
	// ErrNotQueueable indicates the action kind must not be queued offline
	// (destructive or multi-step dependent actions)
	ErrNotQueueable = errors.New("action kind is not allowed offline")

	// ErrActionNotFound indicates no queued action exists with the given id
	ErrActionNotFound = errors.New("queued action not found")
)

// Config contains queue settings
type Config struct {
	// Key is the storage key the queue is persisted under
	Key string
	// MaxSize bounds the queue; the oldest entry is evicted when full
	MaxSize int
}

// DefaultConfig returns config with production defaults
func DefaultConfig() Config {
	return Config{
		Key:     "queue.actions",
		MaxSize: 100,
	}
}

// Queue is a bounded durable FIFO of pending mutating operations,
// persisted as one JSON array through the storage guardian. Every
// mutation is a full read-modify-write so the persisted list never
// holds a partial state.
type Queue struct {
	guard  *storage.Guardian
	logger *slog.Logger
	now    func() time.Time
	mu     sync.Mutex
	cfg    Config
}

// New creates a new offline action queue over the guardian
func New(guard *storage.Guardian, cfg Config, logger *slog.Logger) *Queue {
	if cfg.Key == "" {
		cfg.Key = DefaultConfig().Key
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultConfig().MaxSize
	}
	return &Queue{
		guard:  guard,
		logger: logger,
		now:    time.Now,
		cfg:    cfg,
	}
}

// Enqueue appends a new action to the queue. If the queue is full, the
// oldest entry is evicted first - explicit, logged data-loss policy.
// Kinds that are destructive or not allowed offline are rejected.
func (q *Queue) Enqueue(ctx context.Context, kind models.ActionKind, payload map[string]any) (*models.QueuedAction, error) {
	if !kind.Valid() || !kind.AllowedOffline() {
		return nil, fmt.Errorf("enqueue %q: %w", kind, ErrNotQueueable)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	actions, err := q.loadLocked(ctx)
	if err != nil {
		return nil, err
	}

	// При переполнении жертвуем самым старым действием
	for len(actions) >= q.cfg.MaxSize {
		dropped := actions[0]
		actions = actions[1:]
		q.logger.Warn("Offline queue full, dropping oldest action",
			"dropped_id", dropped.ID,
			"dropped_kind", dropped.Kind,
			"max_size", q.cfg.MaxSize)
	}

	action := models.QueuedAction{
		ID:         uuid.New().String(),
		Kind:       kind,
		Payload:    payload,
		EnqueuedAt: q.now(),
	}
	actions = append(actions, action)

	if err := q.persistLocked(ctx, actions); err != nil {
		return nil, err
	}

	q.logger.Info("Action queued for later sync",
		"action_id", action.ID,
		"kind", action.Kind,
		"queue_len", len(actions))
	return &action, nil
}

// List returns all queued actions in FIFO order
func (q *Queue) List(ctx context.Context) ([]models.QueuedAction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loadLocked(ctx)
}

// DequeueByID removes the action with the given id from the queue
func (q *Queue) DequeueByID(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	actions, err := q.loadLocked(ctx)
	if err != nil {
		return err
	}

	idx := indexByID(actions, id)
	if idx < 0 {
		return fmt.Errorf("dequeue %q: %w", id, ErrActionNotFound)
	}

	actions = append(actions[:idx], actions[idx+1:]...)
	return q.persistLocked(ctx, actions)
}

// BumpRetry increments the retry counter of the action with the given id
func (q *Queue) BumpRetry(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	actions, err := q.loadLocked(ctx)
	if err != nil {
		return err
	}

	idx := indexByID(actions, id)
	if idx < 0 {
		return fmt.Errorf("bump retry %q: %w", id, ErrActionNotFound)
	}

	actions[idx].RetryCount++
	return q.persistLocked(ctx, actions)
}

// Clear removes all queued actions
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.guard.Remove(ctx, q.cfg.Key); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}

// Len returns the current queue length
func (q *Queue) Len(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	actions, err := q.loadLocked(ctx)
	if err != nil {
		return 0, err
	}
	return len(actions), nil
}

// loadLocked reads the persisted list. A corrupted blob is evicted by
// the Guardian and the queue starts over empty.
func (q *Queue) loadLocked(ctx context.Context) ([]models.QueuedAction, error) {
	var actions []models.QueuedAction
	if _, err := q.guard.SafeGet(ctx, q.cfg.Key, &actions); err != nil {
		return nil, fmt.Errorf("failed to load queue: %w", err)
	}
	return actions, nil
}

func (q *Queue) persistLocked(ctx context.Context, actions []models.QueuedAction) error {
	if err := q.guard.SafeSet(ctx, q.cfg.Key, actions); err != nil {
		return fmt.Errorf("failed to persist queue: %w", err)
	}
	return nil
}

func indexByID(actions []models.QueuedAction, id string) int {
	for i, a := range actions {
		if a.ID == id {
			return i
		}
	}
	return -1
}
