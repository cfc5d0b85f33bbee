package optimistic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/homekeeper/internal/client/retry"
)

var (
	// ErrNoPendingUpdate indicates no optimistic update is tracked for the key
	ErrNoPendingUpdate = errors.New("no pending optimistic update for key")
)

// snapshotRingSize ограничивает кольцо снимков на один ключ
const snapshotRingSize = 5

// Operation is the real asynchronous work behind a speculative change
type Operation func(ctx context.Context) error

// ApplyFn makes a state visible to the caller's UI/state store.
// Вызывается и для оптимистичного состояния, и для отката.
type ApplyFn func(state any)

// Result описывает итог оптимистичного обновления
type Result struct {
	Err        error
	Success    bool
	RolledBack bool
}

// StateSnapshot is a deep copy of a state taken before a risky mutation
type StateSnapshot struct {
	TakenAt time.Time `json:"taken_at"`
	Data    any       `json:"data"`
	ID      string    `json:"id"`
	Key     string    `json:"key"`
}

// update tracks one live optimistic change for a key
type update struct {
	startedAt     time.Time
	previousState any
	apply         ApplyFn
	operation     Operation
	id            string
	retryCount    uint
}

// Coordinator применяет спекулятивные изменения немедленно и откатывает
// их, если реальная операция на платформе не удалась. На один ключ
// живёт не больше одной отслеживаемой записи: новая запись вытесняет
// старую, но не отменяет уже запущенную операцию - её завершение
// просто не найдёт свою запись и станет no-op.
type Coordinator struct {
	logger     *slog.Logger
	engine     *retry.Engine
	now        func() time.Time
	retryDelay time.Duration

	mu        sync.Mutex
	updates   map[string]*update
	snapshots map[string][]StateSnapshot
}

// New creates a new optimistic state coordinator
func New(engine *retry.Engine, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		logger:     logger,
		engine:     engine,
		now:        time.Now,
		retryDelay: retry.DefaultInitialDelay,
		updates:    make(map[string]*update),
		snapshots:  make(map[string][]StateSnapshot),
	}
}

// ExecuteUpdate applies optimisticState immediately, runs the real
// operation, and rolls back to a deep copy of currentState if the
// operation fails. States must be JSON-serializable.
func (c *Coordinator) ExecuteUpdate(ctx context.Context, key string, currentState, optimisticState any, apply ApplyFn, operation Operation) Result {
	previous, err := deepCopy(currentState)
	if err != nil {
		// Без снимка прежнего состояния спекулировать нельзя
		return Result{Err: fmt.Errorf("failed to copy current state: %w", err)}
	}

	apply(optimisticState)

	rec := &update{
		id:            uuid.New().String(),
		previousState: previous,
		apply:         apply,
		operation:     operation,
		startedAt:     c.now(),
	}

	c.mu.Lock()
	if old, ok := c.updates[key]; ok {
		// Новое обновление вытесняет учёт старого; старая операция
		// доработает вхолостую
		c.logger.Debug("Optimistic update superseded", "key", key, "old_id", old.id)
	}
	c.updates[key] = rec
	c.mu.Unlock()

	opErr := operation(ctx)

	c.mu.Lock()
	current, tracked := c.updates[key]
	owns := tracked && current.id == rec.id
	if owns {
		delete(c.updates, key)
	}
	c.mu.Unlock()

	if opErr == nil {
		return Result{Success: true}
	}

	if !owns {
		// Запись уже вытеснена - откатывать чужое состояние нельзя
		c.logger.Debug("Stale optimistic update resolved, no rollback", "key", key)
		return Result{Err: opErr}
	}

	apply(previous)
	c.logger.Warn("Optimistic update rolled back", "key", key, "error", opErr)
	return Result{RolledBack: true, Err: opErr}
}

// RetryUpdate re-invokes the stored operation for a still-pending
// record with bounded retries. The record is deleted on success and
// once retries are exhausted.
func (c *Coordinator) RetryUpdate(ctx context.Context, key string, maxRetries int) error {
	c.mu.Lock()
	rec, ok := c.updates[key]
	c.mu.Unlock()

	if !ok {
		return fmt.Errorf("retry %q: %w", key, ErrNoPendingUpdate)
	}

	err := c.engine.Do(ctx, "optimistic update "+key, maxRetries, c.retryDelay, func(ctx context.Context) error {
		c.mu.Lock()
		rec.retryCount++
		c.mu.Unlock()
		return rec.operation(ctx)
	})

	c.mu.Lock()
	if current, tracked := c.updates[key]; tracked && current.id == rec.id {
		delete(c.updates, key)
	}
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("optimistic update %q not confirmed: %w", key, err)
	}
	return nil
}

// ExecuteWithRollback is the non-speculative sibling: snapshot the
// state, run the operation, restore the snapshot only on failure.
func (c *Coordinator) ExecuteWithRollback(ctx context.Context, key string, currentState any, apply ApplyFn, operation Operation) Result {
	snap, err := c.takeSnapshot(key, currentState)
	if err != nil {
		return Result{Err: fmt.Errorf("failed to snapshot state: %w", err)}
	}

	if opErr := operation(ctx); opErr != nil {
		apply(snap.Data)
		c.logger.Warn("Operation failed, state restored from snapshot",
			"key", key,
			"snapshot_id", snap.ID,
			"error", opErr)
		return Result{RolledBack: true, Err: opErr}
	}

	return Result{Success: true}
}

// Pending reports whether an optimistic update is tracked for the key
func (c *Coordinator) Pending(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.updates[key]
	return ok
}

// Snapshots returns the retained snapshots for a key, oldest first
func (c *Coordinator) Snapshots(key string) []StateSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]StateSnapshot(nil), c.snapshots[key]...)
}

// takeSnapshot deep-copies the state into the per-key ring,
// dropping the oldest entry when the ring is full
func (c *Coordinator) takeSnapshot(key string, state any) (StateSnapshot, error) {
	data, err := deepCopy(state)
	if err != nil {
		return StateSnapshot{}, err
	}

	snap := StateSnapshot{
		ID:      uuid.New().String(),
		Key:     key,
		TakenAt: c.now(),
		Data:    data,
	}

	c.mu.Lock()
	ring := append(c.snapshots[key], snap)
	for len(ring) > snapshotRingSize {
		ring = ring[1:]
	}
	c.snapshots[key] = ring
	c.mu.Unlock()

	return snap, nil
}

// deepCopy клонирует значение через JSON, отвязывая копию от
// вложенных map и slice оригинала
func deepCopy(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
