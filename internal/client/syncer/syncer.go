package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	httpClient "github.com/iudanet/homekeeper/internal/client/api"
	"github.com/iudanet/homekeeper/internal/client/queue"
	"github.com/iudanet/homekeeper/internal/models"
)

var (
	// ErrReplayInProgress indicates a replay cycle is already running;
	// cycles never interleave
	ErrReplayInProgress = errors.New("replay already in progress")

	// ErrAuthRequired indicates no active session exists, so replay was
	// not attempted at all
	ErrAuthRequired = errors.New("authentication required before replay")

	// ErrNoHandler indicates no handler is registered for an action kind
	ErrNoHandler = errors.New("no handler registered for action kind")
)

// Handler executes one queued action against the platform
type Handler func(ctx context.Context, action models.QueuedAction) error

//go:generate moq -out authchecker_mock.go . AuthChecker

// AuthChecker reports whether an active session exists
type AuthChecker interface {
	IsAuthenticated(ctx context.Context) (bool, error)
}

// Result описывает итог одного цикла воспроизведения очереди
type Result struct {
	// FailedActionID/FailedKind identify the action the cycle stopped on
	FailedActionID string
	FailedKind     models.ActionKind
	Err            error
	SyncedCount    int
	TotalCount     int
	Success        bool
}

// Replayer drains the offline action queue strictly in FIFO order,
// stopping at the first failure. Later actions may depend on earlier
// ones (same entity), so skipping ahead risks inconsistent remote state.
type Replayer struct {
	queue  *queue.Queue
	auth   AuthChecker
	logger *slog.Logger

	mu        sync.Mutex
	replaying bool
	handlers  map[models.ActionKind]Handler
}

// New creates a new sync replayer
func New(q *queue.Queue, auth AuthChecker, logger *slog.Logger) *Replayer {
	return &Replayer{
		queue:    q,
		auth:     auth,
		logger:   logger,
		handlers: make(map[models.ActionKind]Handler),
	}
}

// Register binds a handler to an action kind. The first registration
// wins; repeated registrations for the same kind are ignored with a
// warning, so wiring code stays idempotent.
func (r *Replayer) Register(kind models.ActionKind, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[kind]; exists {
		r.logger.Warn("Handler already registered for action kind, keeping first", "kind", kind)
		return
	}
	r.handlers[kind] = handler
}

// Replay drains the queue once. Empty queue is a trivial success.
// Without an active session the cycle fails immediately with
// ErrAuthRequired and zero synced actions.
func (r *Replayer) Replay(ctx context.Context) Result {
	r.mu.Lock()
	if r.replaying {
		r.mu.Unlock()
		r.logger.Debug("Replay already in progress, skipping")
		return Result{Err: ErrReplayInProgress}
	}
	r.replaying = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.replaying = false
		r.mu.Unlock()
	}()

	actions, err := r.queue.List(ctx)
	if err != nil {
		return Result{Err: fmt.Errorf("failed to read queue: %w", err)}
	}
	if len(actions) == 0 {
		return Result{Success: true}
	}

	authed, err := r.auth.IsAuthenticated(ctx)
	if err != nil {
		return Result{TotalCount: len(actions), Err: fmt.Errorf("failed to check session: %w", err)}
	}
	if !authed {
		r.logger.Warn("Replay skipped: no active session", "pending", len(actions))
		return Result{TotalCount: len(actions), Err: ErrAuthRequired}
	}

	r.logger.Info("Replaying offline action queue", "pending", len(actions))

	result := Result{TotalCount: len(actions)}
	for _, action := range actions {
		if err := r.replayOne(ctx, action); err != nil {
			// Счётчик попыток растёт даже у действия, которое мы не
			// смогли воспроизвести - это видно в диагностике очереди
			if bumpErr := r.queue.BumpRetry(ctx, action.ID); bumpErr != nil {
				r.logger.Error("Failed to bump retry count", "action_id", action.ID, "error", bumpErr)
			}

			result.FailedActionID = action.ID
			result.FailedKind = action.Kind
			result.Err = classifyReplayError(err)

			r.logger.Warn("Replay stopped on failed action",
				"action_id", action.ID,
				"kind", action.Kind,
				"synced", result.SyncedCount,
				"total", result.TotalCount,
				"error", result.Err)
			return result
		}

		if err := r.queue.DequeueByID(ctx, action.ID); err != nil {
			result.FailedActionID = action.ID
			result.FailedKind = action.Kind
			result.Err = fmt.Errorf("failed to dequeue synced action: %w", err)
			return result
		}
		result.SyncedCount++
	}

	result.Success = true
	r.logger.Info("Offline queue replayed", "synced", result.SyncedCount)
	return result
}

func (r *Replayer) replayOne(ctx context.Context, action models.QueuedAction) error {
	r.mu.Lock()
	handler, ok := r.handlers[action.Kind]
	r.mu.Unlock()

	if !ok {
		// Действие без обработчика - это ошибка конфигурации,
		// молча выбрасывать его из очереди нельзя
		return fmt.Errorf("%w: %q", ErrNoHandler, action.Kind)
	}

	return handler(ctx, action)
}

// classifyReplayError surfaces session problems as a distinct
// auth-expired error so the driver can prompt for re-login instead of
// endlessly retrying
func classifyReplayError(err error) error {
	if errors.Is(err, httpClient.ErrSessionExpired) {
		return fmt.Errorf("session expired during replay: %w", httpClient.ErrSessionExpired)
	}
	return err
}
