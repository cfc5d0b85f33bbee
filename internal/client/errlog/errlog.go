package errlog

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/homekeeper/internal/client/storage"
)

// Level represents the severity of a persisted log entry
type Level string

const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

// ErrorDetail describes the error attached to an entry
type ErrorDetail struct {
	Name    string `json:"name"`            // тип ошибки
	Message string `json:"message"`         // текст ошибки
	Stack   string `json:"stack,omitempty"` // стек на момент записи (только для error)
}

// Entry represents a single persisted log record
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Context   map[string]any `json:"context,omitempty"`
	Error     *ErrorDetail   `json:"error,omitempty"`
	ID        string         `json:"id"`
	Message   string         `json:"message"`
	Level     Level          `json:"level"`
}

// Config contains sink settings
type Config struct {
	// Key is the storage key the ring is persisted under
	Key string
	// MaxLogs bounds the ring; oldest entries are trimmed first
	MaxLogs int
}

// DefaultConfig returns config with production defaults
func DefaultConfig() Config {
	return Config{
		Key:     "errlog.entries",
		MaxLogs: 200,
	}
}

// Sink is a bounded, leveled, persisted log ring. Every component of the
// resilience core reports through it. The ring is append-only and capped
// at MaxLogs entries; a corrupted persisted blob resets to empty instead
// of crashing (the Guardian evicts it on read).
type Sink struct {
	guard  *storage.Guardian
	now    func() time.Time
	mu     sync.Mutex
	cfg    Config
	loaded bool
	ring   []Entry
}

// NewSink creates a new persisted log sink over the storage guardian
func NewSink(guard *storage.Guardian, cfg Config) *Sink {
	if cfg.Key == "" {
		cfg.Key = DefaultConfig().Key
	}
	if cfg.MaxLogs <= 0 {
		cfg.MaxLogs = DefaultConfig().MaxLogs
	}
	return &Sink{
		guard: guard,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Append adds an entry to the ring and persists it. The oldest entries
// are trimmed once the ring exceeds MaxLogs.
func (s *Sink) Append(ctx context.Context, level Level, message string, err error, logCtx map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if loadErr := s.loadLocked(ctx); loadErr != nil {
		return loadErr
	}

	entry := Entry{
		ID:        uuid.New().String(),
		Timestamp: s.now(),
		Level:     level,
		Message:   message,
		Context:   logCtx,
	}
	if err != nil {
		detail := &ErrorDetail{
			Name:    fmt.Sprintf("%T", err),
			Message: err.Error(),
		}
		// Стек пишем только для уровня error, чтобы не раздувать кольцо
		if level == LevelError {
			detail.Stack = string(debug.Stack())
		}
		entry.Error = detail
	}

	s.ring = append(s.ring, entry)
	if len(s.ring) > s.cfg.MaxLogs {
		s.ring = s.ring[len(s.ring)-s.cfg.MaxLogs:]
	}

	return s.persistLocked(ctx)
}

// Entries returns a copy of the current ring, oldest first
func (s *Sink) Entries(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		return nil, err
	}

	out := make([]Entry, len(s.ring))
	copy(out, s.ring)
	return out, nil
}

// Clear drops all entries from the ring and from storage
func (s *Sink) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ring = nil
	s.loaded = true
	if err := s.guard.Remove(ctx, s.cfg.Key); err != nil {
		return fmt.Errorf("failed to clear log ring: %w", err)
	}
	return nil
}

// loadLocked lazily reads the persisted ring. A corrupted blob is evicted
// by the Guardian and the ring starts over empty.
func (s *Sink) loadLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	var ring []Entry
	if _, err := s.guard.SafeGet(ctx, s.cfg.Key, &ring); err != nil {
		return fmt.Errorf("failed to load log ring: %w", err)
	}

	// Сохранённое кольцо могло быть записано с другим лимитом
	if len(ring) > s.cfg.MaxLogs {
		ring = ring[len(ring)-s.cfg.MaxLogs:]
	}

	s.ring = ring
	s.loaded = true
	return nil
}

func (s *Sink) persistLocked(ctx context.Context) error {
	if err := s.guard.SafeSet(ctx, s.cfg.Key, s.ring); err != nil {
		return fmt.Errorf("failed to persist log ring: %w", err)
	}
	return nil
}
