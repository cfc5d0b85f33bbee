package errlog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/homekeeper/internal/client/storage"
	"github.com/iudanet/homekeeper/internal/client/storage/boltdb"
)

func newTestGuardian(t *testing.T) (*storage.Guardian, *boltdb.Storage) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "testdb.db")

	store, err := boltdb.New(context.Background(), dbPath, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return storage.NewGuardian(store, storage.DefaultGuardianConfig(), logger), store
}

func TestAppendAndEntries(t *testing.T) {
	guard, _ := newTestGuardian(t)
	sink := NewSink(guard, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, LevelInfo, "sync started", nil, map[string]any{"pending": 3}))
	require.NoError(t, sink.Append(ctx, LevelWarn, "probe failed", nil, nil))

	entries, err := sink.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "sync started", entries[0].Message)
	assert.Equal(t, LevelInfo, entries[0].Level)
	assert.Equal(t, map[string]any{"pending": float64(3)}, entries[0].Context)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].Timestamp.IsZero())

	assert.Equal(t, "probe failed", entries[1].Message)
}

func TestAppend_PersistedAcrossInstances(t *testing.T) {
	guard, _ := newTestGuardian(t)
	ctx := context.Background()

	sink := NewSink(guard, DefaultConfig())
	require.NoError(t, sink.Append(ctx, LevelError, "replay failed", errors.New("boom"), nil))

	// Новый экземпляр читает то же кольцо из хранилища
	reopened := NewSink(guard, DefaultConfig())
	entries, err := reopened.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "replay failed", entries[0].Message)
}

func TestAppend_TrimsOldestBeyondMaxLogs(t *testing.T) {
	guard, _ := newTestGuardian(t)
	sink := NewSink(guard, Config{MaxLogs: 3})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, sink.Append(ctx, LevelInfo, string(rune('a'+i)), nil, nil))
	}

	entries, err := sink.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Остаются три последних, старейшие отброшены
	assert.Equal(t, "c", entries[0].Message)
	assert.Equal(t, "d", entries[1].Message)
	assert.Equal(t, "e", entries[2].Message)
}

func TestAppend_ErrorDetail(t *testing.T) {
	guard, _ := newTestGuardian(t)
	sink := NewSink(guard, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, LevelError, "request failed", errors.New("connection refused"), nil))
	require.NoError(t, sink.Append(ctx, LevelWarn, "retrying", errors.New("connection refused"), nil))

	entries, err := sink.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NotNil(t, entries[0].Error)
	assert.Equal(t, "connection refused", entries[0].Error.Message)
	assert.Equal(t, "*errors.errorString", entries[0].Error.Name)
	// Стек сохраняется только для уровня error
	assert.NotEmpty(t, entries[0].Error.Stack)
	require.NotNil(t, entries[1].Error)
	assert.Empty(t, entries[1].Error.Stack)
}

func TestEntries_CorruptedRingResets(t *testing.T) {
	guard, store := newTestGuardian(t)
	ctx := context.Background()

	sink := NewSink(guard, DefaultConfig())
	require.NoError(t, sink.Append(ctx, LevelInfo, "before corruption", nil, nil))

	// Портим сохранённый blob напрямую в нижнем слое
	require.NoError(t, store.Set(ctx, DefaultConfig().Key, []byte("{{{not json")))

	reopened := NewSink(guard, DefaultConfig())
	entries, err := reopened.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Кольцо снова рабочее
	require.NoError(t, reopened.Append(ctx, LevelInfo, "after reset", nil, nil))
	entries, err = reopened.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestClear(t *testing.T) {
	guard, _ := newTestGuardian(t)
	sink := NewSink(guard, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, LevelInfo, "entry", nil, nil))
	require.NoError(t, sink.Clear(ctx))

	entries, err := sink.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHandler_WritesToSink(t *testing.T) {
	guard, _ := newTestGuardian(t)
	sink := NewSink(guard, DefaultConfig())
	logger := slog.New(NewHandler(sink, slog.LevelWarn))
	ctx := context.Background()

	logger.Info("not persisted")
	logger.Warn("queue full", "dropped_id", "abc")
	logger.Error("sync failed", "error", errors.New("timeout"), "action_id", "42")

	entries, err := sink.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, LevelWarn, entries[0].Level)
	assert.Equal(t, "queue full", entries[0].Message)
	assert.Equal(t, map[string]any{"dropped_id": "abc"}, entries[0].Context)

	assert.Equal(t, LevelError, entries[1].Level)
	require.NotNil(t, entries[1].Error)
	assert.Equal(t, "timeout", entries[1].Error.Message)
	// Атрибут error не дублируется в context
	assert.Equal(t, map[string]any{"action_id": "42"}, entries[1].Context)
}

func TestHandler_WithAttrsAndGroup(t *testing.T) {
	guard, _ := newTestGuardian(t)
	sink := NewSink(guard, DefaultConfig())
	base := slog.New(NewHandler(sink, slog.LevelDebug))
	ctx := context.Background()

	logger := base.With("component", "health").WithGroup("probe")
	logger.Info("completed", "trigger", "resume")

	entries, err := sink.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// Атрибут до группы не квалифицируется, атрибут записи - квалифицируется
	assert.Equal(t, "health", entries[0].Context["component"])
	assert.Equal(t, "resume", entries[0].Context["probe.trigger"])
}
