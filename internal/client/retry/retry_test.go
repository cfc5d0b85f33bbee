package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/homekeeper/internal/client/api"
)

// newTestEngine возвращает engine с мгновенным sleep и записью задержек
func newTestEngine() (*Engine, *[]time.Duration) {
	delays := &[]time.Duration{}
	e := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.sleep = func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return e, delays
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	e, delays := newTestEngine()

	calls := 0
	err := e.Do(context.Background(), "op", 3, 100*time.Millisecond, func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *delays)
}

func TestDo_TransientErrorRetried(t *testing.T) {
	e, delays := newTestEngine()

	calls := 0
	err := e.Do(context.Background(), "op", 3, 100*time.Millisecond, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &api.HTTPError{StatusCode: http.StatusServiceUnavailable}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	// Задержки строго растут: 100ms, 200ms
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *delays)
}

func TestDo_RetriesExhausted(t *testing.T) {
	e, delays := newTestEngine()

	transient := &api.HTTPError{StatusCode: http.StatusServiceUnavailable}
	calls := 0
	err := e.Do(context.Background(), "op", 2, 50*time.Millisecond, func(ctx context.Context) error {
		calls++
		return transient
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, error(transient))
	// Первая попытка + два ретрая
	assert.Equal(t, 3, calls)
	assert.Len(t, *delays, 2)
}

func TestDo_TerminalClientError(t *testing.T) {
	e, delays := newTestEngine()

	terminal := &api.HTTPError{StatusCode: http.StatusNotFound}
	calls := 0
	err := e.Do(context.Background(), "op", 5, 50*time.Millisecond, func(ctx context.Context) error {
		calls++
		return terminal
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, error(terminal))
	// 404 не ретраится: ровно одна попытка, без задержек
	assert.Equal(t, 1, calls)
	assert.Empty(t, *delays)
}

func TestDo_RequestTimeoutRetried(t *testing.T) {
	e, _ := newTestEngine()

	calls := 0
	err := e.Do(context.Background(), "op", 1, 10*time.Millisecond, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			// 408 - единственный 4xx, который ретраится
			return &api.HTTPError{StatusCode: http.StatusRequestTimeout}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_AbortedNotRetried(t *testing.T) {
	e, delays := newTestEngine()

	calls := 0
	err := e.Do(context.Background(), "op", 3, 10*time.Millisecond, func(ctx context.Context) error {
		calls++
		return api.ErrAborted
	})

	require.ErrorIs(t, err, api.ErrAborted)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *delays)
}

func TestDo_DelayCappedAtMaxDelay(t *testing.T) {
	e, delays := newTestEngine()
	e.maxDelay = 400 * time.Millisecond

	transient := errors.New("network unreachable")
	_ = e.Do(context.Background(), "op", 4, 100*time.Millisecond, func(ctx context.Context) error {
		return transient
	})

	// 100, 200, 400, 400 (cap)
	require.Len(t, *delays, 4)
	assert.Equal(t, 100*time.Millisecond, (*delays)[0])
	assert.Equal(t, 200*time.Millisecond, (*delays)[1])
	assert.Equal(t, 400*time.Millisecond, (*delays)[2])
	assert.Equal(t, 400*time.Millisecond, (*delays)[3])
}

func TestDo_ContextCancelledDuringSleep(t *testing.T) {
	e, _ := newTestEngine()
	e.sleep = sleepCtx // реальный sleep, который слушает контекст

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Do(ctx, "op", 3, time.Hour, func(ctx context.Context) error {
		return errors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, backoffDelay(100*time.Millisecond, 0, MaxDelay))
	assert.Equal(t, 400*time.Millisecond, backoffDelay(100*time.Millisecond, 2, MaxDelay))
	assert.Equal(t, MaxDelay, backoffDelay(time.Second, 30, MaxDelay))
}
