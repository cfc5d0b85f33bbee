package realtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"nhooyr.io/websocket"

	httpClient "github.com/iudanet/homekeeper/internal/client/api"
	"github.com/iudanet/homekeeper/internal/client/retry"
)

// Events is the slice of the health monitor the listener feeds
type Events interface {
	// NoteRealtimeActivity records an inbound liveness signal
	NoteRealtimeActivity()
	// HandleNetworkUp reacts to connectivity coming back
	HandleNetworkUp(ctx context.Context)
	// HandleNetworkDown reacts to connectivity being lost
	HandleNetworkDown()
}

// Config contains listener settings
type Config struct {
	// URL is the realtime endpoint (ws:// or wss://)
	URL string
	// ConnectRetries bounds one series of connection attempts
	ConnectRetries int
	// ReconnectPause separates failed series of connection attempts
	ReconnectPause time.Duration
	// ConnectDelay is the initial backoff delay inside a series
	ConnectDelay time.Duration
}

// DefaultConfig returns config with production defaults for the given endpoint
func DefaultConfig(url string) Config {
	return Config{
		URL:            url,
		ConnectRetries: 3,
		ReconnectPause: 15 * time.Second,
		ConnectDelay:   retry.DefaultInitialDelay,
	}
}

// Listener держит websocket-соединение с платформой ради одного:
// каждый входящий кадр - это сигнал живости для монитора соединения.
// Содержимое кадров здесь не интерпретируется.
type Listener struct {
	events Events
	engine *retry.Engine
	logger *slog.Logger
	cfg    Config
}

// New creates a new realtime liveness listener
func New(events Events, engine *retry.Engine, cfg Config, logger *slog.Logger) *Listener {
	return &Listener{
		events: events,
		engine: engine,
		logger: logger,
		cfg:    cfg,
	}
}

// Run connects and reads frames until the context is done, reconnecting
// after connection loss. A fully failed series of connection attempts
// is reported to the monitor as a network-down signal.
func (l *Listener) Run(ctx context.Context) error {
	for {
		conn, err := l.connect(ctx)
		if err != nil {
			if errors.Is(err, httpClient.ErrAborted) || ctx.Err() != nil {
				return nil
			}

			l.events.HandleNetworkDown()
			l.logger.Warn("Realtime connection attempts exhausted, pausing", "error", err)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(l.cfg.ReconnectPause):
			}
			continue
		}

		l.logger.Info("Realtime channel connected", "url", l.cfg.URL)
		l.events.HandleNetworkUp(ctx)

		err = l.readLoop(ctx, conn)
		if ctx.Err() != nil {
			return nil
		}
		l.logger.Warn("Realtime channel lost, reconnecting", "error", err)
	}
}

func (l *Listener) connect(ctx context.Context) (*websocket.Conn, error) {
	var conn *websocket.Conn
	err := l.engine.Do(ctx, "realtime connect", l.cfg.ConnectRetries, l.cfg.ConnectDelay, func(ctx context.Context) error {
		c, _, err := websocket.Dial(ctx, l.cfg.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return httpClient.ErrAborted
			}
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (l *Listener) readLoop(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close(websocket.StatusNormalClosure, "shutting down")

	for {
		// Тип и содержимое кадра не важны - важен сам факт его прихода
		_, _, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		l.events.NoteRealtimeActivity()
	}
}
