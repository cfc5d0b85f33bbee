package health

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	httpClient "github.com/iudanet/homekeeper/internal/client/api"
)

// Monitor наблюдает за достижимостью платформы и публикует трёхзначный
// статус подписчикам. Все переходы статуса происходят только здесь.
//
// Пробы событийные (resume, восстановление сети, тишина в realtime-канале,
// принудительный вызов) плюс низкочастотный страховочный таймер. В один
// момент времени выполняется не более одной пробы.
type Monitor struct {
	prober     Prober
	logger     *slog.Logger
	envOffline func() bool
	now        func() time.Time
	cfg        Config

	mu             sync.Mutex
	probing        bool
	foreground     bool
	started        bool
	lastProbeAt    time.Time
	lastRealtimeAt time.Time
	state          ConnectionState
	subs           map[int]func(ConnectionState)
	nextSubID      int
	// pendingNotify накапливает колбэки подписчиков под мьютексом;
	// вызывающий код запускает их уже после разблокировки
	pendingNotify []func()

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a new connection health monitor. envOffline reports the
// environment's own offline signal (nil means "never offline").
func New(prober Prober, envOffline func() bool, cfg Config, logger *slog.Logger) *Monitor {
	if envOffline == nil {
		envOffline = func() bool { return false }
	}
	return &Monitor{
		prober:     prober,
		logger:     logger,
		envOffline: envOffline,
		now:        time.Now,
		cfg:        cfg,
		foreground: true,
		state:      ConnectionState{Status: StatusHealthy},
		subs:       make(map[int]func(ConnectionState)),
	}
}

// Start launches the silence checker and the safety timer.
// Idempotent: calling Start on a started monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()

	m.wg.Add(2)
	go m.silenceLoop(ctx, stopCh)
	go m.safetyLoop(ctx, stopCh)
}

// Stop shuts the background timers down. Idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()
}

// State returns the current connection state snapshot
func (m *Monitor) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers a status-change callback and returns an
// unsubscribe function. The current state is replayed to the new
// subscriber immediately; afterwards the callback fires only on actual
// status changes.
func (m *Monitor) Subscribe(fn func(ConnectionState)) func() {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = fn
	state := m.state
	m.mu.Unlock()

	fn(state)

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// HandleResume reacts to the environment coming back to the foreground
func (m *Monitor) HandleResume(ctx context.Context) {
	m.mu.Lock()
	m.foreground = true
	m.mu.Unlock()

	m.Probe(ctx, "resume")
}

// HandleSuspend reacts to the environment going to the background.
// The safety timer is gated on foreground.
func (m *Monitor) HandleSuspend() {
	m.mu.Lock()
	m.foreground = false
	m.mu.Unlock()
}

// HandleNetworkUp reacts to the environment's network-reconnect signal
func (m *Monitor) HandleNetworkUp(ctx context.Context) {
	m.Probe(ctx, "network-up")
}

// HandleNetworkDown reacts to the environment's network-offline signal.
// Short-circuits straight to Offline, no probe.
func (m *Monitor) HandleNetworkDown() {
	m.mu.Lock()
	m.setStatusLocked(StatusOffline, "network-down")
	notify := m.pendingNotify
	m.pendingNotify = nil
	m.mu.Unlock()

	runNotify(notify)
}

// NoteRealtimeActivity records a liveness signal from the realtime
// channel (any inbound frame counts)
func (m *Monitor) NoteRealtimeActivity() {
	m.mu.Lock()
	m.lastRealtimeAt = m.now()
	m.mu.Unlock()
}

// Probe runs a reachability probe unless one is already in flight or the
// cooldown has not elapsed. Returns true if the probe actually ran.
func (m *Monitor) Probe(ctx context.Context, trigger string) bool {
	return m.probe(ctx, trigger, false)
}

// ForceProbe bypasses the cooldown once. Single-flight still applies.
func (m *Monitor) ForceProbe(ctx context.Context, trigger string) bool {
	return m.probe(ctx, trigger, true)
}

func (m *Monitor) probe(ctx context.Context, trigger string, force bool) bool {
	m.mu.Lock()
	if m.probing {
		m.mu.Unlock()
		m.logger.Debug("Probe already in flight, skipping", "trigger", trigger)
		return false
	}
	now := m.now()
	if !force && !m.lastProbeAt.IsZero() && now.Sub(m.lastProbeAt) < m.cfg.MinCooldown {
		m.mu.Unlock()
		m.logger.Debug("Probe suppressed by cooldown", "trigger", trigger)
		return false
	}
	// Маркер cooldown ставим сразу; при прерванной пробе вернём прежний
	prevMarker := m.lastProbeAt
	m.lastProbeAt = now
	m.probing = true
	m.mu.Unlock()

	m.logger.Debug("Connection probe started", "trigger", trigger)

	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()

	expiry, err := m.prober.Check(probeCtx)
	if err == nil && !expiry.IsZero() && expiry.Sub(m.now()) <= m.cfg.RefreshWindow {
		// Сессия на грани истечения - продлеваем не откладывая.
		// Неудачный refresh считается неудачей всей пробы.
		err = m.prober.Refresh(probeCtx)
	}

	m.mu.Lock()
	m.probing = false

	if err != nil && (errors.Is(err, httpClient.ErrAborted) || errors.Is(ctx.Err(), context.Canceled)) {
		// Прервано извне - это не вердикт о связности
		m.lastProbeAt = prevMarker
		m.mu.Unlock()
		m.logger.Debug("Connection probe aborted", "trigger", trigger)
		return false
	}

	m.state.LastCheckAt = m.now()
	if err == nil {
		m.state.RetryAttempts = 0
		m.state.LastSuccessAt = m.state.LastCheckAt
		m.setStatusLocked(StatusHealthy, trigger)
	} else {
		m.state.RetryAttempts++
		if m.state.RetryAttempts >= maxAttemptsBeforeOffline && m.envOffline() {
			m.setStatusLocked(StatusOffline, trigger)
		} else {
			m.setStatusLocked(StatusDegraded, trigger)
		}
		m.logger.Warn("Connection probe failed",
			"trigger", trigger,
			"attempts", m.state.RetryAttempts,
			"status", m.state.Status,
			"error", err)
	}
	notify := m.pendingNotify
	m.pendingNotify = nil
	m.mu.Unlock()

	runNotify(notify)
	return true
}

// setStatusLocked updates the status and, if it actually changed,
// queues subscriber notifications. Caller holds m.mu.
func (m *Monitor) setStatusLocked(status Status, trigger string) {
	if m.state.Status == status {
		return
	}
	old := m.state.Status
	m.state.Status = status

	m.logger.Info("Connection status changed",
		"from", old,
		"to", status,
		"trigger", trigger)

	state := m.state
	for _, fn := range m.subs {
		m.pendingNotify = append(m.pendingNotify, func() { fn(state) })
	}
}

func runNotify(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

func (m *Monitor) silenceLoop(ctx context.Context, stopCh chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SilenceCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			silent := !m.lastRealtimeAt.IsZero() &&
				m.now().Sub(m.lastRealtimeAt) >= m.cfg.SilenceThreshold
			healthy := m.state.Status == StatusHealthy
			m.mu.Unlock()

			// Пока статус Healthy, тишина сама по себе не повод для пробы
			if silent && !healthy {
				m.Probe(ctx, "realtime-silence")
			}
		}
	}
}

func (m *Monitor) safetyLoop(ctx context.Context, stopCh chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SafetyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			due := m.foreground && !m.probing &&
				(m.state.LastSuccessAt.IsZero() ||
					m.now().Sub(m.state.LastSuccessAt) >= m.cfg.SafetyInterval)
			m.mu.Unlock()

			if due {
				m.Probe(ctx, "safety-timer")
			}
		}
	}
}
