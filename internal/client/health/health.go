package health

import (
	"context"
	"time"
)

//go:generate moq -out prober_mock.go . Prober

// Prober выполняет лёгкую проверку сессии/достижимости платформы.
// Это единственная сетевая зависимость монитора.
type Prober interface {
	// Check verifies the session against the platform and returns the
	// session expiry reported by it (zero if the platform does not say)
	Check(ctx context.Context) (time.Time, error)
	// Refresh proactively renews the session token pair
	Refresh(ctx context.Context) error
}

// Status is the tri-state connection health
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusOffline  Status = "offline"
)

// ConnectionState is a snapshot of the monitor's view of connectivity.
// It transitions only through the monitor itself.
type ConnectionState struct {
	LastCheckAt   time.Time `json:"last_check_at"`
	LastSuccessAt time.Time `json:"last_success_at"`
	Status        Status    `json:"status"`
	RetryAttempts uint      `json:"retry_attempts"`
}

// IsHealthy reports whether the platform is considered reachable
func (s ConnectionState) IsHealthy() bool {
	return s.Status == StatusHealthy
}

// Config contains monitor settings
type Config struct {
	// ProbeTimeout is the hard deadline for a single probe
	ProbeTimeout time.Duration
	// MinCooldown suppresses non-forced probes fired too close together
	MinCooldown time.Duration
	// SafetyInterval is the cadence of the low-frequency safety timer
	SafetyInterval time.Duration
	// SilenceThreshold is how long without realtime activity counts as silence
	SilenceThreshold time.Duration
	// SilenceCheckInterval is the cadence of the silence checker
	SilenceCheckInterval time.Duration
	// RefreshWindow triggers a proactive session refresh when the expiry
	// is this close
	RefreshWindow time.Duration
}

// DefaultConfig returns config with production defaults
func DefaultConfig() Config {
	return Config{
		ProbeTimeout:         10 * time.Second,
		MinCooldown:          10 * time.Second,
		SafetyInterval:       5 * time.Minute,
		SilenceThreshold:     90 * time.Second,
		SilenceCheckInterval: 30 * time.Second,
		RefreshWindow:        60 * time.Second,
	}
}

// maxAttemptsBeforeOffline — после стольких подряд неудачных проб статус
// может опуститься до Offline (если среда сама сообщает об оффлайне)
const maxAttemptsBeforeOffline = 3
