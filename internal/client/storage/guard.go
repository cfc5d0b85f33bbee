package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iudanet/homekeeper/internal/validation"
)

// QuotaLevel describes how close the store is to its byte budget
type QuotaLevel string

const (
	QuotaNone     QuotaLevel = "none"     // меньше 80% бюджета
	QuotaWarning  QuotaLevel = "warning"  // 80%..95% бюджета
	QuotaCritical QuotaLevel = "critical" // 95% бюджета и выше
)

// Пороги уровней заполнения в долях от бюджета
const (
	quotaWarningRatio  = 0.80
	quotaCriticalRatio = 0.95
)

// transientPrefixes перечисляет namespace-префиксы ключей, которые можно
// безопасно удалить при нехватке места (кеши, временные данные, бэкапы)
var transientPrefixes = []string{"cache.", "tmp.", "backup."}

// GuardianConfig contains Guardian settings
type GuardianConfig struct {
	// QuotaBudgetBytes is the advisory byte budget for the whole store.
	// Zero disables quota-level reporting (QuotaLevel always returns none).
	QuotaBudgetBytes int64
}

// DefaultGuardianConfig returns config with production defaults
func DefaultGuardianConfig() GuardianConfig {
	return GuardianConfig{
		QuotaBudgetBytes: 4 << 20, // 4 MiB
	}
}

// Guardian protects the durable key-value store from corruption and quota
// exhaustion. All components access persisted state only through it:
// every read returns a freshly unmarshalled value, so callers never share
// references into stored data.
type Guardian struct {
	kv     KVStore
	logger *slog.Logger
	cfg    GuardianConfig
}

// NewGuardian creates a new storage guardian over the given store
func NewGuardian(kv KVStore, cfg GuardianConfig, logger *slog.Logger) *Guardian {
	return &Guardian{
		kv:     kv,
		logger: logger,
		cfg:    cfg,
	}
}

// SafeGet reads and unmarshals the JSON value stored under key into out.
// Returns (false, nil) if the key is absent. If the stored value is not
// valid JSON for out, the corrupted entry is evicted and (false, nil) is
// returned - corruption never propagates to the caller.
func (g *Guardian) SafeGet(ctx context.Context, key string, out any) (bool, error) {
	raw, err := g.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read key %q: %w", key, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		// Повреждённую запись удаляем, чтобы она не ломала каждое чтение
		g.logger.Warn("Evicting corrupted storage entry",
			"key", key,
			"size", len(raw),
			"error", err)
		if delErr := g.kv.Delete(ctx, key); delErr != nil {
			return false, fmt.Errorf("failed to evict corrupted key %q: %w", key, delErr)
		}
		return false, nil
	}

	return true, nil
}

// SafeSet marshals value to JSON and writes it under key. On quota
// exhaustion it runs Cleanup once and retries; if the store is still full,
// ErrQuotaExceeded is returned so the caller can warn the user instead of
// silently losing data.
func (g *Guardian) SafeSet(ctx context.Context, key string, value any) error {
	if err := validation.ValidateKey(key); err != nil {
		return fmt.Errorf("invalid storage key: %w", err)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %q: %w", key, err)
	}

	err = g.kv.Set(ctx, key, raw)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}

	// Квота исчерпана - пробуем освободить место и повторить один раз
	removed, cleanupErr := g.Cleanup(ctx)
	if cleanupErr != nil {
		g.logger.Error("Cleanup after quota pressure failed",
			"key", key,
			"error", cleanupErr)
	}
	g.logger.Warn("Storage quota pressure, retrying write after cleanup",
		"key", key,
		"removed", removed)

	if err := g.kv.Set(ctx, key, raw); err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			g.logger.Error("Storage quota exceeded after cleanup", "key", key)
			return fmt.Errorf("write of key %q: %w", key, ErrQuotaExceeded)
		}
		return fmt.Errorf("failed to write key %q after cleanup: %w", key, err)
	}

	return nil
}

// Remove deletes the value stored under key
func (g *Guardian) Remove(ctx context.Context, key string) error {
	if err := g.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to remove key %q: %w", key, err)
	}
	return nil
}

// Clear removes all keys from the store
func (g *Guardian) Clear(ctx context.Context) error {
	if err := g.kv.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear storage: %w", err)
	}
	return nil
}

// Cleanup removes entries whose keys match the transient/cache/backup
// naming conventions and returns the number of removed entries
func (g *Guardian) Cleanup(ctx context.Context) (int, error) {
	keys, err := g.kv.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to enumerate keys: %w", err)
	}

	removed := 0
	for _, key := range keys {
		if !isTransientKey(key) {
			continue
		}
		if err := g.kv.Delete(ctx, key); err != nil {
			return removed, fmt.Errorf("failed to delete transient key %q: %w", key, err)
		}
		removed++
	}

	// Логируем только когда реально что-то удалили
	if removed > 0 {
		g.logger.Info("Storage cleanup removed transient entries", "removed", removed)
	}

	return removed, nil
}

// QuotaLevel computes the advisory quota level from enumerated key/value
// byte lengths. The underlying store has no native quota introspection,
// so the usage is summed entry by entry.
func (g *Guardian) QuotaLevel(ctx context.Context) (QuotaLevel, error) {
	if g.cfg.QuotaBudgetBytes <= 0 {
		return QuotaNone, nil
	}

	used, err := g.Usage(ctx)
	if err != nil {
		return QuotaNone, err
	}

	ratio := float64(used) / float64(g.cfg.QuotaBudgetBytes)
	switch {
	case ratio >= quotaCriticalRatio:
		return QuotaCritical, nil
	case ratio >= quotaWarningRatio:
		return QuotaWarning, nil
	default:
		return QuotaNone, nil
	}
}

// Usage returns the total byte length of all keys and values in the store
func (g *Guardian) Usage(ctx context.Context) (int64, error) {
	keys, err := g.kv.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to enumerate keys: %w", err)
	}

	var used int64
	for _, key := range keys {
		raw, err := g.kv.Get(ctx, key)
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				// Ключ исчез между Keys и Get - просто пропускаем
				continue
			}
			return 0, fmt.Errorf("failed to read key %q: %w", key, err)
		}
		used += int64(len(key) + len(raw))
	}

	return used, nil
}

// isTransientKey проверяет, относится ли ключ к временным данным
func isTransientKey(key string) bool {
	for _, prefix := range transientPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
