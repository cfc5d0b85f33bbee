package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/homekeeper/internal/client/storage"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Connection Status ===")
	c.io.Println()

	state := c.monitor.State()
	c.io.Printf("Status: %s\n", state.Status)
	if !state.LastCheckAt.IsZero() {
		c.io.Printf("Last check:   %s\n", state.LastCheckAt.Format(time.RFC3339))
	}
	if !state.LastSuccessAt.IsZero() {
		c.io.Printf("Last success: %s\n", state.LastSuccessAt.Format(time.RFC3339))
	}
	if state.RetryAttempts > 0 {
		c.io.Printf("Failed probes in a row: %d\n", state.RetryAttempts)
	}

	c.io.Println()
	c.io.Println("=== Session ===")
	c.io.Println()

	isAuth, err := c.authManager.IsAuthenticated(ctx)
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if isAuth {
		c.io.Println("Session: active")
	} else {
		c.io.Println("Session: none")
		c.io.Println("Run 'homekeeper session set' to import a session.")
	}

	// Очередь отложенных действий
	pending, err := c.queue.Len(ctx)
	if err != nil {
		return fmt.Errorf("failed to read queue: %w", err)
	}
	c.io.Println()
	if pending > 0 {
		c.io.Printf("Pending sync: %d action(s) waiting to be replayed\n", pending)
		c.io.Println("Run 'homekeeper sync' to replay them.")
	} else {
		c.io.Println("Offline queue is empty.")
	}

	// Заполненность локального хранилища
	level, err := c.guard.QuotaLevel(ctx)
	if err != nil {
		return fmt.Errorf("failed to check storage quota: %w", err)
	}
	usage, err := c.guard.Usage(ctx)
	if err != nil {
		return fmt.Errorf("failed to measure storage usage: %w", err)
	}
	c.io.Println()
	c.io.Printf("Local storage: %d bytes used", usage)
	switch level {
	case storage.QuotaWarning:
		c.io.Printf(" (warning: over 80%% of budget)")
	case storage.QuotaCritical:
		c.io.Printf(" (critical: over 95%% of budget)")
	case storage.QuotaNone:
	}
	c.io.Println()

	return nil
}

func (c *Cli) runProbe(ctx context.Context) error {
	c.io.Println("Probing platform reachability...")

	ran := c.monitor.ForceProbe(ctx, "cli")
	if !ran {
		c.io.Println("Probe skipped: another probe is already in flight.")
		return nil
	}

	state := c.monitor.State()
	c.io.Printf("Status: %s\n", state.Status)
	return nil
}
