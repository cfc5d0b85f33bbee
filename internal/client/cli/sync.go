package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/homekeeper/internal/client/syncer"
)

func (c *Cli) runSync(ctx context.Context) error {
	c.io.Println("=== Offline Queue Replay ===")
	c.io.Println()

	pending, err := c.queue.Len(ctx)
	if err != nil {
		return fmt.Errorf("failed to read queue: %w", err)
	}
	if pending == 0 {
		c.io.Println("Nothing to replay: the offline queue is empty.")
		return nil
	}

	// Перед воспроизведением убеждаемся, что платформа достижима
	c.monitor.ForceProbe(ctx, "sync")

	result := c.replayer.Replay(ctx)
	if result.Success {
		c.io.Printf("Replayed %d action(s) successfully.\n", result.SyncedCount)
		return nil
	}

	if errors.Is(result.Err, syncer.ErrAuthRequired) {
		return fmt.Errorf("no active session. Run 'homekeeper session set' first")
	}

	c.io.Printf("Replayed %d of %d action(s).\n", result.SyncedCount, result.TotalCount)
	if result.FailedActionID != "" {
		c.io.Printf("Stopped on action %s (%s).\n", result.FailedActionID, result.FailedKind)
	}
	return fmt.Errorf("replay failed: %w", result.Err)
}
