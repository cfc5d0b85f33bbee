package cli

import (
	"context"
	"time"

	"github.com/iudanet/homekeeper/internal/client/health"
)

// runWatch печатает изменения статуса соединения до прерывания (Ctrl+C)
func (c *Cli) runWatch(ctx context.Context) error {
	c.io.Println("Watching connection status. Press Ctrl+C to stop.")
	c.io.Println()

	unsubscribe := c.monitor.Subscribe(func(state health.ConnectionState) {
		c.io.Printf("[%s] status=%s attempts=%d\n",
			time.Now().Format(time.RFC3339), state.Status, state.RetryAttempts)
	})
	defer unsubscribe()

	c.monitor.Start(ctx)
	defer c.monitor.Stop()

	c.monitor.Probe(ctx, "watch")

	<-ctx.Done()
	return nil
}
