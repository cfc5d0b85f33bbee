package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runQueue(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}

	switch sub {
	case "list":
		actions, err := c.queue.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to read queue: %w", err)
		}
		return c.render("queue", queueListTemplate, actions)
	case "clear":
		n, err := c.queue.Len(ctx)
		if err != nil {
			return fmt.Errorf("failed to read queue: %w", err)
		}
		if err := c.queue.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear queue: %w", err)
		}
		c.io.Printf("Dropped %d queued action(s).\n", n)
		return nil
	default:
		return fmt.Errorf("unknown queue subcommand: %s (expected list or clear)", sub)
	}
}
