package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runLogs(ctx context.Context, args []string) error {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}

	switch sub {
	case "show":
		entries, err := c.sink.Entries(ctx)
		if err != nil {
			return fmt.Errorf("failed to read error log: %w", err)
		}
		return c.render("logs", logsListTemplate, entries)
	case "clear":
		if err := c.sink.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear error log: %w", err)
		}
		c.io.Println("Error log cleared.")
		return nil
	default:
		return fmt.Errorf("unknown logs subcommand: %s (expected show or clear)", sub)
	}
}
