package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runSession(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("session requires a subcommand: set or clear")
	}

	switch args[0] {
	case "set":
		return c.runSessionSet(ctx)
	case "clear":
		if err := c.authManager.ClearSession(ctx); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		c.io.Println("Session cleared.")
		return nil
	default:
		return fmt.Errorf("unknown session subcommand: %s (expected set or clear)", args[0])
	}
}

// runSessionSet импортирует пару токенов, полученную вне клиента
// (из веб-приложения). Токены читаются без эха.
func (c *Cli) runSessionSet(ctx context.Context) error {
	userID, err := c.io.ReadInput("User ID: ")
	if err != nil {
		return fmt.Errorf("failed to read user id: %w", err)
	}
	if userID == "" {
		return fmt.Errorf("user id cannot be empty")
	}

	accessToken, err := c.io.ReadPassword("Access token: ")
	if err != nil {
		return fmt.Errorf("failed to read access token: %w", err)
	}
	if accessToken == "" {
		return fmt.Errorf("access token cannot be empty")
	}

	refreshToken, err := c.io.ReadPassword("Refresh token: ")
	if err != nil {
		return fmt.Errorf("failed to read refresh token: %w", err)
	}

	if err := c.authManager.SetSession(ctx, userID, accessToken, refreshToken); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	c.io.Printf("Session saved for %s (access token %s).\n", userID, maskToken(accessToken))
	return nil
}
