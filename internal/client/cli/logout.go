package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/livedesk/internal/client/auth"
	"github.com/iudanet/livedesk/internal/models"
)

func (c *Cli) runLogout(ctx context.Context) error {
	c.io.Println("=== Logout ===")

	if err := c.authService.Logout(ctx); err != nil {
		if errors.Is(err, auth.ErrNotAuthenticated) {
			c.io.Println("You are not logged in.")
			return nil
		}
		return fmt.Errorf("logout failed: %w", err)
	}

	// Кэш принадлежит тенанту сессии
	for _, collection := range models.Collections {
		if err := c.snapshots.DeleteSnapshot(ctx, collection); err != nil {
			c.logger.Warn("Failed to delete snapshot", "collection", collection, "error", err)
		}
	}

	c.io.Println("✓ Logout successful!")
	c.io.Println("Your local session has been deleted.")

	return nil
}
