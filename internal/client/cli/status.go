package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/livedesk/internal/client/api"
	"github.com/iudanet/livedesk/internal/client/auth"
	"github.com/iudanet/livedesk/internal/models"
	pkgapi "github.com/iudanet/livedesk/pkg/api"
)

// maxStatusPages ограничивает обход подключений в status
const maxStatusPages = 10

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Authentication Status ===")
	c.io.Println()

	session, err := c.authService.Session(ctx)
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		c.io.Println("Status: Not authenticated")
		c.io.Println()
		c.io.Println("Run 'livedesk login' to authenticate.")
		return nil
	case errors.Is(err, auth.ErrSessionExpired):
		c.io.Println("Status: Session expired")
		c.io.Println()
		c.io.Println("⚠️  Token has expired. Please login again.")
		return nil
	case err != nil:
		return fmt.Errorf("failed to check authentication: %w", err)
	}

	expiresAt := time.Unix(session.ExpiresAt, 0)

	c.io.Println("Status: Authenticated")
	c.io.Printf("Username: %s\n", session.Username)
	c.io.Printf("Tenant: %s\n", session.TenantID)
	c.io.Printf("Server: %s\n", session.ServerURL)
	c.io.Printf("Token expires: %s\n", expiresAt.Format(time.RFC3339))
	c.io.Printf("Time remaining: %s\n", time.Until(expiresAt).Round(time.Second))
	c.io.Println()

	connections, err := c.fetchConnections(ctx, session.AccessToken)
	if err != nil {
		// Не прерываем выполнение, просто предупреждаем
		c.io.Printf("Warning: Failed to check connections: %v\n", err)
		return nil
	}

	offline := models.OfflineConnections(connections)
	if len(offline) == 0 {
		c.io.Println("✓ All connections are online")
		return nil
	}

	c.io.Printf("⚠️  %d connection(s) need attention:\n", len(offline))
	for _, conn := range offline {
		c.io.Printf("  - %s: %s\n", conn.Name, conn.Status)
	}
	return nil
}

func (c *Cli) fetchConnections(ctx context.Context, accessToken string) ([]models.Connection, error) {
	source := api.NewCollection[models.Connection](c.apiClient, models.CollectionConnections, accessToken)

	var all []models.Connection
	for page := 1; page <= maxStatusPages; page++ {
		items, hasMore, err := source.FetchPage(ctx, pkgapi.PageRequest{PageNumber: page})
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if !hasMore {
			break
		}
	}
	return all, nil
}
