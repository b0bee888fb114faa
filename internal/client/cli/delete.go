package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/iudanet/livedesk/internal/validation"
)

func (c *Cli) runDelete(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: livedesk delete <collection> <id>")
	}

	collection, err := validation.ValidateCollection(args[0])
	if err != nil {
		return err
	}

	id, err := parseID(args[1])
	if err != nil {
		return err
	}

	session, err := c.session(ctx)
	if err != nil {
		return err
	}

	if err := c.apiClient.DeleteRecord(ctx, session.AccessToken, collection, id); err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", collection, id, err)
	}

	// Снимок мог содержать удаленную запись, а первая страница ее не уберет
	if err := c.snapshots.DeleteSnapshot(ctx, collection); err != nil {
		c.logger.Warn("Failed to drop snapshot", "collection", collection, "error", err)
	}

	c.io.Printf("✓ Deleted %s %d\n", collection, id)
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
