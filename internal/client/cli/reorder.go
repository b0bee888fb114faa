package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/livedesk/internal/models"
	"github.com/iudanet/livedesk/pkg/api"
)

func (c *Cli) runReorder(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: livedesk reorder <id> [<id>...]")
	}

	order := make([]api.TagOrder, 0, len(args))
	seen := make(map[int64]bool, len(args))
	for i, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return err
		}
		if seen[id] {
			return fmt.Errorf("duplicate id %d", id)
		}
		seen[id] = true
		order = append(order, api.TagOrder{ID: id, Order: i + 1})
	}

	session, err := c.session(ctx)
	if err != nil {
		return err
	}

	if err := c.apiClient.ReorderTags(ctx, session.AccessToken, order); err != nil {
		return fmt.Errorf("failed to reorder tags: %w", err)
	}

	c.io.Printf("✓ Saved order of %d tag(s)\n", len(order))
	return nil
}

// tagOrders переводит порядок тегов в тело запроса
func tagOrders(tags []models.Tag) []api.TagOrder {
	order := make([]api.TagOrder, len(tags))
	for i, tag := range tags {
		order[i] = api.TagOrder{ID: tag.ID, Order: tag.Order}
	}
	return order
}
