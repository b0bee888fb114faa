package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/iudanet/livedesk/internal/validation"
)

func (c *Cli) runSend(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: livedesk send <chat-id> <text>...")
	}

	chatID, err := parseID(args[0])
	if err != nil {
		return err
	}

	text := strings.Join(args[1:], " ")
	if err := validation.ValidateMessage(text); err != nil {
		return err
	}

	session, err := c.session(ctx)
	if err != nil {
		return err
	}

	if _, err := c.apiClient.SendMessage(ctx, session.AccessToken, chatID, text); err != nil {
		return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}

	c.io.Printf("✓ Sent to chat %d\n", chatID)
	return nil
}
