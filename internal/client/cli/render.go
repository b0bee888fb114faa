package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/iudanet/livedesk/internal/models"
)

// view описывает отображение коллекции в терминале
type view[T models.Item] struct {
	line     func(T) string
	summary  func([]T) string // nil, если итоговой строки нет
	renumber func([]T) []T
	reorder  func(ctx context.Context, items []T) error // nil, если порядок не сохраняется
}

func (v view[T]) render(items []T) string {
	var b strings.Builder
	if len(items) == 0 {
		b.WriteString("  (empty)\n")
	}
	for i, item := range items {
		fmt.Fprintf(&b, "%3d. %s\n", i+1, v.line(item))
	}
	if v.summary != nil {
		b.WriteString(v.summary(items))
		b.WriteString("\n")
	}
	return b.String()
}

func tagLine(t models.Tag) string {
	line := fmt.Sprintf("[%d] %s", t.ID, t.Name)
	if t.Color != "" {
		line += " " + t.Color
	}
	return fmt.Sprintf("%s (%d tickets)", line, t.TicketsCount)
}

func chatLine(userID string) func(models.Chat) string {
	return func(c models.Chat) string {
		line := fmt.Sprintf("[%d] %s", c.ID, c.Name)
		if c.LastMessage != "" {
			line += ": " + truncate(c.LastMessage, 40)
		}
		if n := models.UnreadCount([]models.Chat{c}, userID); n > 0 {
			line += fmt.Sprintf(" (%d unread)", n)
		}
		return line
	}
}

func unreadSummary(userID string) func([]models.Chat) string {
	return func(chats []models.Chat) string {
		return fmt.Sprintf("Unread: %d", models.UnreadCount(chats, userID))
	}
}

func ticketLine(t models.Ticket) string {
	line := fmt.Sprintf("[%d] %s <%s>", t.ID, t.Name, t.Status)
	if t.LastMessage != "" {
		line += ": " + truncate(t.LastMessage, 40)
	}
	if t.UnreadMessages > 0 {
		line += fmt.Sprintf(" (%d unread)", t.UnreadMessages)
	}
	return line
}

func contactLine(c models.Contact) string {
	line := fmt.Sprintf("[%d] %s", c.ID, c.Name)
	if c.Number != "" {
		line += " " + c.Number
	}
	if c.Email != "" {
		line += " " + c.Email
	}
	return line
}

func connectionLine(c models.Connection) string {
	line := fmt.Sprintf("[%d] %s %s", c.ID, c.Name, c.Status)
	if c.IsOffline() {
		line += " ⚠️"
	}
	return line
}

func offlineSummary(connections []models.Connection) string {
	offline := models.OfflineConnections(connections)
	if len(offline) == 0 {
		return "All connections are online"
	}
	return fmt.Sprintf("Offline: %d", len(offline))
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
