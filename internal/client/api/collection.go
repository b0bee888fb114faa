package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iudanet/livedesk/internal/models"
	"github.com/iudanet/livedesk/pkg/api"
)

// Collection типизированный доступ к одной коллекции тенанта.
// Реализует источник страниц для sync.Feed.
type Collection[T any] struct {
	client      *Client
	name        models.Collection
	accessToken string
}

// NewCollection создает доступ к коллекции name от имени владельца accessToken
func NewCollection[T any](client *Client, name models.Collection, accessToken string) *Collection[T] {
	return &Collection[T]{
		client:      client,
		name:        name,
		accessToken: accessToken,
	}
}

// Name возвращает имя коллекции
func (c *Collection[T]) Name() models.Collection {
	return c.name
}

// FetchPage загружает страницу и декодирует записи.
// Ошибка декодирования любой записи отклоняет всю страницу.
func (c *Collection[T]) FetchPage(ctx context.Context, req api.PageRequest) ([]T, bool, error) {
	resp, err := c.client.ListPage(ctx, c.accessToken, c.name, req)
	if err != nil {
		return nil, false, err
	}

	items := make([]T, 0, len(resp.Items))
	for i, raw := range resp.Items {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, false, fmt.Errorf("failed to decode %s item %d: %w", c.name, i, err)
		}
		items = append(items, item)
	}

	return items, resp.HasMore, nil
}

// Delete удаляет запись коллекции
func (c *Collection[T]) Delete(ctx context.Context, id int64) error {
	return c.client.DeleteRecord(ctx, c.accessToken, c.name, id)
}
