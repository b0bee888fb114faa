package sync

import (
	"context"

	"github.com/iudanet/livedesk/internal/client/storage"
	"github.com/iudanet/livedesk/internal/models"
	"github.com/iudanet/livedesk/pkg/api"
)

//go:generate moq -out feed_mock_test.go . Fetcher Deleter Subscriber Subscription SnapshotStore

// Fetcher загружает страницу коллекции
type Fetcher[T any] interface {
	FetchPage(ctx context.Context, req api.PageRequest) ([]T, bool, error)
}

// Deleter удаляет запись на сервере
type Deleter interface {
	Delete(ctx context.Context, id int64) error
}

// Subscriber открывает realtime подписку на коллекцию
type Subscriber interface {
	Subscribe(ctx context.Context, collection models.Collection) (Subscription, error)
}

// Subscription открытая подписка. Events закрывается при обрыве,
// причину возвращает Err.
type Subscription interface {
	Events() <-chan api.Event
	Err() error
	Close() error
}

// SubscriberFunc адаптер функции к Subscriber
type SubscriberFunc func(ctx context.Context, collection models.Collection) (Subscription, error)

// Subscribe реализует Subscriber
func (f SubscriberFunc) Subscribe(ctx context.Context, collection models.Collection) (Subscription, error) {
	return f(ctx, collection)
}

// SnapshotStore хранилище снимков для теплого старта
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot *storage.Snapshot) error
	GetSnapshot(ctx context.Context, collection models.Collection) (*storage.Snapshot, error)
}
