package storage

import (
	"context"

	"github.com/iudanet/livedesk/internal/models"
)

//go:generate moq -out snapshot_mock.go . SnapshotStorage

// SnapshotStorage хранит последний снимок коллекции для теплого старта
type SnapshotStorage interface {
	// SaveSnapshot заменяет снимок коллекции
	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error

	// GetSnapshot возвращает снимок коллекции
	// Returns ErrSnapshotNotFound if nothing was saved
	GetSnapshot(ctx context.Context, collection models.Collection) (*Snapshot, error)

	// DeleteSnapshot удаляет снимок коллекции, отсутствие снимка не ошибка
	DeleteSnapshot(ctx context.Context, collection models.Collection) error
}

// Snapshot записи коллекции в порядке отображения.
// Items закодированы в CBOR вызывающей стороной, хранилище их не разбирает.
type Snapshot struct {
	Collection models.Collection `cbor:"collection"`
	Search     string            `cbor:"search"`
	Items      []byte            `cbor:"items"`
	SavedAt    int64             `cbor:"saved_at"`
}
