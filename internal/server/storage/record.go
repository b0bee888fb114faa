package storage

import (
	"context"

	"github.com/iudanet/livedesk/internal/models"
)

//go:generate moq -out record_mock.go . RecordStorage

// ListQuery параметры выборки страницы коллекции
type ListQuery struct {
	TenantID   string
	Collection models.Collection
	Search     string // подстрока имени в нижнем регистре
	Limit      int
	Offset     int
}

// Position новая позиция записи
type Position struct {
	ID    int64
	Order int
}

// RecordStorage defines interface for tenant collections persistence
type RecordStorage interface {
	// ListRecords возвращает страницу записей и общее число записей, подходящих под поиск.
	// Теги упорядочены по Order, остальные коллекции начиная с последних измененных.
	ListRecords(ctx context.Context, query ListQuery) ([]*models.Record, int, error)

	// GetRecord retrieves record by ID
	// Returns ErrRecordNotFound if record doesn't exist in tenant collection
	GetRecord(ctx context.Context, tenantID string, collection models.Collection, id int64) (*models.Record, error)

	// CreateRecord сохраняет запись и заполняет ID и Order (в конец коллекции)
	CreateRecord(ctx context.Context, record *models.Record) error

	// UpdateRecord заменяет имя и поля записи
	// Returns ErrRecordNotFound if record doesn't exist in tenant collection
	UpdateRecord(ctx context.Context, record *models.Record) error

	// DeleteRecord deletes record by ID
	// Returns ErrRecordNotFound if record doesn't exist in tenant collection
	DeleteRecord(ctx context.Context, tenantID string, collection models.Collection, id int64) error

	// ReorderRecords атомарно сохраняет позиции записей.
	// Returns ErrRecordNotFound if any record doesn't exist in tenant collection
	ReorderRecords(ctx context.Context, tenantID string, collection models.Collection, positions []Position) error
}
