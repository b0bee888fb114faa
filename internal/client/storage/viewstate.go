package storage

import (
	"context"

	"github.com/iudanet/livedesk/internal/models"
)

//go:generate moq -out viewstate_mock.go . ViewStateStorage

// ViewStateStorage хранит последний фильтр и курсор по каждой коллекции
type ViewStateStorage interface {
	// SaveViewState сохраняет состояние просмотра коллекции
	SaveViewState(ctx context.Context, collection models.Collection, state *ViewState) error

	// GetViewState возвращает состояние просмотра коллекции
	// Returns ErrViewStateNotFound if nothing was saved
	GetViewState(ctx context.Context, collection models.Collection) (*ViewState, error)
}

// ViewState фильтр поиска и номер последней загруженной страницы
type ViewState struct {
	Search     string `cbor:"search"`
	PageNumber int    `cbor:"page"`
	UpdatedAt  int64  `cbor:"updated_at"`
}
