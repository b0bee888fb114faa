package api

import "encoding/json"

// DefaultPageSize количество записей на странице, если сервер не настроен иначе
const DefaultPageSize = 20

// PageRequest параметры запроса страницы коллекции
type PageRequest struct {
	SearchParam string `json:"searchParam"`
	PageNumber  int    `json:"pageNumber"`
}

// PageResponse страница коллекции.
// Items содержит записи в "плоском" виде: id, name, order и поля записи на одном уровне.
type PageResponse struct {
	Items   []json.RawMessage `json:"items"`
	Count   int               `json:"count"`
	HasMore bool              `json:"hasMore"`
}

// RecordRequest тело запроса на создание или изменение записи
type RecordRequest struct {
	Fields map[string]any `json:"fields,omitempty"`
	Name   string         `json:"name"`
}

// TagOrder новая позиция тега
type TagOrder struct {
	ID    int64 `json:"id"`
	Order int   `json:"order"`
}

// ReorderRequest тело PUT /api/v1/tags/reorder
type ReorderRequest struct {
	Tags []TagOrder `json:"tags"`
}

// MessageRequest тело POST /api/v1/chats/{id}/messages
type MessageRequest struct {
	Text string `json:"text"`
}
