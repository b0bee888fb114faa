package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/iudanet/livedesk/internal/models"
	"github.com/iudanet/livedesk/internal/server/storage"
	"github.com/iudanet/livedesk/internal/validation"
	"github.com/iudanet/livedesk/pkg/api"
)

//go:generate moq -out publisher_mock_test.go . EventPublisher

// EventPublisher рассылает изменения записей подписчикам коллекции
type EventPublisher interface {
	Publish(ctx context.Context, event api.Event) error
}

// RecordsHandler обслуживает коллекции тенанта: страницы, изменения и порядок тегов
type RecordsHandler struct {
	responder
	records   storage.RecordStorage
	publisher EventPublisher
	pageSize  int
}

// NewRecordsHandler создает handler коллекций
func NewRecordsHandler(logger *slog.Logger, records storage.RecordStorage, publisher EventPublisher, pageSize int) *RecordsHandler {
	if pageSize <= 0 {
		pageSize = api.DefaultPageSize
	}
	return &RecordsHandler{
		responder: responder{logger: logger},
		records:   records,
		publisher: publisher,
		pageSize:  pageSize,
	}
}

// List обрабатывает GET /api/v1/{collection}?searchParam=&pageNumber=
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, collection, ok := h.scope(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	search, err := validation.NormalizeSearch(query.Get("searchParam"))
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	page := 1
	if raw := query.Get("pageNumber"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil {
			h.sendError(w, "pageNumber must be a number", http.StatusBadRequest)
			return
		}
	}
	if err := validation.ValidatePageNumber(page); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	offset := (page - 1) * h.pageSize
	records, count, err := h.records.ListRecords(ctx, storage.ListQuery{
		TenantID:   id.TenantID,
		Collection: collection,
		Search:     search,
		Limit:      h.pageSize,
		Offset:     offset,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list records",
			slog.String("collection", string(collection)),
			slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	items := make([]json.RawMessage, 0, len(records))
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to marshal record", slog.Int64("id", rec.ID), slog.Any("error", err))
			h.sendError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		items = append(items, data)
	}

	h.sendJSON(w, api.PageResponse{
		Items:   items,
		Count:   count,
		HasMore: offset+len(items) < count,
	}, http.StatusOK)
}

// Create обрабатывает POST /api/v1/{collection}
func (h *RecordsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, collection, ok := h.scope(w, r)
	if !ok {
		return
	}

	req, ok := h.decodeRecord(w, r, collection)
	if !ok {
		return
	}

	rec := &models.Record{
		TenantID:   id.TenantID,
		Collection: collection,
		Name:       strings.TrimSpace(req.Name),
		Fields:     req.Fields,
	}
	if err := h.records.CreateRecord(ctx, rec); err != nil {
		h.logger.ErrorContext(ctx, "failed to create record", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "record created",
		slog.String("collection", string(collection)),
		slog.Int64("id", rec.ID),
		slog.String("user_id", id.UserID))

	h.publish(ctx, api.ActionCreate, rec)
	h.sendJSON(w, rec, http.StatusCreated)
}

// Update обрабатывает PUT /api/v1/{collection}/{id}
func (h *RecordsHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, collection, ok := h.scope(w, r)
	if !ok {
		return
	}
	recordID, ok := h.recordID(w, r)
	if !ok {
		return
	}

	req, ok := h.decodeRecord(w, r, collection)
	if !ok {
		return
	}

	rec := &models.Record{
		ID:         recordID,
		TenantID:   id.TenantID,
		Collection: collection,
		Name:       strings.TrimSpace(req.Name),
		Fields:     req.Fields,
	}
	if err := h.records.UpdateRecord(ctx, rec); err != nil {
		h.storageError(ctx, w, "failed to update record", err)
		return
	}

	// Перечитываем запись, чтобы отдать Order и время создания
	saved, err := h.records.GetRecord(ctx, id.TenantID, collection, recordID)
	if err != nil {
		h.storageError(ctx, w, "failed to get updated record", err)
		return
	}

	h.publish(ctx, updateAction(collection), saved)
	h.sendJSON(w, saved, http.StatusOK)
}

// updateAction возвращает действие события изменения записи.
// Чаты меняются точечно: клиент обновляет только уже загруженный чат.
func updateAction(collection models.Collection) string {
	if collection == models.CollectionChats {
		return api.ActionPatch
	}
	return api.ActionUpdate
}

// PostMessage обрабатывает POST /api/v1/chats/{id}/messages.
// Новое сообщение становится lastMessage чата, остальным участникам растет счетчик непрочитанных.
func (h *RecordsHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := IdentityFromContext(ctx)
	if !ok {
		h.sendError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	chatID, ok := h.recordID(w, r)
	if !ok {
		return
	}

	var req api.MessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	text := strings.TrimSpace(req.Text)
	if err := validation.ValidateMessage(text); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	chat, err := h.records.GetRecord(ctx, id.TenantID, models.CollectionChats, chatID)
	if err != nil {
		h.storageError(ctx, w, "failed to get chat", err)
		return
	}

	fields := make(map[string]any, len(chat.Fields)+1)
	for k, v := range chat.Fields {
		fields[k] = v
	}
	fields["lastMessage"] = text
	if users, ok := fields["users"]; ok {
		fields["users"] = bumpUnreads(users, id.UserID)
	}
	chat.Fields = fields

	if err := h.records.UpdateRecord(ctx, chat); err != nil {
		h.storageError(ctx, w, "failed to update chat", err)
		return
	}

	saved, err := h.records.GetRecord(ctx, id.TenantID, models.CollectionChats, chatID)
	if err != nil {
		h.storageError(ctx, w, "failed to get updated chat", err)
		return
	}

	h.logger.InfoContext(ctx, "message posted",
		slog.Int64("chat_id", chatID),
		slog.String("user_id", id.UserID))

	h.publish(ctx, api.ActionPatch, saved)
	h.sendJSON(w, saved, http.StatusOK)
}

// bumpUnreads увеличивает unreads всем участникам чата, кроме отправителя.
// Участники без userId и значения другого вида остаются как есть.
func bumpUnreads(users any, senderID string) any {
	list, ok := users.([]any)
	if !ok {
		return users
	}

	bumped := make([]any, len(list))
	for i, u := range list {
		user, ok := u.(map[string]any)
		if !ok {
			bumped[i] = u
			continue
		}
		next := make(map[string]any, len(user))
		for k, v := range user {
			next[k] = v
		}
		if userID, _ := user["userId"].(string); userID != "" && userID != senderID {
			next["unreads"] = unreadCount(user["unreads"]) + 1
		}
		bumped[i] = next
	}
	return bumped
}

func unreadCount(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	}
	return 0
}

// Delete обрабатывает DELETE /api/v1/{collection}/{id}
func (h *RecordsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, collection, ok := h.scope(w, r)
	if !ok {
		return
	}
	recordID, ok := h.recordID(w, r)
	if !ok {
		return
	}

	if err := h.records.DeleteRecord(ctx, id.TenantID, collection, recordID); err != nil {
		h.storageError(ctx, w, "failed to delete record", err)
		return
	}

	h.logger.InfoContext(ctx, "record deleted",
		slog.String("collection", string(collection)),
		slog.Int64("id", recordID),
		slog.String("user_id", id.UserID))

	h.publish(ctx, api.ActionDelete, &models.Record{ID: recordID, TenantID: id.TenantID, Collection: collection})
	w.WriteHeader(http.StatusNoContent)
}

// ReorderTags обрабатывает PUT /api/v1/tags/reorder
func (h *RecordsHandler) ReorderTags(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := IdentityFromContext(ctx)
	if !ok {
		h.sendError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req api.ReorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	positions, err := tagPositions(req.Tags)
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.records.ReorderRecords(ctx, id.TenantID, models.CollectionTags, positions); err != nil {
		h.storageError(ctx, w, "failed to reorder tags", err)
		return
	}

	h.logger.InfoContext(ctx, "tags reordered", slog.Int("count", len(positions)), slog.String("user_id", id.UserID))

	// Остальные операторы получают теги с новым порядком
	for _, p := range positions {
		rec, err := h.records.GetRecord(ctx, id.TenantID, models.CollectionTags, p.ID)
		if err != nil {
			h.logger.WarnContext(ctx, "failed to reload reordered tag", slog.Int64("id", p.ID), slog.Any("error", err))
			continue
		}
		h.publish(ctx, api.ActionUpdate, rec)
	}

	w.WriteHeader(http.StatusNoContent)
}

func tagPositions(tags []api.TagOrder) ([]storage.Position, error) {
	if len(tags) == 0 {
		return nil, errors.New("tags cannot be empty")
	}

	seen := make(map[int64]struct{}, len(tags))
	positions := make([]storage.Position, 0, len(tags))
	for _, t := range tags {
		if t.ID <= 0 {
			return nil, fmt.Errorf("invalid tag id %d", t.ID)
		}
		if t.Order < 1 {
			return nil, fmt.Errorf("order of tag %d must be positive", t.ID)
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("duplicate tag id %d", t.ID)
		}
		seen[t.ID] = struct{}{}
		positions = append(positions, storage.Position{ID: t.ID, Order: t.Order})
	}
	return positions, nil
}

// scope возвращает оператора и коллекцию запроса или отвечает ошибкой
func (h *RecordsHandler) scope(w http.ResponseWriter, r *http.Request) (Identity, models.Collection, bool) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		h.sendError(w, "authentication required", http.StatusUnauthorized)
		return Identity{}, "", false
	}

	collection, err := validation.ValidateCollection(r.PathValue("collection"))
	if err != nil {
		h.sendError(w, err.Error(), http.StatusNotFound)
		return Identity{}, "", false
	}
	return id, collection, true
}

func (h *RecordsHandler) recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.sendError(w, "invalid record id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *RecordsHandler) decodeRecord(w http.ResponseWriter, r *http.Request, collection models.Collection) (api.RecordRequest, bool) {
	var req api.RecordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return req, false
	}
	if err := validation.ValidateName(req.Name); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return req, false
	}
	if err := validation.ValidateFields(collection, req.Fields); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (h *RecordsHandler) storageError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, storage.ErrRecordNotFound) {
		h.sendError(w, "record not found", http.StatusNotFound)
		return
	}
	h.logger.ErrorContext(ctx, msg, slog.Any("error", err))
	h.sendError(w, "internal server error", http.StatusInternalServerError)
}

// publish рассылает событие после успешного изменения.
// Ошибка брокера не отменяет изменение: клиенты увидят его при следующей загрузке.
func (h *RecordsHandler) publish(ctx context.Context, action string, rec *models.Record) {
	event := api.Event{
		Action:     action,
		Collection: string(rec.Collection),
		TenantID:   rec.TenantID,
		ID:         rec.ID,
	}
	if action != api.ActionDelete {
		data, err := json.Marshal(rec)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to marshal event record", slog.Any("error", err))
			return
		}
		event.Record = data
	}

	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("collection", event.Collection),
			slog.String("action", action),
			slog.Any("error", err))
	}
}
