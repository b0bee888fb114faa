package api

import "encoding/json"

// Типы сообщений realtime протокола
const (
	TypeSubscribe      = "subscribe"
	TypeSubscribeAck   = "subscribe_ack"
	TypeUnsubscribe    = "unsubscribe"
	TypeUnsubscribeAck = "unsubscribe_ack"
	TypeEvent          = "event"
	TypeError          = "error"
)

// Действия над записями, которые сервер рассылает подписчикам
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	// ActionPatch обновляет запись только если клиент уже её знает
	// (например, новое сообщение в чате, который не загружен)
	ActionPatch = "patch"
)

// Message конверт для всех сообщений websocket соединения
type Message struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SubscribePayload запрос подписки на коллекцию текущего тенанта
type SubscribePayload struct {
	Collection string `json:"collection"`
}

// Event изменение записи в коллекции тенанта.
// Для create/update/patch заполнен Record, для delete достаточно ID.
type Event struct {
	Action     string          `json:"action"`
	Collection string          `json:"collection"`
	TenantID   string          `json:"tenantId"`
	Record     json.RawMessage `json:"record,omitempty"`
	ID         int64           `json:"id"`
	Seq        int64           `json:"seq"`
}

// ErrorPayload ошибка, отправленная сервером по websocket
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
