package models

import (
	"encoding/json"
	"maps"
	"time"
)

// Collection имя синхронизируемой коллекции тенанта
type Collection string

// Коллекции, которые обслуживает сервер
const (
	CollectionTags        Collection = "tags"
	CollectionChats       Collection = "chats"
	CollectionTickets     Collection = "tickets"
	CollectionContacts    Collection = "contacts"
	CollectionConnections Collection = "connections"
)

// Collections перечисляет все известные коллекции в порядке отображения
var Collections = []Collection{
	CollectionTickets,
	CollectionChats,
	CollectionTags,
	CollectionContacts,
	CollectionConnections,
}

// IsValid проверяет, что коллекция известна серверу
func (c Collection) IsValid() bool {
	for _, known := range Collections {
		if c == known {
			return true
		}
	}
	return false
}

// Record представляет запись любой коллекции на сервере.
// Общие поля (id, name, order) хранятся в колонках, остальное в Fields.
type Record struct {
	CreatedAt  time.Time      `json:"createdAt"`  // CreatedAt время создания записи
	UpdatedAt  time.Time      `json:"updatedAt"`  // UpdatedAt время последнего обновления
	Fields     map[string]any `json:"-"`          // Fields произвольные поля записи (color, status, users...)
	TenantID   string         `json:"-"`          // TenantID компания-владелец записи
	Collection Collection     `json:"-"`          // Collection коллекция записи
	Name       string         `json:"name"`       // Name отображаемое имя, по нему идет поиск
	ID         int64          `json:"id"`         // ID уникальный в рамках сервера идентификатор
	Order      int            `json:"order"`      // Order позиция записи в коллекции (1..n)
}

// MarshalJSON сериализует запись в "плоский" вид: поля из Fields
// поднимаются на верхний уровень рядом с id, name и order.
// Колонки записи имеют приоритет над одноименными полями.
func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Fields)+5)
	maps.Copy(flat, r.Fields)
	flat["id"] = r.ID
	flat["name"] = r.Name
	flat["order"] = r.Order
	flat["createdAt"] = r.CreatedAt
	flat["updatedAt"] = r.UpdatedAt
	return json.Marshal(flat)
}

// Clone создает глубокую копию записи
func (r *Record) Clone() *Record {
	clone := *r
	if r.Fields != nil {
		clone.Fields = make(map[string]any, len(r.Fields))
		maps.Copy(clone.Fields, r.Fields)
	}
	return &clone
}
