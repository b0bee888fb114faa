package models

import "slices"

// Item запись клиентской коллекции с устойчивым идентификатором
type Item interface {
	ItemID() int64
}

// ItemKey возвращает ключ записи. Используется как функция идентичности в listsync.
func ItemKey[T Item](item T) int64 {
	return item.ItemID()
}

// Tag представляет тег тикетов
type Tag struct {
	Name         string `json:"name"`         // Name название тега
	Color        string `json:"color"`        // Color цвет в формате #rrggbb
	ID           int64  `json:"id"`           // ID идентификатор тега
	Order        int    `json:"order"`        // Order позиция в списке тегов (1..n)
	TicketsCount int    `json:"ticketsCount"` // TicketsCount количество тикетов с тегом
}

// ItemID реализует Item
func (t Tag) ItemID() int64 { return t.ID }

// ChatUser участник внутреннего чата
type ChatUser struct {
	UserID  string `json:"userId"`
	Unreads int    `json:"unreads"` // Unreads непрочитанные сообщения участника
}

// Chat внутренний чат операторов
type Chat struct {
	Name        string     `json:"name"`
	LastMessage string     `json:"lastMessage"`
	Users       []ChatUser `json:"users"`
	ID          int64      `json:"id"`
}

// ItemID реализует Item
func (c Chat) ItemID() int64 { return c.ID }

// Ticket обращение клиента
type Ticket struct {
	Name           string `json:"name"`   // Name имя контакта
	Status         string `json:"status"` // Status open, pending или closed
	LastMessage    string `json:"lastMessage"`
	ID             int64  `json:"id"`
	UnreadMessages int    `json:"unreadMessages"`
}

// ItemID реализует Item
func (t Ticket) ItemID() int64 { return t.ID }

// Contact контакт клиента
type Contact struct {
	Name   string `json:"name"`
	Number string `json:"number"`
	Email  string `json:"email"`
	ID     int64  `json:"id"`
}

// ItemID реализует Item
func (c Contact) ItemID() int64 { return c.ID }

// Статусы подключения мессенджера
const (
	ConnectionConnected    = "CONNECTED"
	ConnectionQRCode       = "qrcode"
	ConnectionPairing      = "PAIRING"
	ConnectionDisconnected = "DISCONNECTED"
	ConnectionTimeout      = "TIMEOUT"
	ConnectionOpening      = "OPENING"
)

// offlineStatuses статусы, при которых подключение не принимает сообщения
var offlineStatuses = []string{
	ConnectionQRCode,
	ConnectionPairing,
	ConnectionDisconnected,
	ConnectionTimeout,
	ConnectionOpening,
}

// Connection подключение к мессенджеру (номер WhatsApp и т.п.)
type Connection struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	ID     int64  `json:"id"`
}

// ItemID реализует Item
func (c Connection) ItemID() int64 { return c.ID }

// IsOffline сообщает, что подключение требует внимания оператора
func (c Connection) IsOffline() bool {
	return slices.Contains(offlineStatuses, c.Status)
}

// OfflineConnections возвращает подключения, требующие внимания
func OfflineConnections(connections []Connection) []Connection {
	var offline []Connection
	for _, c := range connections {
		if c.IsOffline() {
			offline = append(offline, c)
		}
	}
	return offline
}

// UnreadCount суммирует непрочитанные сообщения пользователя по всем загруженным чатам
func UnreadCount(chats []Chat, userID string) int {
	total := 0
	for _, chat := range chats {
		for _, u := range chat.Users {
			if u.UserID == userID {
				total += u.Unreads
			}
		}
	}
	return total
}

// RenumberTags проставляет Order по текущей позиции тега (начиная с 1)
func RenumberTags(tags []Tag) []Tag {
	out := make([]Tag, len(tags))
	for i, tag := range tags {
		tag.Order = i + 1
		out[i] = tag
	}
	return out
}
