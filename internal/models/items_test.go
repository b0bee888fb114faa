package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnreadCount(t *testing.T) {
	chats := []Chat{
		{ID: 1, Users: []ChatUser{{UserID: "u1", Unreads: 2}, {UserID: "u2", Unreads: 5}}},
		{ID: 2, Users: []ChatUser{{UserID: "u1", Unreads: 3}}},
		{ID: 3},
	}

	assert.Equal(t, 5, UnreadCount(chats, "u1"))
	assert.Equal(t, 5, UnreadCount(chats, "u2"))
	assert.Equal(t, 0, UnreadCount(chats, "nobody"))
	assert.Equal(t, 0, UnreadCount(nil, "u1"))
}

func TestOfflineConnections(t *testing.T) {
	connections := []Connection{
		{ID: 1, Name: "main", Status: ConnectionConnected},
		{ID: 2, Name: "sales", Status: ConnectionQRCode},
		{ID: 3, Name: "support", Status: ConnectionTimeout},
		{ID: 4, Name: "spare", Status: "unknown"},
	}

	offline := OfflineConnections(connections)

	assert.Len(t, offline, 2)
	assert.Equal(t, "sales", offline[0].Name)
	assert.Equal(t, "support", offline[1].Name)
}

func TestRenumberTags(t *testing.T) {
	tags := []Tag{{ID: 10, Order: 3}, {ID: 20, Order: 1}, {ID: 30, Order: 2}}

	renumbered := RenumberTags(tags)

	assert.Equal(t, []int{1, 2, 3}, []int{renumbered[0].Order, renumbered[1].Order, renumbered[2].Order})
	assert.Equal(t, int64(10), renumbered[0].ID)
	// исходный срез не меняется
	assert.Equal(t, 3, tags[0].Order)
}

func TestItemKey(t *testing.T) {
	assert.Equal(t, int64(5), ItemKey(Tag{ID: 5}))
	assert.Equal(t, int64(6), ItemKey(Chat{ID: 6}))
	assert.Equal(t, int64(7), ItemKey(Ticket{ID: 7}))
}
