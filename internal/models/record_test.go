package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollection_IsValid(t *testing.T) {
	tests := []struct {
		name       string
		collection Collection
		expected   bool
	}{
		{name: "tags", collection: CollectionTags, expected: true},
		{name: "chats", collection: CollectionChats, expected: true},
		{name: "connections", collection: CollectionConnections, expected: true},
		{name: "unknown", collection: "users", expected: false},
		{name: "empty", collection: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.collection.IsValid())
		})
	}
}

func TestRecord_MarshalJSON_Flattens(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rec := Record{
		ID:        7,
		Name:      "urgent",
		Order:     2,
		CreatedAt: now,
		UpdatedAt: now,
		Fields: map[string]any{
			"color": "#ff0000",
			"id":    999, // колонка побеждает поле
		},
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var tag Tag
	require.NoError(t, json.Unmarshal(data, &tag))
	assert.Equal(t, int64(7), tag.ID)
	assert.Equal(t, "urgent", tag.Name)
	assert.Equal(t, "#ff0000", tag.Color)
	assert.Equal(t, 2, tag.Order)
}

func TestRecord_Clone(t *testing.T) {
	original := &Record{
		ID:     1,
		Name:   "a",
		Fields: map[string]any{"color": "red"},
	}

	clone := original.Clone()
	clone.Fields["color"] = "blue"
	clone.Name = "b"

	assert.Equal(t, "red", original.Fields["color"])
	assert.Equal(t, "a", original.Name)
	assert.Nil(t, (&Record{}).Clone().Fields)
}
