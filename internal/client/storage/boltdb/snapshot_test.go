package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/livedesk/internal/client/storage"
	"github.com/iudanet/livedesk/internal/models"
)

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := createTestStorage(t, now)

	tags := []models.Tag{
		{ID: 2, Name: "urgent", Color: "#ff0000", Order: 1},
		{ID: 1, Name: "vip", Color: "#00ff00", Order: 2, TicketsCount: 4},
	}
	items, err := cbor.Marshal(tags)
	require.NoError(t, err)

	_, err = store.GetSnapshot(ctx, models.CollectionTags)
	assert.ErrorIs(t, err, storage.ErrSnapshotNotFound)

	err = store.SaveSnapshot(ctx, &storage.Snapshot{
		Collection: models.CollectionTags,
		Search:     "u",
		Items:      items,
	})
	require.NoError(t, err)

	got, err := store.GetSnapshot(ctx, models.CollectionTags)
	require.NoError(t, err)
	assert.Equal(t, models.CollectionTags, got.Collection)
	assert.Equal(t, "u", got.Search)
	assert.Equal(t, now.Unix(), got.SavedAt)

	var decoded []models.Tag
	require.NoError(t, cbor.Unmarshal(got.Items, &decoded))
	assert.Equal(t, tags, decoded)
}

func TestDeleteSnapshot(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t, time.Now())

	// Удаление отсутствующего снимка не ошибка
	require.NoError(t, store.DeleteSnapshot(ctx, models.CollectionChats))

	require.NoError(t, store.SaveSnapshot(ctx, &storage.Snapshot{Collection: models.CollectionChats, SavedAt: 10}))
	got, err := store.GetSnapshot(ctx, models.CollectionChats)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.SavedAt, "явный SavedAt сохраняется")

	require.NoError(t, store.DeleteSnapshot(ctx, models.CollectionChats))
	_, err = store.GetSnapshot(ctx, models.CollectionChats)
	assert.ErrorIs(t, err, storage.ErrSnapshotNotFound)
}
