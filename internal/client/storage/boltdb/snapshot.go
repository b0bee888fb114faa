package boltdb

import (
	"context"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"go.etcd.io/bbolt"

	"github.com/iudanet/livedesk/internal/client/storage"
	"github.com/iudanet/livedesk/internal/models"
)

// SaveSnapshot stores or replaces collection snapshot
func (s *Storage) SaveSnapshot(ctx context.Context, snapshot *storage.Snapshot) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	stored := *snapshot
	if stored.SavedAt == 0 {
		stored.SavedAt = s.now().Unix()
	}

	// Сериализуем снимок в CBOR
	data, err := cbor.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSnapshots)
		if bucket == nil {
			return fmt.Errorf("snapshots bucket not found")
		}

		if err := bucket.Put([]byte(snapshot.Collection), data); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// GetSnapshot retrieves collection snapshot
func (s *Storage) GetSnapshot(ctx context.Context, collection models.Collection) (*storage.Snapshot, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var snapshot *storage.Snapshot

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSnapshots)
		if bucket == nil {
			return storage.ErrSnapshotNotFound
		}

		data := bucket.Get([]byte(collection))
		if data == nil {
			return storage.ErrSnapshotNotFound
		}

		snapshot = &storage.Snapshot{}
		if err := cbor.Unmarshal(data, snapshot); err != nil {
			return fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

// DeleteSnapshot removes collection snapshot
func (s *Storage) DeleteSnapshot(ctx context.Context, collection models.Collection) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSnapshots)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(collection))
	})
}
