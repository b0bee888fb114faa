package boltdb

import (
	"context"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"go.etcd.io/bbolt"

	"github.com/iudanet/livedesk/internal/client/storage"
	"github.com/iudanet/livedesk/internal/models"
)

// SaveViewState saves search filter and cursor of collection
func (s *Storage) SaveViewState(ctx context.Context, collection models.Collection, state *storage.ViewState) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	stored := *state
	stored.UpdatedAt = s.now().Unix()

	data, err := cbor.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal view state: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketViewState)
		if bucket == nil {
			return fmt.Errorf("view state bucket not found")
		}

		if err := bucket.Put([]byte(collection), data); err != nil {
			return fmt.Errorf("failed to save view state: %w", err)
		}
		return nil
	})
}

// GetViewState retrieves search filter and cursor of collection
func (s *Storage) GetViewState(ctx context.Context, collection models.Collection) (*storage.ViewState, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var state *storage.ViewState

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketViewState)
		if bucket == nil {
			return fmt.Errorf("view state bucket not found")
		}

		data := bucket.Get([]byte(collection))
		if data == nil {
			return storage.ErrViewStateNotFound
		}

		state = &storage.ViewState{}
		if err := cbor.Unmarshal(data, state); err != nil {
			return fmt.Errorf("failed to unmarshal view state: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return state, nil
}
