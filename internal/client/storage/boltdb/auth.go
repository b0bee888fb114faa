package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/livedesk/internal/client/storage"
)

// В базе хранится одна сессия оператора
var sessionKey = []byte("session")

// tenantBuckets содержат данные коллекций тенанта текущей сессии
var tenantBuckets = [][]byte{bucketSnapshots, bucketViewState}

// SaveAuth сохраняет сессию. Если оператор вошел в другой тенант или на другой сервер,
// снимки и состояние просмотра прежней сессии удаляются в той же транзакции:
// теплый старт не должен показать записи чужого тенанта.
func (s *Storage) SaveAuth(ctx context.Context, session *storage.AuthData) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	if session.AccessToken == "" || session.TenantID == "" || session.ServerURL == "" {
		return storage.ErrIncompleteSession
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAuth)
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}

		prev, err := readSession(bucket)
		switch {
		case errors.Is(err, storage.ErrAuthNotFound):
		case err != nil:
			// Поврежденная сессия не позволяет понять, чьи данные в кеше
			if err := clearTenantData(tx); err != nil {
				return err
			}
		case prev.TenantID != session.TenantID || prev.ServerURL != session.ServerURL:
			if err := clearTenantData(tx); err != nil {
				return err
			}
		}

		if err := bucket.Put(sessionKey, data); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	})
}

// GetAuth возвращает сохраненную сессию или storage.ErrAuthNotFound
func (s *Storage) GetAuth(ctx context.Context) (*storage.AuthData, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var session *storage.AuthData
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAuth)
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}

		var err error
		session, err = readSession(bucket)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteAuth удаляет сессию при выходе. Кеш коллекций очищает вызывающий.
func (s *Storage) DeleteAuth(ctx context.Context) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAuth)
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}

		if bucket.Get(sessionKey) == nil {
			return storage.ErrAuthNotFound
		}
		if err := bucket.Delete(sessionKey); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return nil
	})
}

// IsAuthenticated сообщает, есть ли сессия с непросроченным токеном
func (s *Storage) IsAuthenticated(ctx context.Context) (bool, error) {
	session, err := s.GetAuth(ctx)
	if errors.Is(err, storage.ErrAuthNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !session.Expired(s.now()), nil
}

func readSession(bucket *bbolt.Bucket) (*storage.AuthData, error) {
	data := bucket.Get(sessionKey)
	if data == nil {
		return nil, storage.ErrAuthNotFound
	}

	session := &storage.AuthData{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session, nil
}

// clearTenantData пересоздает бакеты кеша коллекций
func clearTenantData(tx *bbolt.Tx) error {
	for _, name := range tenantBuckets {
		if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return fmt.Errorf("failed to clear %s bucket: %w", name, err)
		}
		if _, err := tx.CreateBucket(name); err != nil {
			return fmt.Errorf("failed to recreate %s bucket: %w", name, err)
		}
	}
	return nil
}
