package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/livedesk/internal/models"
	"github.com/iudanet/livedesk/internal/server/storage"
)

const recordColumns = `id, tenant_id, collection, name, sort_order, fields, created_at, updated_at`

// likeEscaper экранирует спецсимволы LIKE в строке поиска
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListRecords returns one page of tenant collection filtered by name substring
func (s *Storage) ListRecords(ctx context.Context, q storage.ListQuery) ([]*models.Record, int, error) {
	where := `tenant_id = ? AND collection = ?`
	args := []any{q.TenantID, string(q.Collection)}
	if q.Search != "" {
		where += ` AND name_lower LIKE ? ESCAPE '\'`
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(q.Search))+"%")
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE `+where, args...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("failed to count records: %w", err)
	}

	// Теги имеют ручной порядок, остальное показывается от новых к старым
	orderBy := `updated_at DESC, id DESC`
	if q.Collection == models.CollectionTags {
		orderBy = `sort_order ASC, id ASC`
	}

	query := `SELECT ` + recordColumns + ` FROM records WHERE ` + where +
		` ORDER BY ` + orderBy + ` LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	records := make([]*models.Record, 0, q.Limit)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating records: %w", err)
	}

	return records, count, nil
}

// GetRecord retrieves record by ID
func (s *Storage) GetRecord(ctx context.Context, tenantID string, collection models.Collection, id int64) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE id = ? AND tenant_id = ? AND collection = ?`

	record, err := scanRecord(s.db.QueryRowContext(ctx, query, id, tenantID, string(collection)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRecordNotFound
		}
		return nil, err
	}
	return record, nil
}

// CreateRecord inserts record at the end of collection
func (s *Storage) CreateRecord(ctx context.Context, record *models.Record) error {
	fields, err := encodeFields(record.Fields)
	if err != nil {
		return err
	}

	now := s.now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var order int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort_order), 0) + 1 FROM records WHERE tenant_id = ? AND collection = ?`,
		record.TenantID, string(record.Collection),
	).Scan(&order)
	if err != nil {
		return fmt.Errorf("failed to compute order: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO records (tenant_id, collection, name, name_lower, sort_order, fields, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.TenantID,
		string(record.Collection),
		record.Name,
		strings.ToLower(record.Name),
		order,
		fields,
		record.CreatedAt.UnixMilli(),
		record.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get record id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	record.ID = id
	record.Order = order
	return nil
}

// UpdateRecord replaces name and fields of record
func (s *Storage) UpdateRecord(ctx context.Context, record *models.Record) error {
	fields, err := encodeFields(record.Fields)
	if err != nil {
		return err
	}

	record.UpdatedAt = s.now()

	query := `
		UPDATE records
		SET name = ?, name_lower = ?, fields = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ? AND collection = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		record.Name,
		strings.ToLower(record.Name),
		fields,
		record.UpdatedAt.UnixMilli(),
		record.ID,
		record.TenantID,
		string(record.Collection),
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}

	return expectRow(result)
}

// DeleteRecord deletes record by ID
func (s *Storage) DeleteRecord(ctx context.Context, tenantID string, collection models.Collection, id int64) error {
	query := `DELETE FROM records WHERE id = ? AND tenant_id = ? AND collection = ?`

	result, err := s.db.ExecContext(ctx, query, id, tenantID, string(collection))
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	return expectRow(result)
}

// ReorderRecords saves positions of records in a single transaction
func (s *Storage) ReorderRecords(ctx context.Context, tenantID string, collection models.Collection, positions []storage.Position) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `UPDATE records SET sort_order = ? WHERE id = ? AND tenant_id = ? AND collection = ?`
	for _, p := range positions {
		result, err := tx.ExecContext(ctx, query, p.Order, p.ID, tenantID, string(collection))
		if err != nil {
			return fmt.Errorf("failed to update order of record %d: %w", p.ID, err)
		}
		if err := expectRow(result); err != nil {
			return fmt.Errorf("record %d: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	record := &models.Record{}
	var collection, fields string
	var createdAt, updatedAt int64

	err := row.Scan(
		&record.ID,
		&record.TenantID,
		&collection,
		&record.Name,
		&record.Order,
		&fields,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}

	record.Collection = models.Collection(collection)
	record.CreatedAt = time.UnixMilli(createdAt)
	record.UpdatedAt = time.UnixMilli(updatedAt)

	if err := json.Unmarshal([]byte(fields), &record.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode fields of record %d: %w", record.ID, err)
	}

	return record, nil
}

func encodeFields(fields map[string]any) (string, error) {
	if len(fields) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	return string(data), nil
}

func expectRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrRecordNotFound
	}

	return nil
}
