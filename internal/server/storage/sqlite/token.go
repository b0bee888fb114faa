package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RevokeToken stores hash of revoked access token
func (s *Storage) RevokeToken(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	query := `
		INSERT OR REPLACE INTO revoked_tokens (token_hash, expires_at)
		VALUES (?, ?)
	`

	if _, err := s.db.ExecContext(ctx, query, tokenHash, expiresAt.Unix()); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	return nil
}

// IsTokenRevoked checks whether token hash was revoked
func (s *Storage) IsTokenRevoked(ctx context.Context, tokenHash string) (bool, error) {
	query := `SELECT 1 FROM revoked_tokens WHERE token_hash = ?`

	var found int
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check token: %w", err)
	}

	return true, nil
}

// DeleteExpiredTokens removes revocations of tokens that already expired
func (s *Storage) DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error) {
	query := `DELETE FROM revoked_tokens WHERE expires_at < ?`

	result, err := s.db.ExecContext(ctx, query, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}
