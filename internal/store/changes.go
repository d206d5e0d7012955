package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Jerry0022/PYCO/internal/docstore"
)

// ChangesSince returns up to limit changes with seq > since across all
// partitions, oldest first. Each document appears at most once, at its
// latest state. A limit <= 0 returns everything.
func (s *Store) ChangesSince(ctx context.Context, since int64, limit int) ([]docstore.Change, error) {
	query := `
		SELECT seq, partition, id, deleted, body FROM documents
		WHERE seq > ?
		ORDER BY seq ASC, id COLLATE BINARY ASC`
	args := []any{since}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("changes since %d: %w", since, err)
	}
	defer rows.Close()

	var changes []docstore.Change
	for rows.Next() {
		var c docstore.Change
		if err := rows.Scan(&c.Seq, &c.Partition, &c.ID, &c.Deleted, &c.Body); err != nil {
			return nil, fmt.Errorf("changes since %d: %w", since, err)
		}
		if c.Deleted {
			c.Body = ""
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("changes since %d: %w", since, err)
	}
	return changes, nil
}

// LastSeq returns the most recently assigned sequence number, 0 for a fresh
// store.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT value FROM sequence WHERE name = 'documents'
	`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

// ApplyChange writes a change received from a peer. The change takes a new
// local sequence number; its remote seq is not kept. It reports whether the
// local state changed: replaying a change that is already reflected locally
// is a no-op.
func (s *Store) ApplyChange(ctx context.Context, c docstore.Change) (bool, error) {
	if c.Partition == "" || c.ID == "" {
		return false, fmt.Errorf("apply change: partition and id are required")
	}

	if c.Deleted {
		written, err := s.write(ctx, c.Partition, c.ID, "{}", nil, true)
		if err != nil {
			return false, fmt.Errorf("apply change %s/%s: %w", c.Partition, c.ID, err)
		}
		return written, nil
	}

	// Re-encode so the stored form does not depend on the peer's formatting.
	fields, err := unmarshalBody(c.Body)
	if err != nil {
		return false, fmt.Errorf("apply change %s/%s: %w", c.Partition, c.ID, err)
	}
	body, err := marshalBody(fields)
	if err != nil {
		return false, fmt.Errorf("apply change %s/%s: %w", c.Partition, c.ID, err)
	}
	written, err := s.write(ctx, c.Partition, c.ID, body, fields, false)
	if err != nil {
		return false, fmt.Errorf("apply change %s/%s: %w", c.Partition, c.ID, err)
	}
	return written, nil
}

// Checkpoint returns the sequence number saved under key, 0 if none.
func (s *Store) Checkpoint(ctx context.Context, key string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT seq FROM checkpoints WHERE key = ?`, key).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("checkpoint %s: %w", key, err)
	}
	return seq, nil
}

// SaveCheckpoint records seq under key. Checkpoints never move backwards:
// saving a lower value than the stored one keeps the stored one.
func (s *Store) SaveCheckpoint(ctx context.Context, key string, seq int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (key, seq) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET seq = MAX(seq, excluded.seq)
	`, key, seq)
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", key, err)
	}
	return nil
}
