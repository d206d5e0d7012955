package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Jerry0022/PYCO/internal/docstore"
	"github.com/Jerry0022/PYCO/internal/ir"
)

var _ docstore.Adapter = (*Store)(nil)

// Query returns every live document of partition.
// Results are ordered by seq ASC, id ASC.
func (s *Store) Query(ctx context.Context, partition string) ([]docstore.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, body FROM documents
		WHERE partition = ? AND deleted = 0
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, partition)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", partition, err)
	}
	docs, err := scanDocuments(rows)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", partition, err)
	}
	return docs, nil
}

// Get returns the live document id of partition, or docstore.ErrNotFound.
func (s *Store) Get(ctx context.Context, partition, id string) (docstore.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM documents
		WHERE partition = ? AND id = ? AND deleted = 0
	`, partition, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.Document{}, fmt.Errorf("get %s/%s: %w", partition, id, docstore.ErrNotFound)
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("get %s/%s: %w", partition, id, err)
	}

	fields, err := unmarshalBody(body)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("get %s/%s: %w", partition, id, err)
	}
	return docstore.Document{ID: id, Fields: fields}, nil
}

// Put upserts doc into partition and refreshes its full-text terms in the
// same transaction. A body identical to the stored live body is a no-op.
func (s *Store) Put(ctx context.Context, partition string, doc docstore.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("put %s: document id is required", partition)
	}
	body, err := marshalBody(doc.Fields)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", partition, doc.ID, err)
	}

	written, err := s.write(ctx, partition, doc.ID, body, doc.Fields, false)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", partition, doc.ID, err)
	}
	if written {
		s.logger.Debug("document put", "partition", partition, "id", doc.ID)
	}
	return nil
}

// Delete tombstones the document id of partition. Deleting an absent or
// already deleted document is a no-op.
func (s *Store) Delete(ctx context.Context, partition, id string) error {
	written, err := s.write(ctx, partition, id, "{}", nil, true)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", partition, id, err)
	}
	if written {
		s.logger.Debug("document deleted", "partition", partition, "id", id)
	}
	return nil
}

// QueryByEquality returns the live documents of partition whose field holds
// the text value.
func (s *Store) QueryByEquality(ctx context.Context, partition, field, value string) ([]docstore.Document, error) {
	docs, err := s.Query(ctx, partition)
	if err != nil {
		return nil, err
	}

	want := ir.IRString(value)
	out := make([]docstore.Document, 0, len(docs))
	for _, doc := range docs {
		if v, ok := doc.Fields[field]; ok && ir.Equal(v, want) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// Reset destroys every document, tombstone and full-text index of partition.
// The sequence is not rewound. Development databases only.
func (s *Store) Reset(ctx context.Context, partition string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM fts_terms WHERE partition = ?`,
			`DELETE FROM fts_indexes WHERE partition = ?`,
			`DELETE FROM documents WHERE partition = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, partition); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reset %s: %w", partition, err)
	}
	s.logger.Warn("partition reset", "partition", partition)
	return nil
}

// write stores body (or a tombstone) under (partition, id) with a fresh
// sequence number and reports whether anything changed. fields is only used
// to refresh full-text terms and may be nil for tombstones.
func (s *Store) write(ctx context.Context, partition, id, body string, fields ir.IRObject, deleted bool) (bool, error) {
	written := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			curBody    string
			curDeleted bool
		)
		err := tx.QueryRowContext(ctx, `
			SELECT body, deleted FROM documents WHERE partition = ? AND id = ?
		`, partition, id).Scan(&curBody, &curDeleted)
		exists := true
		if errors.Is(err, sql.ErrNoRows) {
			exists = false
		} else if err != nil {
			return err
		}

		if deleted && (!exists || curDeleted) {
			return nil
		}
		if !deleted && exists && !curDeleted && curBody == body {
			return nil
		}

		seq, err := nextSeq(ctx, tx)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (partition, id, body, seq, deleted)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(partition, id) DO UPDATE SET
				body = excluded.body,
				seq = excluded.seq,
				deleted = excluded.deleted
		`, partition, id, body, seq, deleted)
		if err != nil {
			return err
		}

		if deleted {
			_, err = tx.ExecContext(ctx, `
				DELETE FROM fts_terms WHERE partition = ? AND doc_id = ?
			`, partition, id)
		} else {
			err = refreshTerms(ctx, tx, partition, id, fields)
		}
		if err != nil {
			return err
		}

		written = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if written {
		s.broadcast()
	}
	return written, nil
}

// nextSeq advances the store-wide sequence and returns the new value.
func nextSeq(ctx context.Context, tx *sql.Tx) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
		UPDATE sequence SET value = value + 1 WHERE name = 'documents'
	`); err != nil {
		return 0, fmt.Errorf("advance sequence: %w", err)
	}
	var seq int64
	if err := tx.QueryRowContext(ctx, `
		SELECT value FROM sequence WHERE name = 'documents'
	`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("read sequence: %w", err)
	}
	return seq, nil
}

func scanDocuments(rows *sql.Rows) ([]docstore.Document, error) {
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		fields, err := unmarshalBody(body)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", id, err)
		}
		docs = append(docs, docstore.Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}
