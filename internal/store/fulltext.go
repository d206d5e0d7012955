package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Jerry0022/PYCO/internal/docstore"
	"github.com/Jerry0022/PYCO/internal/ir"
)

// CreateFullTextIndex creates the named index over fields of partition and
// indexes every live document. Creating an existing index replaces its field
// list and rebuilds it, so the call is idempotent.
func (s *Store) CreateFullTextIndex(ctx context.Context, partition, name string, fields []string) error {
	if name == "" {
		return fmt.Errorf("create index %s: name is required", partition)
	}
	if len(fields) == 0 {
		return fmt.Errorf("create index %s/%s: at least one field is required", partition, name)
	}
	fieldJSON, err := marshalFieldList(fields)
	if err != nil {
		return fmt.Errorf("create index %s/%s: %w", partition, name, err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO fts_indexes (partition, name, fields) VALUES (?, ?, ?)
			ON CONFLICT(partition, name) DO UPDATE SET fields = excluded.fields
		`, partition, name, fieldJSON); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM fts_terms WHERE partition = ? AND index_name = ?
		`, partition, name); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT id, body FROM documents
			WHERE partition = ? AND deleted = 0
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`, partition)
		if err != nil {
			return err
		}
		docs, err := scanDocuments(rows)
		if err != nil {
			return err
		}

		for _, doc := range docs {
			if err := insertTerms(ctx, tx, partition, name, doc.ID, fields, doc.Fields); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create index %s/%s: %w", partition, name, err)
	}
	s.logger.Debug("full-text index created", "partition", partition, "index", name, "fields", fields)
	return nil
}

// DeleteFullTextIndex drops the named index. Dropping an unknown index is a
// no-op.
func (s *Store) DeleteFullTextIndex(ctx context.Context, partition, name string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM fts_terms WHERE partition = ? AND index_name = ?
		`, partition, name); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			DELETE FROM fts_indexes WHERE partition = ? AND name = ?
		`, partition, name)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete index %s/%s: %w", partition, name, err)
	}
	return nil
}

// QueryByFullText returns the live documents of partition whose indexed
// tokens contain every token of term. A term without tokens matches nothing.
// An index that was never created yields docstore.ErrIndexNotFound.
func (s *Store) QueryByFullText(ctx context.Context, partition, index, term string) ([]docstore.Document, error) {
	var fieldJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT fields FROM fts_indexes WHERE partition = ? AND name = ?
	`, partition, index).Scan(&fieldJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("full-text %s/%s: %w", partition, index, docstore.ErrIndexNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("full-text %s/%s: %w", partition, index, err)
	}

	tokens := parseSearchTerm(term)
	if len(tokens) == 0 {
		return []docstore.Document{}, nil
	}

	var (
		query strings.Builder
		args  = []any{partition}
	)
	query.WriteString(`
		SELECT d.id, d.body FROM documents d
		WHERE d.partition = ? AND d.deleted = 0`)
	for _, tok := range tokens {
		query.WriteString(`
		AND EXISTS (
			SELECT 1 FROM fts_terms t
			WHERE t.partition = d.partition AND t.index_name = ? AND t.doc_id = d.id AND `)
		if tok.prefix {
			query.WriteString(`substr(t.term, 1, length(?)) = ?)`)
			args = append(args, index, tok.text, tok.text)
		} else {
			query.WriteString(`t.term = ?)`)
			args = append(args, index, tok.text)
		}
	}
	query.WriteString(`
		ORDER BY d.seq ASC, d.id COLLATE BINARY ASC`)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("full-text %s/%s: %w", partition, index, err)
	}
	docs, err := scanDocuments(rows)
	if err != nil {
		return nil, fmt.Errorf("full-text %s/%s: %w", partition, index, err)
	}
	if docs == nil {
		docs = []docstore.Document{}
	}
	return docs, nil
}

// refreshTerms replaces the terms of one document under every index of its
// partition.
func refreshTerms(ctx context.Context, tx *sql.Tx, partition, id string, fields ir.IRObject) error {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM fts_terms WHERE partition = ? AND doc_id = ?
	`, partition, id); err != nil {
		return fmt.Errorf("clear terms: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT name, fields FROM fts_indexes WHERE partition = ? ORDER BY name
	`, partition)
	if err != nil {
		return fmt.Errorf("list indexes: %w", err)
	}
	type index struct {
		name   string
		fields []string
	}
	var indexes []index
	for rows.Next() {
		var name, fieldJSON string
		if err := rows.Scan(&name, &fieldJSON); err != nil {
			rows.Close()
			return err
		}
		names, err := unmarshalFieldList(fieldJSON)
		if err != nil {
			rows.Close()
			return err
		}
		indexes = append(indexes, index{name: name, fields: names})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, idx := range indexes {
		if err := insertTerms(ctx, tx, partition, idx.name, id, idx.fields, fields); err != nil {
			return err
		}
	}
	return nil
}

// insertTerms indexes the text fields named in indexed. Non-text and absent
// fields contribute no tokens.
func insertTerms(ctx context.Context, tx *sql.Tx, partition, index, id string, indexed []string, fields ir.IRObject) error {
	var values []string
	for _, name := range indexed {
		if s, ok := fields[name].(ir.IRString); ok {
			values = append(values, string(s))
		}
	}

	for _, tok := range uniqueTokens(values) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO fts_terms (partition, index_name, doc_id, term) VALUES (?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, partition, index, id, tok); err != nil {
			return fmt.Errorf("insert term: %w", err)
		}
	}
	return nil
}
