package store

import (
	"bytes"
	"context"
	"fmt"

	"github.com/natefinch/atomic"

	"github.com/Jerry0022/PYCO/internal/ir"
)

// Export writes the live documents of partition to path as canonical JSON
// lines, one {"fields":...,"id":...} object per document, in query order.
// The file is replaced atomically. It returns the number of documents
// written.
func (s *Store) Export(ctx context.Context, partition, path string) (int, error) {
	data, n, err := s.exportLines(ctx, partition)
	if err != nil {
		return 0, err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return 0, fmt.Errorf("export %s: %w", partition, err)
	}
	return n, nil
}

func (s *Store) exportLines(ctx context.Context, partition string) ([]byte, int, error) {
	docs, err := s.Query(ctx, partition)
	if err != nil {
		return nil, 0, fmt.Errorf("export %s: %w", partition, err)
	}

	var buf bytes.Buffer
	for _, doc := range docs {
		line, err := ir.MarshalCanonical(ir.IRObject{
			"id":     ir.IRString(doc.ID),
			"fields": doc.Fields,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("export %s/%s: %w", partition, doc.ID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), len(docs), nil
}
