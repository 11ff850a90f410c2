package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// vectorStore implements driven.VectorStore with an exhaustive cosine
// scan over the chunks table.
type vectorStore struct {
	store *Store
}

var _ driven.VectorStore = (*vectorStore)(nil)

// Upsert inserts or replaces chunks in a single transaction.
func (v *vectorStore) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	info, err := v.Describe(ctx)
	if err != nil {
		return err
	}
	if err := validateChunks(info, chunks); err != nil {
		return err
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := upsertChunks(ctx, tx, chunks); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}
	return nil
}

func validateChunks(info domain.IndexInfo, chunks []domain.Chunk) error {
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding: %w", c.ID, domain.ErrInvalidInput)
		}
		if info.Dimensions > 0 && len(c.Embedding) != info.Dimensions {
			return fmt.Errorf("chunk %s has %d dimensions, index has %d: %w",
				c.ID, len(c.Embedding), info.Dimensions, domain.ErrInvalidInput)
		}
	}
	return nil
}

func upsertChunks(ctx context.Context, tx *sql.Tx, chunks []domain.Chunk) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, chunk_index, content, content_hash, page,
			document_type, embedding, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			chunk_index = excluded.chunk_index,
			content = excluded.content,
			content_hash = excluded.content_hash,
			page = excluded.page,
			document_type = excluded.document_type,
			embedding = excluded.embedding,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		metadataJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.Index, c.Content, c.ContentHash, c.Page,
			c.Metadata[domain.SourcingDocumentType], float32SliceToBytes(c.Embedding), string(metadataJSON)); err != nil {
			return fmt.Errorf("saving chunk %s: %w", c.ID, err)
		}
	}
	return nil
}

// Query scores every stored chunk and returns the topK best.
func (v *vectorStore) Query(ctx context.Context, embedding []float32, topK int) ([]domain.VectorHit, error) {
	if topK <= 0 {
		return nil, nil
	}

	rows, err := v.store.db.QueryContext(ctx, `
		SELECT id, document_id, chunk_index, content, content_hash, page, embedding, metadata
		FROM chunks
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var hits []domain.VectorHit
	for rows.Next() {
		var c domain.Chunk
		var blob []byte
		var metadataJSON string
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Content, &c.ContentHash, &c.Page,
			&blob, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
		hits = append(hits, domain.VectorHit{
			Chunk: c,
			Score: domain.CosineSimilarity(embedding, bytesToFloat32Slice(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Delete removes chunks by ID in a single transaction.
func (v *vectorStore) Delete(ctx context.Context, chunkIDs ...string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, id := range chunkIDs {
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting chunk %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// ChunkIDs returns the chunk IDs of a document ordered by index.
func (v *vectorStore) ChunkIDs(ctx context.Context, documentID string) ([]string, error) {
	rows, err := v.store.db.QueryContext(ctx,
		"SELECT id FROM chunks WHERE document_id = ? ORDER BY chunk_index", documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunk ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Describe returns the binding, or a zero IndexInfo when unbound.
func (v *vectorStore) Describe(ctx context.Context) (domain.IndexInfo, error) {
	var info domain.IndexInfo
	err := v.store.db.QueryRowContext(ctx, "SELECT model, dimensions FROM index_meta WHERE id = 1").
		Scan(&info.Model, &info.Dimensions)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.IndexInfo{}, nil
	}
	if err != nil {
		return domain.IndexInfo{}, fmt.Errorf("reading index binding: %w", err)
	}
	return info, nil
}

// Bind records the embedding model. An index holding chunks of another
// model fails with domain.ErrModelMismatch; an empty index is rebound.
func (v *vectorStore) Bind(ctx context.Context, info domain.IndexInfo) error {
	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var current domain.IndexInfo
	err = tx.QueryRowContext(ctx, "SELECT model, dimensions FROM index_meta WHERE id = 1").
		Scan(&current.Model, &current.Dimensions)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("reading index binding: %w", err)
	case current == info:
		return nil
	default:
		var chunks int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&chunks); err != nil {
			return fmt.Errorf("counting chunks: %w", err)
		}
		if chunks > 0 {
			return fmt.Errorf("%w: index holds %s (%d), requested %s (%d)",
				domain.ErrModelMismatch, current.Model, current.Dimensions, info.Model, info.Dimensions)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO index_meta (id, model, dimensions) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET model = excluded.model, dimensions = excluded.dimensions
	`, info.Model, info.Dimensions); err != nil {
		return fmt.Errorf("saving index binding: %w", err)
	}
	return tx.Commit()
}

// Stats counts chunks and documents, and documents per type.
func (v *vectorStore) Stats(ctx context.Context) (domain.IndexStats, error) {
	stats := domain.IndexStats{ByType: make(map[domain.DocumentType]int)}
	if err := v.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT document_id) FROM chunks").
		Scan(&stats.Chunks, &stats.Documents); err != nil {
		return stats, fmt.Errorf("counting chunks: %w", err)
	}

	// A document's type is taken from its lowest-index chunk.
	rows, err := v.store.db.QueryContext(ctx, `
		SELECT document_type, COUNT(*) FROM (
			SELECT document_id, document_type,
				ROW_NUMBER() OVER (PARTITION BY document_id ORDER BY chunk_index) AS rn
			FROM chunks
		) WHERE rn = 1 GROUP BY document_type
	`)
	if err != nil {
		return stats, fmt.Errorf("counting document types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var docType string
		var n int
		if err := rows.Scan(&docType, &n); err != nil {
			return stats, fmt.Errorf("scanning document type: %w", err)
		}
		t := domain.DocumentType(docType)
		if t == "" {
			t = domain.DocumentTypeOther
		}
		stats.ByType[t] += n
	}
	return stats, rows.Err()
}

// Close is a no-op; the Store owns the connection.
func (v *vectorStore) Close() error {
	return nil
}
