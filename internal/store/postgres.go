package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"pdfchat/internal/embeddings"
)

// PostgresStore keeps chunks in a pgvector table. The vector column has
// a fixed dimensionality chosen at migration time, so the provider-swap
// policy is enforced by the schema: inserts and searches with another
// dimensionality fail fast with ErrDimensionMismatch.
//
// Adds run in a transaction, so concurrent readers see either the whole
// batch or none of it.
type PostgresStore struct {
	db  *sql.DB
	dim int
}

// NewPostgres opens the database and runs migrations.
func NewPostgres(dsn string, dim int) (*PostgresStore, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db, dim: dim}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id UUID PRIMARY KEY,
			seq BIGSERIAL,
			source_file TEXT NOT NULL,
			page INT NOT NULL,
			ord INT NOT NULL,
			text TEXT NOT NULL,
			vector vector(%d) NOT NULL
		);`, s.dim),
		`CREATE INDEX IF NOT EXISTS chunks_vector_idx
			ON chunks USING ivfflat (vector vector_cosine_ops)
			WITH (lists = 100);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Add(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for _, c := range chunks {
		if len(c.Vector) != s.dim {
			return fmt.Errorf("add chunk %s: %w: got %d, store holds %d", c.ID, ErrDimensionMismatch, len(c.Vector), s.dim)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin chunk batch: %w", err)
	}
	defer tx.Rollback()

	for _, c := range chunks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chunks(id, source_file, page, ord, text, vector) VALUES($1,$2,$3,$4,$5,$6::vector)`,
			c.ID, c.SourceFile, c.Page, c.Index, c.Text, vectorToString(c.Vector))
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunk batch: %w", err)
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, query embeddings.Vector, k int) ([]SearchResult, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("search: %w: got %d, store holds %d", ErrDimensionMismatch, len(query), s.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	// pgvector's cosine distance d maps to cosine similarity 1-d, so the
	// reported score stays in [-1, 1] like the chromem store. seq keeps
	// equal-distance rows in insertion order.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_file, page, ord, text, 1 - (vector <=> $1::vector) AS similarity
		FROM chunks
		ORDER BY vector <=> $1::vector, seq
		LIMIT $2
	`, vectorToString(query), k)
	if err != nil {
		return nil, fmt.Errorf("similarity query failed: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			id         uuid.UUID
			sourceFile string
			page       int
			ord        int
			text       string
			similarity float32
		)
		if err := rows.Scan(&id, &sourceFile, &page, &ord, &text, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, SearchResult{
			Chunk: Chunk{
				ID:         id,
				Text:       text,
				SourceFile: sourceFile,
				Page:       page,
				Index:      ord,
			},
			Score: similarity,
		})
	}
	return results, rows.Err()
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM chunks`).Scan(&count); err != nil {
		return Stats{}, fmt.Errorf("failed to count chunks: %w", err)
	}
	return Stats{TotalDocuments: count}, nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `TRUNCATE chunks`); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

// vectorToString converts a Vector ([]float32) to pgvector array format.
// Format: "[0.1,0.2,0.3,...]"
func vectorToString(v embeddings.Vector) string {
	if len(v) == 0 {
		return "[]"
	}
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = strconv.FormatFloat(float64(val), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
