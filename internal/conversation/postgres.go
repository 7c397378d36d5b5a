package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresHistory persists conversations in two tables. Save replaces
// the turn rows of the conversation in one transaction, which makes it
// idempotent: re-saving an unchanged conversation reproduces the same
// rows instead of appending duplicates.
type PostgresHistory struct {
	db *sql.DB
}

// NewPostgresHistory opens the database and runs migrations.
func NewPostgresHistory(dsn string) (*PostgresHistory, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	h := &PostgresHistory{db: db}
	if err := h.migrate(context.Background()); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *PostgresHistory) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id UUID PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS conversation_turns (
			id UUID PRIMARY KEY,
			conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			ord INT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			sources JSONB,
			is_error BOOLEAN NOT NULL DEFAULT FALSE
		);`,
	}
	for _, stmt := range stmts {
		if _, err := h.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (h *PostgresHistory) Save(ctx context.Context, conv Conversation) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations(id, created_at) VALUES($1,$2) ON CONFLICT (id) DO NOTHING`,
		conv.ID, conv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert conversation %s: %w", conv.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM conversation_turns WHERE conversation_id=$1`, conv.ID); err != nil {
		return fmt.Errorf("failed to replace turns for %s: %w", conv.ID, err)
	}
	for i, turn := range conv.Turns {
		sources, err := json.Marshal(turn.Sources)
		if err != nil {
			return fmt.Errorf("failed to encode sources for turn %s: %w", turn.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO conversation_turns(id, conversation_id, ord, role, content, created_at, sources, is_error)
			 VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
			turn.ID, conv.ID, i, turn.Role, turn.Content, turn.CreatedAt, sources, turn.IsError)
		if err != nil {
			return fmt.Errorf("failed to insert turn %s: %w", turn.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit conversation %s: %w", conv.ID, err)
	}
	return nil
}

func (h *PostgresHistory) Load(ctx context.Context, id uuid.UUID) (Conversation, error) {
	conv := Conversation{ID: id}
	err := h.db.QueryRowContext(ctx,
		`SELECT created_at FROM conversations WHERE id=$1`, id).Scan(&conv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT id, role, content, created_at, sources, is_error
		 FROM conversation_turns WHERE conversation_id=$1 ORDER BY ord`, id)
	if err != nil {
		return Conversation{}, fmt.Errorf("failed to load turns for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var turn Turn
		var sources []byte
		if err := rows.Scan(&turn.ID, &turn.Role, &turn.Content, &turn.CreatedAt, &sources, &turn.IsError); err != nil {
			return Conversation{}, fmt.Errorf("failed to scan turn: %w", err)
		}
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &turn.Sources); err != nil {
				return Conversation{}, fmt.Errorf("corrupt sources for turn %s: %w", turn.ID, err)
			}
		}
		conv.Turns = append(conv.Turns, turn)
	}
	return conv, rows.Err()
}

func (h *PostgresHistory) Close() error { return h.db.Close() }
