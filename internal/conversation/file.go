package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FileHistory persists each conversation as one JSON file. Writes go to
// a temp file and are renamed into place, so a snapshot is either the
// old one or the new one, never a torn write, and re-saving an
// unchanged conversation rewrites the same bytes.
type FileHistory struct {
	dir string
}

// NewFileHistory creates the directory if needed.
func NewFileHistory(dir string) (*FileHistory, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create conversation dir: %w", err)
	}
	return &FileHistory{dir: dir}, nil
}

func (h *FileHistory) Save(ctx context.Context, conv Conversation) error {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode conversation %s: %w", conv.ID, err)
	}
	target := h.path(conv.ID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write conversation %s: %w", conv.ID, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to commit conversation %s: %w", conv.ID, err)
	}
	return nil
}

func (h *FileHistory) Load(ctx context.Context, id uuid.UUID) (Conversation, error) {
	data, err := os.ReadFile(h.path(id))
	if os.IsNotExist(err) {
		return Conversation{}, ErrNotFound
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("failed to read conversation %s: %w", id, err)
	}
	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return Conversation{}, fmt.Errorf("corrupt conversation %s: %w", id, err)
	}
	return conv, nil
}

func (h *FileHistory) Close() error { return nil }

func (h *FileHistory) path(id uuid.UUID) string {
	return filepath.Join(h.dir, id.String()+".json")
}
