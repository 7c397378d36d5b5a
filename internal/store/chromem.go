package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"pdfchat/internal/embeddings"
)

const (
	chunksCollection = "chunks"
	metaFilename     = "index_meta.json"
)

// ChromemStore is an embedded vector store backed by chromem-go. With a
// path it persists each record (text, metadata and vector together) to
// disk, so a crash mid-batch leaves a prefix of complete records and the
// similarity index can never reference a vector without its text. With
// an empty path it keeps everything in memory, which tests use.
//
// A RWMutex makes Add and Clear exclusive; Search and Stats block while
// a batch commits and therefore never observe a torn batch.
type ChromemStore struct {
	mu      sync.RWMutex
	db      *chromem.DB
	col     *chromem.Collection
	path    string
	dim     int // 0 until the first chunk is inserted
	nextSeq int
}

// storeMeta is the sidecar record pinning the vector dimensionality and
// the insertion sequence across restarts.
type storeMeta struct {
	Dimension int `json:"dimension"`
	NextSeq   int `json:"next_seq"`
}

// NewChromem opens (or creates) an embedded store at path. An empty
// path creates a volatile in-memory store.
func NewChromem(path string) (*ChromemStore, error) {
	var db *chromem.DB
	var err error
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector store: %w", err)
		}
	}

	col, err := db.GetOrCreateCollection(chunksCollection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk collection: %w", err)
	}

	s := &ChromemStore{db: db, col: col, path: path}
	if err := s.loadMeta(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ChromemStore) Add(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dim
	if dim == 0 {
		dim = len(chunks[0].Vector)
	}
	docs := make([]chromem.Document, 0, len(chunks))
	for i, c := range chunks {
		if len(c.Vector) != dim {
			return fmt.Errorf("add chunk %s: %w: got %d, store holds %d", c.ID, ErrDimensionMismatch, len(c.Vector), dim)
		}
		docs = append(docs, chromem.Document{
			ID:        c.ID.String(),
			Content:   c.Text,
			Embedding: c.Vector,
			Metadata: map[string]string{
				"source": c.SourceFile,
				"page":   strconv.Itoa(c.Page),
				"index":  strconv.Itoa(c.Index),
				"seq":    strconv.Itoa(s.nextSeq + i),
			},
		})
	}

	// Commit the meta record first: a crash here costs sequence numbers,
	// never consistency.
	if err := s.saveMeta(dim, s.nextSeq+len(chunks)); err != nil {
		return err
	}
	if err := s.col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add chunk batch: %w", err)
	}
	s.dim = dim
	s.nextSeq += len(chunks)
	return nil
}

func (s *ChromemStore) Search(ctx context.Context, query embeddings.Vector, k int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dim != 0 && len(query) != s.dim {
		return nil, fmt.Errorf("search: %w: got %d, store holds %d", ErrDimensionMismatch, len(query), s.dim)
	}
	count := s.col.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	raw, err := s.col.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: query,
		NResults:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("similarity query failed: %w", err)
	}

	results := make([]SearchResult, 0, len(raw))
	seqs := make(map[uuid.UUID]int, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("corrupt chunk id %q: %w", r.ID, err)
		}
		page, _ := strconv.Atoi(r.Metadata["page"])
		index, _ := strconv.Atoi(r.Metadata["index"])
		seq, _ := strconv.Atoi(r.Metadata["seq"])
		seqs[id] = seq
		results = append(results, SearchResult{
			Chunk: Chunk{
				ID:         id,
				Text:       r.Content,
				SourceFile: r.Metadata["source"],
				Page:       page,
				Index:      index,
				Vector:     embeddings.Vector(r.Embedding),
			},
			Score: r.Similarity,
		})
	}

	// Descending score; equal scores keep insertion order.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return seqs[results[i].Chunk.ID] < seqs[results[j].Chunk.ID]
	})
	return results, nil
}

func (s *ChromemStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{TotalDocuments: s.col.Count()}, nil
}

func (s *ChromemStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(chunksCollection); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	col, err := s.db.GetOrCreateCollection(chunksCollection, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to recreate chunk collection: %w", err)
	}
	s.col = col
	// An empty store accepts any provider's dimensionality again.
	if err := s.saveMeta(0, 0); err != nil {
		return err
	}
	s.dim = 0
	s.nextSeq = 0
	return nil
}

func (s *ChromemStore) Close() error { return nil }

func (s *ChromemStore) loadMeta() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(s.path, metaFilename))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read store meta: %w", err)
	}
	var meta storeMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("corrupt store meta: %w", err)
	}
	s.dim = meta.Dimension
	s.nextSeq = meta.NextSeq
	return nil
}

func (s *ChromemStore) saveMeta(dim, nextSeq int) error {
	if s.path == "" {
		return nil
	}
	data, err := json.Marshal(storeMeta{Dimension: dim, NextSeq: nextSeq})
	if err != nil {
		return err
	}
	target := filepath.Join(s.path, metaFilename)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store meta: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to commit store meta: %w", err)
	}
	return nil
}
