// Package chat orchestrates the document-to-answer pipeline: ingestion
// (extract, chunk, embed, store) and querying (embed, search, generate,
// record).
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pdfchat/internal/cache"
	"pdfchat/internal/chunker"
	"pdfchat/internal/conversation"
	"pdfchat/internal/embeddings"
	"pdfchat/internal/events"
	"pdfchat/internal/ingest"
	"pdfchat/internal/llm"
	"pdfchat/internal/store"
)

// State reflects where the session currently is. The session rests in
// StateReady; ProcessFiles and Answer move it into a transient state and
// always move it back, on success and on failure alike.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateReady         State = "ready"
	StateIngesting     State = "ingesting"
	StateQuerying      State = "querying"
)

const (
	// noDocumentsResponse is returned without calling the model when the
	// store has nothing to retrieve.
	noDocumentsResponse = "No documents have been ingested yet. Upload one or more PDFs and ask again."

	// failureResponse is the safe fallback recorded when any stage of
	// the answer pipeline fails.
	failureResponse = "Sorry, I could not generate an answer right now. Please try again."

	excerptLength     = 150
	ingestConcurrency = 4
)

// Options tunes the pipeline. Zero values fall back to the defaults the
// chunker and retrieval use.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	CacheTTL     time.Duration
}

// File is one uploaded document.
type File struct {
	Name string
	Data []byte
}

// FileResult is a successful per-file ingestion outcome.
type FileResult struct {
	Filename string `json:"filename"`
	Pages    int    `json:"pages"`
	Chunks   int    `json:"chunks"`
}

// FileFailure is a failed per-file ingestion outcome.
type FileFailure struct {
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// BatchResult aggregates a multi-file ingestion call. Partial failure is
// expected: Success and Failures partition the input files.
type BatchResult struct {
	Success  []FileResult  `json:"success"`
	Failures []FileFailure `json:"errors"`
}

// RetrievedDoc is one retrieved chunk returned alongside an answer.
type RetrievedDoc struct {
	Document string    `json:"document"`
	Metadata ChunkMeta `json:"metadata"`
	Score    float32   `json:"similarity"`
}

// ChunkMeta locates a retrieved chunk in its source document.
type ChunkMeta struct {
	ChunkID  string `json:"chunk_id"`
	Filename string `json:"filename"`
	Page     int    `json:"page"`
}

// Reply is the outcome of one question. Err marks pipeline failures that
// were converted into a fallback response; the session stays usable.
type Reply struct {
	Response string         `json:"response"`
	Sources  []RetrievedDoc `json:"similar_documents"`
	Err      bool           `json:"error"`
}

// Service is the explicit session object tying the pipeline together.
// It holds no persistent state of its own and is reconstructible from
// store and conversation contents. Calls on one Service are serialized;
// the store tolerates concurrent use across services.
type Service struct {
	log      *slog.Logger
	store    store.Store
	embedder embeddings.Embedder
	llm      llm.Client
	conv     *conversation.Manager
	cache    cache.Cache
	events   events.Publisher
	extract  func(data []byte, filename string) (ingest.Document, error)
	opts     Options

	mu    sync.Mutex
	state State
}

// New wires a session. All collaborators are required except cache and
// events, which default to no-ops.
func New(log *slog.Logger, st store.Store, embedder embeddings.Embedder, client llm.Client,
	conv *conversation.Manager, answerCache cache.Cache, publisher events.Publisher, opts Options) (*Service, error) {

	if log == nil || st == nil || embedder == nil || client == nil || conv == nil {
		return nil, errors.New("store, embedder, llm and conversation manager are required")
	}
	if answerCache == nil {
		answerCache = cache.NewNoOpCache()
	}
	if publisher == nil {
		publisher = events.NewNoOpPublisher()
	}
	if opts.TopK <= 0 {
		opts.TopK = 4
	}
	return &Service{
		log:      log,
		store:    st,
		embedder: embedder,
		llm:      client,
		conv:     conv,
		cache:    answerCache,
		events:   publisher,
		extract:  ingest.Extract,
		opts:     opts,
		state:    StateReady,
	}, nil
}

// State reports the session state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Service) enter(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// ProcessFiles ingests a batch of PDFs. Files are processed with bounded
// concurrency and each commits its own chunk batch, so one file's
// failure never blocks the others and a cancelled batch keeps the files
// already committed.
func (s *Service) ProcessFiles(ctx context.Context, files []File) BatchResult {
	s.enter(StateIngesting)
	defer s.enter(StateReady)

	var (
		mu     sync.Mutex
		result BatchResult
	)
	g := new(errgroup.Group)
	g.SetLimit(ingestConcurrency)

	for _, f := range files {
		f := f
		g.Go(func() error {
			res, err := s.processOne(ctx, f)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.Warn("file ingestion failed", "filename", f.Name, "err", err)
				result.Failures = append(result.Failures, FileFailure{Filename: f.Name, Message: err.Error()})
				return nil
			}
			result.Success = append(result.Success, res)
			return nil
		})
	}
	_ = g.Wait()

	if len(result.Success) > 0 {
		s.documentSetChanged(ctx)
		for _, res := range result.Success {
			s.publish(ctx, events.Event{
				Type:     events.TypeDocumentIngested,
				Filename: res.Filename,
				Chunks:   res.Chunks,
			})
		}
	}
	return result
}

func (s *Service) processOne(ctx context.Context, f File) (FileResult, error) {
	doc, err := s.extract(f.Data, f.Name)
	if err != nil {
		return FileResult{}, err
	}

	chunks := chunker.Split(doc.Pages, chunker.Options{Size: s.opts.ChunkSize, Overlap: s.opts.ChunkOverlap})
	if len(chunks) == 0 {
		return FileResult{}, &ingest.FileError{Filename: f.Name, Err: ingest.ErrNoText}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return FileResult{}, fmt.Errorf("failed to embed %q: %w", f.Name, err)
	}
	if len(vectors) != len(chunks) {
		return FileResult{}, fmt.Errorf("embedding %q: got %d vectors for %d chunks", f.Name, len(vectors), len(chunks))
	}

	records := make([]store.Chunk, len(chunks))
	for i, c := range chunks {
		records[i] = store.Chunk{
			ID:         uuid.New(),
			Text:       c.Text,
			SourceFile: f.Name,
			Page:       c.Page,
			Index:      c.Index,
			Vector:     vectors[i],
		}
	}
	if err := s.store.Add(ctx, records); err != nil {
		return FileResult{}, fmt.Errorf("failed to store %q: %w", f.Name, err)
	}

	return FileResult{Filename: f.Name, Pages: doc.PageCount, Chunks: len(records)}, nil
}

// Answer runs the query pipeline and records both the user turn and the
// assistant turn before returning. Pipeline failures come back as a
// Reply with Err set and a matching error turn in the conversation;
// the only error returned directly is ErrNoActiveConversation.
func (s *Service) Answer(ctx context.Context, question string) (Reply, error) {
	s.enter(StateQuerying)
	defer s.enter(StateReady)

	if err := s.conv.Record(conversation.Turn{Role: conversation.RoleUser, Content: question}); err != nil {
		return Reply{}, err
	}

	key := cache.Key(question, s.opts.TopK)
	if cached, err := s.cache.Get(ctx, key); err == nil && cached != nil {
		s.log.Info("answer cache hit", "question", question)
		return s.finish(repliedFromCache(cached)), nil
	} else if err != nil {
		s.log.Warn("answer cache read failed", "err", err)
	}

	vectors, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return s.fail("failed to embed question", err), nil
	}

	results, err := s.store.Search(ctx, vectors[0], s.opts.TopK)
	if err != nil {
		return s.fail("similarity search failed", err), nil
	}
	if len(results) == 0 {
		reply := Reply{Response: noDocumentsResponse}
		return s.finish(reply), nil
	}

	passages := make([]llm.Passage, len(results))
	for i, r := range results {
		passages[i] = llm.Passage{Text: r.Chunk.Text, Filename: r.Chunk.SourceFile, Page: r.Chunk.Page}
	}
	answer, err := s.llm.Generate(ctx, question, passages)
	if err != nil {
		return s.fail("generation failed", err), nil
	}

	reply := Reply{Response: answer, Sources: retrievedDocs(results)}
	if err := s.cache.Set(ctx, key, &cache.Answer{
		Response: reply.Response,
		Sources:  sourcesOf(reply.Sources),
	}, s.opts.CacheTTL); err != nil {
		s.log.Warn("failed to cache answer", "err", err)
	}
	return s.finish(reply), nil
}

// finish records the assistant turn for a successful reply.
func (s *Service) finish(reply Reply) Reply {
	turn := conversation.Turn{
		Role:    conversation.RoleAssistant,
		Content: reply.Response,
		Sources: sourcesOf(reply.Sources),
	}
	if err := s.conv.Record(turn); err != nil {
		s.log.Error("failed to record assistant turn", "err", err)
	}
	return reply
}

// fail logs the cause, records an error turn so the history keeps a
// complete audit trail, and returns the safe fallback reply.
func (s *Service) fail(message string, cause error) Reply {
	s.log.Error(message, "err", cause)
	turn := conversation.Turn{
		Role:    conversation.RoleAssistant,
		Content: failureResponse,
		IsError: true,
	}
	if err := s.conv.Record(turn); err != nil {
		s.log.Error("failed to record error turn", "err", err)
	}
	return Reply{Response: failureResponse, Err: true}
}

// Stats returns a live count of stored chunks.
func (s *Service) Stats(ctx context.Context) (store.Stats, error) {
	return s.store.Stats(ctx)
}

// Clear empties the document store. The boolean result lets a UI present
// clearing as a retryable action.
func (s *Service) Clear(ctx context.Context) bool {
	if err := s.store.Clear(ctx); err != nil {
		s.log.Error("failed to clear store", "err", err)
		return false
	}
	s.documentSetChanged(ctx)
	s.publish(ctx, events.Event{Type: events.TypeStoreCleared})
	return true
}

// StartConversation activates a fresh conversation and returns its id.
func (s *Service) StartConversation() uuid.UUID {
	return s.conv.StartNew()
}

// SaveConversation persists the active conversation's full history.
func (s *Service) SaveConversation(ctx context.Context) error {
	return s.conv.Save(ctx)
}

// RecentMessages returns up to n most recent turns, oldest first.
func (s *Service) RecentMessages(n int) []conversation.Turn {
	return s.conv.Recent(n)
}

// Close releases the session's external connections.
func (s *Service) Close() error {
	var errs []error
	if err := s.cache.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.events.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Service) documentSetChanged(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("failed to invalidate answer cache", "err", err)
	}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish event", "type", event.Type, "err", err)
	}
}

func repliedFromCache(cached *cache.Answer) Reply {
	sources := make([]RetrievedDoc, len(cached.Sources))
	for i, src := range cached.Sources {
		sources[i] = RetrievedDoc{
			Document: src.Excerpt,
			Metadata: ChunkMeta{ChunkID: src.ChunkID, Filename: src.Filename, Page: src.Page},
			Score:    src.Score,
		}
	}
	return Reply{Response: cached.Response, Sources: sources}
}

func retrievedDocs(results []store.SearchResult) []RetrievedDoc {
	docs := make([]RetrievedDoc, len(results))
	for i, r := range results {
		docs[i] = RetrievedDoc{
			Document: r.Chunk.Text,
			Metadata: ChunkMeta{ChunkID: r.Chunk.ID.String(), Filename: r.Chunk.SourceFile, Page: r.Chunk.Page},
			Score:    r.Score,
		}
	}
	return docs
}

func sourcesOf(docs []RetrievedDoc) []conversation.Source {
	if len(docs) == 0 {
		return nil
	}
	sources := make([]conversation.Source, len(docs))
	for i, d := range docs {
		sources[i] = conversation.Source{
			ChunkID:  d.Metadata.ChunkID,
			Filename: d.Metadata.Filename,
			Page:     d.Metadata.Page,
			Score:    d.Score,
			Excerpt:  truncate(d.Document, excerptLength),
		}
	}
	return sources
}

// truncate limits text to maxLen characters, cutting at a word boundary.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if idx := strings.LastIndex(s[:maxLen], " "); idx > 0 {
		return s[:idx] + "..."
	}
	return s[:maxLen] + "..."
}
