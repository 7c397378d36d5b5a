package conversation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/mock"
)

func fileManager(t *testing.T) (*Manager, *FileHistory) {
	t.Helper()
	hist, err := NewFileHistory(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create history: %v", err)
	}
	return NewManager(hist), hist
}

func TestRecordRequiresActiveConversation(t *testing.T) {
	m, _ := fileManager(t)

	err := m.Record(Turn{Role: RoleUser, Content: "hello"})
	if !errors.Is(err, ErrNoActiveConversation) {
		t.Errorf("expected ErrNoActiveConversation, got %v", err)
	}
	if err := m.Save(context.Background()); !errors.Is(err, ErrNoActiveConversation) {
		t.Errorf("expected ErrNoActiveConversation on save, got %v", err)
	}
}

func TestRecordAndRecent(t *testing.T) {
	m, _ := fileManager(t)
	m.StartNew()

	contents := []string{"one", "two", "three", "four"}
	for i, c := range contents {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		if err := m.Record(Turn{Role: role, Content: c}); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	recent := m.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(recent))
	}
	if recent[0].Content != "three" || recent[1].Content != "four" {
		t.Errorf("expected last two turns in order, got %q, %q", recent[0].Content, recent[1].Content)
	}

	// Asking for more than exists returns all of them.
	if got := m.Recent(10); len(got) != len(contents) {
		t.Errorf("expected %d turns, got %d", len(contents), len(got))
	}
	if got := m.Recent(0); got != nil {
		t.Errorf("expected nil for n=0, got %v", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, hist := fileManager(t)
	id := m.StartNew()

	turns := []Turn{
		{Role: RoleUser, Content: "what is in the report?"},
		{Role: RoleAssistant, Content: "the report covers Q3", Sources: []Source{
			{ChunkID: "c1", Filename: "report.pdf", Page: 12, Score: 0.83, Excerpt: "Q3 results..."},
		}},
		{Role: RoleAssistant, Content: "something went wrong", IsError: true},
	}
	for _, turn := range turns {
		if err := m.Record(turn); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}
	if err := m.Save(ctx); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := hist.Load(ctx, id)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.ID != id {
		t.Errorf("expected conversation id %s, got %s", id, loaded.ID)
	}
	if len(loaded.Turns) != len(turns) {
		t.Fatalf("expected %d turns, got %d", len(turns), len(loaded.Turns))
	}
	for i, turn := range loaded.Turns {
		if turn.Role != turns[i].Role || turn.Content != turns[i].Content || turn.IsError != turns[i].IsError {
			t.Errorf("turn %d did not round trip: %+v", i, turn)
		}
	}
	if !reflect.DeepEqual(loaded.Turns[1].Sources, turns[1].Sources) {
		t.Errorf("sources did not round trip: %+v", loaded.Turns[1].Sources)
	}
}

func TestSaveIdempotent(t *testing.T) {
	ctx := context.Background()
	hist, err := NewFileHistory(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create history: %v", err)
	}
	m := NewManager(hist)
	id := m.StartNew()
	if err := m.Record(Turn{Role: RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	if err := m.Save(ctx); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	first, err := os.ReadFile(filepath.Join(hist.dir, id.String()+".json"))
	if err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}

	if err := m.Save(ctx); err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(hist.dir, id.String()+".json"))
	if err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}
	if string(first) != string(second) {
		t.Error("expected identical persisted state after saving twice without new turns")
	}
}

func TestSaveFailureKeepsTurns(t *testing.T) {
	hist := new(MockHistory)
	hist.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	m := NewManager(hist)
	m.StartNew()
	if err := m.Record(Turn{Role: RoleUser, Content: "keep me"}); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	if err := m.Save(context.Background()); err == nil {
		t.Fatal("expected save to fail")
	}
	recent := m.Recent(1)
	if len(recent) != 1 || recent[0].Content != "keep me" {
		t.Error("expected in-memory turns to survive a failed save")
	}
	hist.AssertExpectations(t)
}

func TestStartNewDiscardsUnsavedTurns(t *testing.T) {
	ctx := context.Background()
	m, hist := fileManager(t)

	firstID := m.StartNew()
	if err := m.Record(Turn{Role: RoleUser, Content: "saved turn"}); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := m.Save(ctx); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := m.Record(Turn{Role: RoleUser, Content: "unsaved turn"}); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	secondID := m.StartNew()
	if secondID == firstID {
		t.Error("expected a fresh conversation id")
	}
	if got := m.Recent(10); len(got) != 0 {
		t.Errorf("expected empty new conversation, got %d turns", len(got))
	}

	// The saved snapshot of the first conversation is untouched.
	loaded, err := hist.Load(ctx, firstID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.Turns) != 1 || loaded.Turns[0].Content != "saved turn" {
		t.Errorf("expected saved snapshot intact, got %+v", loaded.Turns)
	}
}

func TestLoadUnknownConversation(t *testing.T) {
	m, hist := fileManager(t)
	id := m.StartNew()
	m.StartNew()

	_, err := hist.Load(context.Background(), id)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for never-saved conversation, got %v", err)
	}
}
