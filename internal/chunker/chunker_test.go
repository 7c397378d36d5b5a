package chunker

import (
	"strings"
	"testing"

	"pdfchat/internal/ingest"
)

func onePage(text string) []ingest.Page {
	return []ingest.Page{{Number: 1, Text: text}}
}

func TestSplitWindowAndOverlap(t *testing.T) {
	// 500 characters at size 200 / overlap 50 must yield exactly 3 chunks:
	// [0,200), [150,350), [300,500).
	text := strings.Repeat("abcde", 100)
	chunks := Split(onePage(text), Options{Size: 200, Overlap: 50})

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0].Text) != 200 {
		t.Errorf("expected first chunk of 200 chars, got %d", len(chunks[0].Text))
	}
	if chunks[2].Text[len(chunks[2].Text)-1] != text[len(text)-1] {
		t.Error("expected last chunk to end at the end of the text")
	}
	// Consecutive chunks share the configured overlap.
	if !strings.HasPrefix(chunks[1].Text, chunks[0].Text[150:]) {
		t.Error("expected 50-char overlap between chunk 0 and chunk 1")
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("expected index %d, got %d", i, c.Index)
		}
	}
}

func TestSplitEmptyInput(t *testing.T) {
	if got := Split(nil, Options{Size: 100}); len(got) != 0 {
		t.Errorf("expected 0 chunks for no pages, got %d", len(got))
	}
	if got := Split(onePage(""), Options{Size: 100}); len(got) != 0 {
		t.Errorf("expected 0 chunks for empty page, got %d", len(got))
	}
}

func TestSplitShortText(t *testing.T) {
	chunks := Split(onePage("short"), Options{Size: 100, Overlap: 10})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "short" {
		t.Errorf("expected chunk to carry the full text, got %q", chunks[0].Text)
	}
}

func TestSplitPageAttribution(t *testing.T) {
	pages := []ingest.Page{
		{Number: 1, Text: strings.Repeat("a", 100)},
		{Number: 3, Text: strings.Repeat("b", 100)}, // page 2 had no text
	}
	chunks := Split(pages, Options{Size: 80, Overlap: 0})

	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	if chunks[0].Page != 1 {
		t.Errorf("expected chunk 0 on page 1, got %d", chunks[0].Page)
	}
	// A chunk starting inside page 1 keeps page 1 even if it spans into
	// the next page.
	if chunks[1].Page != 1 {
		t.Errorf("expected chunk 1 to start on page 1, got %d", chunks[1].Page)
	}
	last := chunks[len(chunks)-1]
	if last.Page != 3 {
		t.Errorf("expected last chunk on page 3, got %d", last.Page)
	}
}

func TestSplitDefaults(t *testing.T) {
	text := strings.Repeat("word ", 600)
	chunks := Split(onePage(text), Options{})

	if len(chunks) == 0 {
		t.Fatal("expected chunks with default options")
	}
	for _, c := range chunks {
		if len([]rune(c.Text)) > defaultSize {
			t.Errorf("chunk exceeded default size (%d): got %d", defaultSize, len(c.Text))
		}
	}
}

func TestSplitWhitespaceOnlyChunksDropped(t *testing.T) {
	text := "abc" + strings.Repeat(" ", 50)
	chunks := Split(onePage(text), Options{Size: 10, Overlap: 0})
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			t.Error("expected whitespace-only chunks to be dropped")
		}
	}
}
