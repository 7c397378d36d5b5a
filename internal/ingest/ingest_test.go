package ingest

import (
	"errors"
	"testing"
)

func TestExtractEmptyFile(t *testing.T) {
	_, err := Extract(nil, "empty.pdf")
	if err == nil {
		t.Fatal("expected error for empty input")
	}
	if !errors.Is(err, ErrEmptyFile) {
		t.Errorf("expected ErrEmptyFile, got %v", err)
	}

	var fileErr *FileError
	if !errors.As(err, &fileErr) {
		t.Fatal("expected *FileError")
	}
	if fileErr.Filename != "empty.pdf" {
		t.Errorf("expected filename in error, got %q", fileErr.Filename)
	}
}

func TestExtractNotPDF(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"plain text", []byte("just some text, definitely not a pdf")},
		{"truncated header", []byte("%PDF-1.7\n")},
		{"binary garbage", []byte{0x00, 0x01, 0x02, 0xff, 0xfe}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.data, "bad.pdf")
			if err == nil {
				t.Fatal("expected error for non-PDF input")
			}
			if !errors.Is(err, ErrNotPDF) {
				t.Errorf("expected ErrNotPDF, got %v", err)
			}
		})
	}
}

func TestExtractErrorsAreFileErrors(t *testing.T) {
	// Every failure mode must come back as *FileError so batch
	// ingestion can aggregate per-file outcomes.
	for _, data := range [][]byte{nil, []byte("nope")} {
		_, err := Extract(data, "doc.pdf")
		var fileErr *FileError
		if !errors.As(err, &fileErr) {
			t.Errorf("expected *FileError for input %q, got %T", data, err)
		}
	}
}
