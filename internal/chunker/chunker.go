package chunker

import (
	"strings"

	"pdfchat/internal/ingest"
)

// Options controls how text is chunked.
type Options struct {
	Size    int // target chunk size in characters
	Overlap int // characters shared between consecutive chunks
}

// Chunk is a bounded span of document text with the page it starts on.
type Chunk struct {
	Index int
	Text  string
	Page  int
}

const (
	defaultSize    = 1000
	defaultOverlap = 200
)

// Split runs a character sliding window with overlap over the
// concatenated page texts. A chunk may span a page boundary; its Page is
// the page containing the chunk's starting offset.
func Split(pages []ingest.Page, opts Options) []Chunk {
	if opts.Size <= 0 {
		opts.Size = defaultSize
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}
	step := opts.Size - opts.Overlap
	if step <= 0 {
		step = opts.Size
	}

	text, pageAt := flatten(pages)
	if len(text) == 0 {
		return nil
	}

	var chunks []Chunk
	for start := 0; start < len(text); start += step {
		end := start + opts.Size
		if end > len(text) {
			end = len(text)
		}
		segment := string(text[start:end])
		if strings.TrimSpace(segment) != "" {
			chunks = append(chunks, Chunk{
				Index: len(chunks),
				Text:  segment,
				Page:  pageAt(start),
			})
		}
		if end == len(text) {
			break
		}
	}
	return chunks
}

// flatten joins page texts and returns a lookup from rune offset to the
// 1-based page number owning that offset.
func flatten(pages []ingest.Page) ([]rune, func(int) int) {
	var text []rune
	starts := make([]int, 0, len(pages))   // rune offset where each page begins
	numbers := make([]int, 0, len(pages))  // page number for the same slot
	for i, p := range pages {
		if i > 0 {
			text = append(text, '\n')
		}
		starts = append(starts, len(text))
		numbers = append(numbers, p.Number)
		text = append(text, []rune(p.Text)...)
	}

	pageAt := func(offset int) int {
		page := 1
		for i, s := range starts {
			if offset < s {
				break
			}
			page = numbers[i]
		}
		return page
	}
	return text, pageAt
}
