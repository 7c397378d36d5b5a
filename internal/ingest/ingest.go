// Package ingest extracts per-page text from uploaded PDF documents.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrEmptyFile is returned for zero-length uploads.
	ErrEmptyFile = errors.New("file is empty")
	// ErrNotPDF is returned when the bytes are not a parseable PDF.
	ErrNotPDF = errors.New("not a parseable PDF")
	// ErrNoText is returned when no page yields extractable text,
	// e.g. scanned images or fully encrypted content.
	ErrNoText = errors.New("no extractable text")
)

// FileError wraps an ingestion failure with the offending filename.
// One file failing must never abort the rest of a batch, so callers
// collect these instead of propagating them.
type FileError struct {
	Filename string
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Page is the extracted plain text of a single PDF page.
// Number is 1-based and refers to the page's position in the original file.
type Page struct {
	Number int
	Text   string
}

// Document is the extraction result for one file. Pages holds only pages
// with extractable text; PageCount is the total page count of the PDF.
type Document struct {
	Filename  string
	PageCount int
	Pages     []Page
}

// Extract parses a PDF and returns per-page plain text. Pages with no
// extractable text are skipped, not errors. All failures come back as a
// *FileError so batch callers can aggregate them.
func Extract(data []byte, filename string) (Document, error) {
	if len(data) == 0 {
		return Document{}, &FileError{Filename: filename, Err: ErrEmptyFile}
	}

	doc, err := extract(data, filename)
	if err != nil {
		return Document{}, &FileError{Filename: filename, Err: err}
	}
	if len(doc.Pages) == 0 {
		return Document{}, &FileError{Filename: filename, Err: ErrNoText}
	}
	return doc, nil
}

func extract(data []byte, filename string) (doc Document, err error) {
	// The pdf reader panics on some malformed inputs; keep that inside
	// this package so a corrupt upload cannot take the session down.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrNotPDF, rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}

	doc = Document{Filename: filename, PageCount: reader.NumPage()}
	for pageNum := 1; pageNum <= doc.PageCount; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		doc.Pages = append(doc.Pages, Page{Number: pageNum, Text: text})
	}
	return doc, nil
}
