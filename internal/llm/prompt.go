package llm

import (
	"fmt"
	"strings"
)

const systemPrompt = "You answer questions about the user's documents using only the provided context. " +
	"Cite the source file and page when it helps. " +
	"If the context does not contain the answer, say that the documents do not cover it."

// BuildPrompt renders the retrieved passages with source attribution and
// appends the question. Shared by all providers so swapping backends
// never changes what the model sees.
func BuildPrompt(question string, passages []Passage) string {
	var b strings.Builder
	if len(passages) == 0 {
		b.WriteString("Context: no relevant documents were found.\n")
	} else {
		b.WriteString("Context:\n")
		for _, p := range passages {
			fmt.Fprintf(&b, "[source: %s p.%d]\n%s\n\n", p.Filename, p.Page, strings.TrimSpace(p.Text))
		}
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
