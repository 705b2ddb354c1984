// Package chunker splits page text into overlapping bounded-size chunks.
// Splitting is recursive over a separator hierarchy (paragraph break, line
// break, space, character) so chunk boundaries land on the largest
// structural break that keeps each chunk within the size bound.
package chunker

import (
	"github.com/tmc/langchaingo/textsplitter"

	"policy-rag/internal/models"
)

// separators is the split priority: paragraph break, line break, word
// boundary, then raw characters when nothing else fits.
var separators = []string{"\n\n", "\n", " ", ""}

type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

func New(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(separators),
		),
	}
}

// SplitPage chunks one page's text. ChunkOrder starts at 0 on every page
// and follows the order of appearance in the source text; a chunk never
// spans two pages.
func (c *Chunker) SplitPage(bookID string, page models.PageText) ([]models.Chunk, error) {
	pieces, err := c.splitter.SplitText(page.Content)
	if err != nil {
		return nil, err
	}

	chunks := make([]models.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, models.Chunk{
			Content:    piece,
			BookID:     bookID,
			PageNumber: page.PageNumber,
			ChunkOrder: i,
		})
	}
	return chunks, nil
}
