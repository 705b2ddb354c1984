// Package ingest builds the searchable index from source files: parse a
// file into pages, optionally reformat tables through the LLM, chunk each
// page, embed the chunks and upsert them into the vector store.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"policy-rag/internal/chunker"
	"policy-rag/internal/config"
	"policy-rag/internal/helper"
	"policy-rag/internal/models"
	"policy-rag/internal/parser"
	"policy-rag/internal/vectorstore"
)

// Embedder is the document-side embedding contract.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the subset of the vector index the pipeline writes to.
type Store interface {
	Upsert(ctx context.Context, records []vectorstore.Record) error
	DeleteBook(ctx context.Context, bookID string) error
}

// Reformatter rewrites a page's tables as prose before chunking.
type Reformatter interface {
	ReformatPage(ctx context.Context, pageNumber int, text string) (string, error)
}

type Pipeline struct {
	chunker     *chunker.Chunker
	embedder    Embedder
	store       Store
	reformatter Reformatter
	tableCfg    config.TableConfig
	reformat    bool
}

func NewPipeline(ch *chunker.Chunker, embedder Embedder, store Store, reformatter Reformatter, tableCfg config.TableConfig, reformatTables bool) *Pipeline {
	return &Pipeline{
		chunker:     ch,
		embedder:    embedder,
		store:       store,
		reformatter: reformatter,
		tableCfg:    tableCfg,
		reformat:    reformatTables,
	}
}

// BookID derives the stable book identifier from a file path: the base
// name without its extension.
func BookID(filePath string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IngestFile indexes one source file end to end. Re-running on the same
// file replaces its previous chunks instead of duplicating them. Per-page
// failures degrade (the page is skipped with a warning); embedding and
// upsert failures abort the whole file.
func (p *Pipeline) IngestFile(ctx context.Context, filePath string) (int, error) {
	bookID := BookID(filePath)

	pages, err := parser.Pages(filePath, p.tableCfg)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	if len(pages) == 0 {
		log.Warn().Str("file", filePath).Msg("no extractable text, nothing to index")
		return 0, nil
	}

	var chunks []models.Chunk
	for _, page := range pages {
		if strings.TrimSpace(page.Content) == "" {
			continue
		}

		content := page.Content
		if p.reformat && p.reformatter != nil {
			// Reformat failures fall back to the extracted text.
			content, _ = p.reformatter.ReformatPage(ctx, page.PageNumber, content)
		}

		pageChunks, err := p.chunker.SplitPage(bookID, models.PageText{
			PageNumber: page.PageNumber,
			Content:    content,
		})
		if err != nil {
			log.Warn().Err(err).Int("page", page.PageNumber).Str("book_id", bookID).Msg("skipping page, chunking failed")
			continue
		}
		chunks = append(chunks, pageChunks...)
	}

	if len(chunks) == 0 {
		log.Warn().Str("file", filePath).Msg("no chunks produced, nothing to index")
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed %d chunks of %s: %w", len(chunks), bookID, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedding count mismatch for %s: %d chunks, %d vectors", bookID, len(chunks), len(vectors))
	}

	records := make([]vectorstore.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vectorstore.Record{
			ID:         helper.GenerateUUID(),
			Embedding:  vectors[i],
			Text:       c.Content,
			BookID:     c.BookID,
			PageNumber: c.PageNumber,
			ChunkOrder: c.ChunkOrder,
		}
	}

	if err := p.store.DeleteBook(ctx, bookID); err != nil {
		return 0, fmt.Errorf("failed to clear previous chunks of %s: %w", bookID, err)
	}
	if err := p.store.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to upsert %s: %w", bookID, err)
	}

	log.Info().
		Str("book_id", bookID).
		Int("pages", len(pages)).
		Int("chunks", len(records)).
		Msg("Indexed file")
	return len(records), nil
}
