// Package vectorstore wraps the chromem-go vector database behind the
// operations the ingestion pipeline and retriever need: batch upsert,
// nearest-neighbor search and exact metadata-filter lookup.
package vectorstore

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"policy-rag/internal/config"
	"policy-rag/internal/models"
)

// Record is one chunk to persist: id, vector and the metadata that the
// retriever later needs to regroup chunks by page.
type Record struct {
	ID         string
	Embedding  []float32
	Text       string
	BookID     string
	PageNumber int
	ChunkOrder int
}

// Match is one raw nearest-neighbor result.
type Match struct {
	ID         string
	Similarity float32
	Text       string
	BookID     string
	PageNumber int
	ChunkOrder int
}

type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	dim        int
	batchSize  int
}

// New opens (or creates) the vector database and its collection. The
// embedding dimension is needed for the probe vector used by exact-filter
// lookups.
func New(cfg config.VectorDBConfig, dim, batchSize int) (*Store, error) {
	var db *chromem.DB
	var err error
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to create vector database: %w", err)
		}
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}

	if batchSize <= 0 {
		batchSize = 50
	}
	return &Store{db: db, collection: collection, dim: dim, batchSize: batchSize}, nil
}

// Upsert writes records in fixed-size batches. A failing batch aborts the
// remaining ones; batches already written are not rolled back.
func (s *Store) Upsert(ctx context.Context, records []Record) error {
	for start := 0; start < len(records); start += s.batchSize {
		end := start + s.batchSize
		if end > len(records) {
			end = len(records)
		}
		docs := make([]chromem.Document, 0, end-start)
		for _, r := range records[start:end] {
			docs = append(docs, chromem.Document{
				ID:        r.ID,
				Content:   r.Text,
				Embedding: r.Embedding,
				Metadata: map[string]string{
					models.MetaText:       r.Text,
					models.MetaBookID:     r.BookID,
					models.MetaPageNumber: strconv.Itoa(r.PageNumber),
					models.MetaChunkOrder: strconv.Itoa(r.ChunkOrder),
				},
			})
		}
		if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return fmt.Errorf("failed to upsert batch %d/%d: %w",
				start/s.batchSize+1, (len(records)+s.batchSize-1)/s.batchSize, err)
		}
		log.Debug().
			Int("batch", start/s.batchSize+1).
			Int("size", end-start).
			Msg("Upserted batch")
	}
	return nil
}

// Search returns up to n nearest neighbors of the query vector.
func (s *Store) Search(ctx context.Context, vector []float32, n int) ([]Match, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if n > count {
		n = count
	}

	results, err := s.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: vector,
		NResults:       n,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	return toMatches(results), nil
}

// QueryPage returns every chunk of one exact (book, page). The lookup
// scans the full collection with a fixed probe vector and filters on
// metadata, so callers must ignore similarity scores.
func (s *Store) QueryPage(ctx context.Context, bookID string, pageNumber int) ([]Match, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}

	results, err := s.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: s.probeVector(),
		NResults:       count,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query page %s/%d: %w", bookID, pageNumber, err)
	}

	page := strconv.Itoa(pageNumber)
	var filtered []chromem.Result
	for _, r := range results {
		if r.Metadata[models.MetaBookID] == bookID && r.Metadata[models.MetaPageNumber] == page {
			filtered = append(filtered, r)
		}
	}
	return toMatches(filtered), nil
}

// DeleteBook removes every chunk ingested under the given book id. Used to
// keep re-ingestion of the same file from duplicating chunks.
func (s *Store) DeleteBook(ctx context.Context, bookID string) error {
	if s.collection.Count() == 0 {
		return nil
	}
	err := s.collection.Delete(ctx, map[string]string{models.MetaBookID: bookID}, nil)
	if err != nil {
		return fmt.Errorf("failed to delete book %s: %w", bookID, err)
	}
	return nil
}

// Count reports the number of stored chunks.
func (s *Store) Count() int {
	return s.collection.Count()
}

// probeVector is a fixed unit vector used for filter-only queries. A zero
// vector cannot be normalized, so the first component carries the weight.
func (s *Store) probeVector() []float32 {
	v := make([]float32, s.dim)
	v[0] = 1
	return v
}

func toMatches(results []chromem.Result) []Match {
	matches := make([]Match, 0, len(results))
	for _, r := range results {
		page, _ := strconv.Atoi(r.Metadata[models.MetaPageNumber])
		order, _ := strconv.Atoi(r.Metadata[models.MetaChunkOrder])
		text := r.Metadata[models.MetaText]
		if text == "" {
			text = r.Content
		}
		matches = append(matches, Match{
			ID:         r.ID,
			Similarity: r.Similarity,
			Text:       text,
			BookID:     r.Metadata[models.MetaBookID],
			PageNumber: page,
			ChunkOrder: order,
		})
	}
	return matches
}
