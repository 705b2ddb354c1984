// Package retriever implements the query-time core: vector search with
// page-aware regrouping. Nearest-neighbor search returns isolated chunks;
// the retriever reassembles chunks that came from the same page into one
// coherent result before ranking, so a logical answer split across several
// chunks is not fragmented or counted multiple times against top_k.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"policy-rag/internal/models"
	"policy-rag/internal/vectorstore"
)

// ErrEmbedding marks a failed query embedding; ErrStore marks a failed
// index lookup. Callers can distinguish "no matching data" (nil error,
// empty slice) from a degraded provider.
var (
	ErrEmbedding = errors.New("query embedding failed")
	ErrStore     = errors.New("vector store query failed")
)

// Embedder is the query-side embedding contract.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the subset of the vector index the retriever reads from.
type Store interface {
	Search(ctx context.Context, vector []float32, n int) ([]vectorstore.Match, error)
	QueryPage(ctx context.Context, bookID string, pageNumber int) ([]vectorstore.Match, error)
}

type Retriever struct {
	embedder Embedder
	store    Store
}

func New(embedder Embedder, store Store) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve returns up to topK retrieval results ordered by descending
// similarity. It over-fetches 2*topK neighbors so that merging sibling
// chunks of one page can still yield topK distinct results.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]models.RetrievalResult, error) {
	if topK <= 0 {
		return nil, nil
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	matches, err := r.store.Search(ctx, vector, 2*topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	return GroupNeighbors(matches, topK), nil
}

// GroupNeighbors is the pure regrouping step over a raw neighbor list:
//
//  1. group matches by (book_id, page_number),
//  2. restore in-page reading order by chunk_order within each group,
//  3. merge multi-chunk groups into one combined result (similarity = max
//     over the group, synthetic combined_<book>_<page> id) while the
//     running result count is below topK; otherwise keep only the group's
//     best-ranked chunk,
//  4. rank everything by similarity descending and truncate to topK.
//
// Groups whose chunks are all empty text are dropped.
func GroupNeighbors(matches []vectorstore.Match, topK int) []models.RetrievalResult {
	type groupKey struct {
		bookID string
		page   int
	}

	// Group in first-seen order so merging decisions are deterministic
	// given a deterministic store response.
	var order []groupKey
	groups := make(map[groupKey][]vectorstore.Match)
	for _, m := range matches {
		key := groupKey{bookID: m.BookID, page: m.PageNumber}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], m)
	}

	var results []models.RetrievalResult
	for _, key := range order {
		group := groups[key]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].ChunkOrder < group[j].ChunkOrder
		})

		if !hasText(group) {
			continue
		}

		if len(group) > 1 && len(results) < topK {
			texts := make([]string, 0, len(group))
			maxSim := group[0].Similarity
			for _, m := range group {
				texts = append(texts, m.Text)
				if m.Similarity > maxSim {
					maxSim = m.Similarity
				}
			}
			results = append(results, models.RetrievalResult{
				Similarity: maxSim,
				BookID:     key.bookID,
				ChunkID:    fmt.Sprintf("%s%s_%d", models.CombinedIDPrefix, key.bookID, key.page),
				Text:       strings.Join(texts, " "),
				PageNumber: key.page,
			})
			continue
		}

		// Singleton groups, and any group arriving after the cap is
		// reached, contribute only their best-ranked chunk.
		best := bestMatch(group)
		results = append(results, models.RetrievalResult{
			Similarity: best.Similarity,
			BookID:     best.BookID,
			ChunkID:    best.ID,
			Text:       best.Text,
			PageNumber: best.PageNumber,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// QueryPage returns the ordered chunk texts of one exact (book, page).
// This path answers "what is on this page": no semantic ranking, and a
// store failure degrades to an empty list instead of propagating.
func (r *Retriever) QueryPage(ctx context.Context, bookID string, pageNumber int) []string {
	matches, err := r.store.QueryPage(ctx, bookID, pageNumber)
	if err != nil {
		log.Error().Err(err).Str("book_id", bookID).Int("page", pageNumber).Msg("page lookup failed")
		return nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].ChunkOrder < matches[j].ChunkOrder
	})

	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, m.Text)
	}
	return texts
}

func hasText(group []vectorstore.Match) bool {
	for _, m := range group {
		if strings.TrimSpace(m.Text) != "" {
			return true
		}
	}
	return false
}

func bestMatch(group []vectorstore.Match) vectorstore.Match {
	best := group[0]
	for _, m := range group[1:] {
		if m.Similarity > best.Similarity {
			best = m
		}
	}
	return best
}
