package models

// PageText is the extracted text of a single document page. Page numbers
// are 1-based; for paged formats they match the source document, for
// sheet/section based formats they are the 1-based sheet or section index.
type PageText struct {
	PageNumber int
	Content    string
}

// Chunk is the atomic retrievable unit produced by the chunker. ChunkOrder
// is 0-based and local to the page; it is contiguous within a page and
// records the order of appearance in the page text.
type Chunk struct {
	Content    string
	BookID     string
	PageNumber int
	ChunkOrder int
}

// RetrievalResult is a ranked, possibly page-merged unit returned by the
// retriever. When several chunks of one page are merged, ChunkID carries a
// synthetic "combined_<book_id>_<page>" identifier and Similarity is the
// maximum over the merged chunks.
type RetrievalResult struct {
	Similarity float32
	BookID     string
	ChunkID    string
	Text       string
	PageNumber int
}

// Turn is one half of a conversation exchange.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
