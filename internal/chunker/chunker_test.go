package chunker

import (
	"strings"
	"testing"

	"policy-rag/internal/models"
)

func TestSplitPageShortText(t *testing.T) {
	c := New(1000, 100)
	chunks, err := c.SplitPage("policy", models.PageText{PageNumber: 3, Content: "Short page."})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "Short page." {
		t.Errorf("unexpected content %q", chunks[0].Content)
	}
	if chunks[0].BookID != "policy" || chunks[0].PageNumber != 3 || chunks[0].ChunkOrder != 0 {
		t.Errorf("unexpected metadata: %+v", chunks[0])
	}
}

func TestSplitPageChunkOrderInvariant(t *testing.T) {
	c := New(100, 20)

	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("Travel expenses above the configured limit require prior approval.\n\n")
	}

	chunks, err := c.SplitPage("policy", models.PageText{PageNumber: 7, Content: sb.String()})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if chunk.ChunkOrder != i {
			t.Errorf("chunk %d has order %d", i, chunk.ChunkOrder)
		}
		if chunk.PageNumber != 7 || chunk.BookID != "policy" {
			t.Errorf("chunk %d carries wrong page metadata: %+v", i, chunk)
		}
		if len(chunk.Content) > 100 {
			t.Errorf("chunk %d exceeds size bound: %d chars", i, len(chunk.Content))
		}
	}
}

func TestSplitPageEmpty(t *testing.T) {
	c := New(1000, 100)
	chunks, err := c.SplitPage("policy", models.PageText{PageNumber: 1, Content: ""})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for empty page, got %d", len(chunks))
	}
}
