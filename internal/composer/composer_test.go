package composer

import (
	"strings"
	"testing"

	"policy-rag/internal/models"
)

func TestFormatContexts(t *testing.T) {
	c := &Composer{maxContextDocs: 10}
	contexts := []models.RetrievalResult{
		{BookID: "policy", PageNumber: 5, Text: "limit is\n$500"},
		{BookID: "policy", PageNumber: 9, Text: "approval required"},
	}

	got := c.formatContexts(contexts)
	want := "[policy, p.5] limit is $500\n[policy, p.9] approval required"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatContextsCapped(t *testing.T) {
	c := &Composer{maxContextDocs: 2}
	contexts := []models.RetrievalResult{
		{BookID: "a", PageNumber: 1, Text: "one"},
		{BookID: "a", PageNumber: 2, Text: "two"},
		{BookID: "a", PageNumber: 3, Text: "three"},
	}

	got := c.formatContexts(contexts)
	if strings.Contains(got, "three") {
		t.Errorf("contexts beyond the cap must be dropped: %q", got)
	}
	if lines := strings.Count(got, "\n") + 1; lines != 2 {
		t.Errorf("expected 2 lines, got %d", lines)
	}
}

func TestBuildPrompt(t *testing.T) {
	c := &Composer{maxContextDocs: 10}
	contexts := []models.RetrievalResult{
		{BookID: "policy", PageNumber: 5, Text: "limit is $500"},
	}
	history := []models.Turn{
		{Role: models.RoleUser, Content: "earlier question"},
		{Role: models.RoleAssistant, Content: "earlier answer"},
	}

	prompt := c.buildPrompt("What is the limit?", contexts, history, "talking about travel")

	for _, want := range []string{
		"CONTEXT:",
		"[policy, p.5] limit is $500",
		"SUMMARY:\ntalking about travel",
		"CHAT_HISTORY",
		"user: earlier question",
		"assistant: earlier answer",
		"USER QUESTION:\nWhat is the limit?",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}

	if strings.Index(prompt, "CONTEXT:") > strings.Index(prompt, "USER QUESTION:") {
		t.Error("contexts must precede the question")
	}
}

func TestBuildPromptEmptyContexts(t *testing.T) {
	c := &Composer{maxContextDocs: 10}
	prompt := c.buildPrompt("q", nil, nil, "")
	if !strings.Contains(prompt, "CONTEXT:") {
		t.Error("prompt must keep its section structure with no contexts")
	}
}
