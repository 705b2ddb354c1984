// Package api exposes the HTTP surface: chat, exact page lookup and a
// health probe.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"policy-rag/internal/helper"
	"policy-rag/internal/models"
)

// Retriever is the query-side search contract.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]models.RetrievalResult, error)
	QueryPage(ctx context.Context, bookID string, pageNumber int) []string
}

// Answerer phrases the final answer from contexts, history and summary.
type Answerer interface {
	Answer(ctx context.Context, question string, contexts []models.RetrievalResult, history []models.Turn, summary string) (string, error)
}

// Memory is the per-session conversation log.
type Memory interface {
	History(ctx context.Context, sessionID string) ([]models.Turn, error)
	Summary(ctx context.Context, sessionID string) (string, error)
	AppendTurn(ctx context.Context, sessionID, userText, assistantText string) error
}

type Handler struct {
	retriever Retriever
	answerer  Answerer
	memory    Memory
	topK      int
}

func NewHandler(retriever Retriever, answerer Answerer, memory Memory, topK int) *Handler {
	return &Handler{retriever: retriever, answerer: answerer, memory: memory, topK: topK}
}

type chatRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

type sourceResponse struct {
	BookID     string  `json:"book_id"`
	PageNumber int     `json:"page_number"`
	Similarity float32 `json:"similarity"`
}

type chatResponse struct {
	Answer    string           `json:"answer"`
	SessionID string           `json:"session_id"`
	Sources   []sourceResponse `json:"sources"`
}

// Chat answers one question within a session. Retrieval and memory
// failures degrade (the answer is produced without contexts or history);
// only a failed completion is reported as an error.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = helper.GenerateUUID()
	}

	ctx := r.Context()

	contexts, err := h.retriever.Retrieve(ctx, req.Question, h.topK)
	if err != nil {
		log.Error().Err(err).Msg("retrieval failed, answering without contexts")
		contexts = nil
	}

	history, err := h.memory.History(ctx, req.SessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("history load failed")
		history = nil
	}
	summary, err := h.memory.Summary(ctx, req.SessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("summary load failed")
		summary = ""
	}

	answer, err := h.answerer.Answer(ctx, req.Question, contexts, history, summary)
	if err != nil {
		log.Error().Err(err).Msg("answer generation failed")
		writeError(w, http.StatusBadGateway, "answer generation failed")
		return
	}

	if err := h.memory.AppendTurn(ctx, req.SessionID, req.Question, answer); err != nil {
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("failed to record turn")
	}

	sources := make([]sourceResponse, 0, len(contexts))
	for _, c := range contexts {
		sources = append(sources, sourceResponse{
			BookID:     c.BookID,
			PageNumber: c.PageNumber,
			Similarity: c.Similarity,
		})
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Answer:    answer,
		SessionID: req.SessionID,
		Sources:   sources,
	})
}

type pageRequest struct {
	BookID     string `json:"book_id"`
	PageNumber int    `json:"page_number"`
}

type pageResponse struct {
	BookID     string   `json:"book_id"`
	PageNumber int      `json:"page_number"`
	Chunks     []string `json:"chunks"`
}

// Page returns the ordered chunk texts of one exact (book, page). An
// unknown page yields an empty chunk list, not an error.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.BookID == "" {
		writeError(w, http.StatusBadRequest, "book_id is required")
		return
	}
	if req.PageNumber < 1 {
		writeError(w, http.StatusBadRequest, "page_number must be >= 1")
		return
	}

	chunks := h.retriever.QueryPage(r.Context(), req.BookID, req.PageNumber)
	if chunks == nil {
		chunks = []string{}
	}

	writeJSON(w, http.StatusOK, pageResponse{
		BookID:     req.BookID,
		PageNumber: req.PageNumber,
		Chunks:     chunks,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
