// Package aitest serves a fake OpenAI-compatible API for tests.
package aitest

import (
	"encoding/json"
	"hash/fnv"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode"
)

const Dimension = 32

// Server answers /embeddings with bag-of-words vectors and /chat/completions
// with the output of Chat.
type Server struct {
	URL string

	// Chat maps the last user message to the completion text.
	Chat func(prompt string) string

	mu              sync.Mutex
	embeddingCalls  int
	embeddedTexts   []string
	chatCalls       int
	lastPrompt      string
	lastModel       string
	failEmbeddings  bool
	failCompletions bool
}

func NewServer(t *testing.T, chat func(prompt string) string) *Server {
	t.Helper()
	s := &Server{Chat: chat}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", s.handleEmbeddings)
	mux.HandleFunc("/v1/chat/completions", s.handleChat)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	s.URL = srv.URL + "/v1"
	return s
}

func (s *Server) FailEmbeddings(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failEmbeddings = fail
}

func (s *Server) FailCompletions(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCompletions = fail
}

func (s *Server) EmbeddingCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.embeddingCalls
}

func (s *Server) EmbeddedTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.embeddedTexts...)
}

func (s *Server) ChatCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatCalls
}

func (s *Server) LastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPrompt
}

func (s *Server) LastModel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastModel
}

func (s *Server) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input json.RawMessage `json:"input"`
		Model string          `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var inputs []string
	if err := json.Unmarshal(req.Input, &inputs); err != nil {
		var single string
		if err := json.Unmarshal(req.Input, &single); err != nil {
			writeError(w, http.StatusBadRequest, "input must be a string or an array of strings")
			return
		}
		inputs = []string{single}
	}

	s.mu.Lock()
	s.embeddingCalls++
	s.embeddedTexts = append(s.embeddedTexts, inputs...)
	fail := s.failEmbeddings
	s.mu.Unlock()
	if fail {
		writeError(w, http.StatusInternalServerError, "embedding backend unavailable")
		return
	}

	data := make([]map[string]any, len(inputs))
	for i, text := range inputs {
		data[i] = map[string]any{
			"object":    "embedding",
			"index":     i,
			"embedding": Embed(text),
		}
	}
	writeJSON(w, map[string]any{
		"object": "list",
		"model":  req.Model,
		"data":   data,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	prompt := ""
	for _, m := range req.Messages {
		if m.Role == "user" {
			prompt = m.Content
		}
	}

	s.mu.Lock()
	s.chatCalls++
	s.lastPrompt = prompt
	s.lastModel = req.Model
	fail := s.failCompletions
	chat := s.Chat
	s.mu.Unlock()
	if fail {
		writeError(w, http.StatusTooManyRequests, "rate limited")
		return
	}

	answer := ""
	if chat != nil {
		answer = chat(prompt)
	}
	writeJSON(w, map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  req.Model,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": answer},
		}},
	})
}

// Embed hashes the lower-cased words of text into a unit vector.
func Embed(text string) []float32 {
	vec := make([]float32, Dimension)
	for _, word := range Words(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[h.Sum32()%Dimension]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

// Words splits text into lower-cased letter/digit runs.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ExtractiveAnswer returns a Chat func that answers with the first context
// line sharing a word of four or more letters with the question, and with
// sentinel otherwise. Prompts are expected to carry "Context:", "Question:"
// and "Answer:" headers on their own lines.
func ExtractiveAnswer(sentinel string) func(prompt string) string {
	return func(prompt string) string {
		contextBlock, question := section(prompt, "Context:", "Question:"), section(prompt, "Question:", "Answer:")
		keywords := map[string]bool{}
		for _, w := range Words(question) {
			if len(w) >= 4 {
				keywords[w] = true
			}
		}
		for _, line := range strings.Split(contextBlock, "\n") {
			for _, w := range Words(line) {
				if keywords[w] {
					return strings.TrimSpace(line)
				}
			}
		}
		return sentinel
	}
}

func section(prompt, start, end string) string {
	i := strings.LastIndex(prompt, start)
	if i < 0 {
		return ""
	}
	rest := prompt[i+len(start):]
	if j := strings.Index(rest, end); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": "test_error"},
	})
}
