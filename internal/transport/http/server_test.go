package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cogniva-docs/internal/ai/aitest"
	"cogniva-docs/internal/app"
	"cogniva-docs/internal/bootstrap"
	"cogniva-docs/internal/config"
	"cogniva-docs/internal/pkg/jwtutil"
	"cogniva-docs/internal/pkg/pdfextract/pdftest"
	"cogniva-docs/internal/transport/http/handler"
)

type upload struct {
	name    string
	content []byte
}

type testServer struct {
	router *gin.Engine
	llm    *aitest.Server
}

func newTestServer(t *testing.T, mutate func(cfg *config.Config)) *testServer {
	t.Helper()
	llm := aitest.NewServer(t, aitest.ExtractiveAnswer(app.NotAvailableAnswer))
	cfg := &config.Config{
		App: config.AppConfig{Name: "cogniva-docs", Env: "test", GinMode: gin.TestMode, MaxUploadMB: 1},
		LLM: config.LLMConfig{
			BaseURL:        llm.URL,
			APIKey:         "test-key",
			Model:          "openai/gpt-3.5-turbo",
			Temperature:    0.3,
			EmbeddingModel: "text-embedding-ada-002",
			TimeoutSeconds: 5,
		},
		Index: config.IndexConfig{
			Dir:          filepath.Join(t.TempDir(), "faiss_index"),
			ChunkSize:    500,
			ChunkOverlap: 50,
			TopK:         4,
		},
	}
	if mutate != nil {
		mutate(cfg)
	}
	a, err := bootstrap.NewWithConfig(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return &testServer{router: NewRouter(a), llm: llm}
}

func (s *testServer) do(req *nethttp.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, files ...upload) *nethttp.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(nethttp.MethodPost, "/process-pdfs", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func askRequest(question string) *nethttp.Request {
	form := url.Values{}
	if question != "" {
		form.Set("question", question)
	}
	req := httptest.NewRequest(nethttp.MethodPost, "/ask", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestRoot(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(httptest.NewRequest(nethttp.MethodGet, "/", nil))
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, handler.RootMessage, decode(t, rec)["message"])
}

func TestAskBeforeProcessing(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(askRequest("What is the capital of France?"))
	require.Equal(t, nethttp.StatusBadRequest, rec.Code)
	assert.Equal(t, handler.ProcessFirstDetail, decode(t, rec)["detail"])
}

func TestAskRequiresQuestion(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(askRequest(""))
	require.Equal(t, nethttp.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["detail"])
}

func TestProcessThenAsk(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(uploadRequest(t, upload{"geo.pdf", pdftest.Build("The capital of France is Paris.")}))
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, handler.ProcessedMessage, body["message"])
	assert.NotEmpty(t, body["build_id"])
	assert.EqualValues(t, 1, body["chunks"])

	rec = s.do(askRequest("What is the capital of France?"))
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, decode(t, rec)["answer"], "Paris")

	rec = s.do(askRequest("Who painted the Mona Lisa?"))
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, app.NotAvailableAnswer, decode(t, rec)["answer"])
}

func TestProcessValidatesUploads(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(uploadRequest(t))
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)

	rec = s.do(uploadRequest(t, upload{"notes.txt", []byte("plain text")}))
	require.Equal(t, nethttp.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["detail"], "notes.txt")

	req := httptest.NewRequest(nethttp.MethodPost, "/process-pdfs", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, nethttp.StatusBadRequest, s.do(req).Code)
}

func TestProcessMalformedPDF(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(uploadRequest(t, upload{"broken.pdf", []byte("definitely not a pdf")}))
	require.Equal(t, nethttp.StatusInternalServerError, rec.Code)
	detail, _ := decode(t, rec)["detail"].(string)
	assert.True(t, strings.HasPrefix(detail, "Error processing PDFs: "), detail)
}

func TestProcessRejectsOversizedUpload(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(uploadRequest(t, upload{"big.pdf", bytes.Repeat([]byte("x"), 2<<20)}))
	assert.Contains(t, []int{nethttp.StatusRequestEntityTooLarge, nethttp.StatusBadRequest}, rec.Code)
}

func TestAskUpstreamFailure(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(uploadRequest(t, upload{"geo.pdf", pdftest.Build("The capital of France is Paris.")}))
	require.Equal(t, nethttp.StatusOK, rec.Code)

	s.llm.FailCompletions(true)
	rec = s.do(askRequest("What is the capital of France?"))
	require.Equal(t, nethttp.StatusInternalServerError, rec.Code)
	detail, _ := decode(t, rec)["detail"].(string)
	assert.True(t, strings.HasPrefix(detail, "Error answering question: "), detail)
}

func TestHistoryDisabled(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(httptest.NewRequest(nethttp.MethodGet, "/history", nil))
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)

	rec = s.do(httptest.NewRequest(nethttp.MethodGet, "/history?limit=abc", nil))
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(httptest.NewRequest(nethttp.MethodGet, "/healthz", nil))
	require.Equal(t, nethttp.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["index"].(map[string]any)["ready"])
	mysql := body["dependencies"].(map[string]any)["mysql"].(map[string]any)
	assert.Equal(t, false, mysql["enabled"])

	rec = s.do(uploadRequest(t, upload{"geo.pdf", pdftest.Build("Some text.")}))
	require.Equal(t, nethttp.StatusOK, rec.Code)

	rec = s.do(httptest.NewRequest(nethttp.MethodGet, "/healthz", nil))
	assert.Equal(t, true, decode(t, rec)["index"].(map[string]any)["ready"])
}

func TestBearerTokenRequiredWhenSecretSet(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Auth.JWTSecret = "s3cret"
	})

	rec := s.do(askRequest("What is the capital of France?"))
	assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)

	req := askRequest("What is the capital of France?")
	req.Header.Set("Authorization", "Token abc")
	assert.Equal(t, nethttp.StatusUnauthorized, s.do(req).Code)

	token, err := jwtutil.GenerateToken("s3cret", time.Minute, "tests")
	require.NoError(t, err)
	req = askRequest("What is the capital of France?")
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, nethttp.StatusBadRequest, s.do(req).Code, "authorized, but no index yet")

	rec = s.do(httptest.NewRequest(nethttp.MethodGet, "/", nil))
	assert.Equal(t, nethttp.StatusOK, rec.Code, "root stays public")
}
