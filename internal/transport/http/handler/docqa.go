package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"cogniva-docs/internal/app"
	"cogniva-docs/internal/transport/http/response"
)

const (
	RootMessage         = "Cogniva Docs API is running!"
	ProcessedMessage    = "PDFs processed successfully"
	ProcessFirstDetail  = "Please process PDF files first before asking questions."
	processErrorPrefix  = "Error processing PDFs: "
	answerErrorPrefix   = "Error answering question: "
	uploadFormField     = "files"
	questionFormField   = "question"
	defaultHistoryLimit = 20
)

type DocQAHandler struct {
	docQA *app.DocQAService
}

func NewDocQAHandler(docQA *app.DocQAService) *DocQAHandler {
	return &DocQAHandler{docQA: docQA}
}

func (h *DocQAHandler) Root(c *gin.Context) {
	response.Message(c, RootMessage)
}

// ProcessPDFs rebuilds the index from the uploaded files.
func (h *DocQAHandler) ProcessPDFs(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		response.Error(c, http.StatusBadRequest, "expected a multipart form with PDF files")
		return
	}
	files := form.File[uploadFormField]
	if len(files) == 0 {
		response.Error(c, http.StatusBadRequest, "no files uploaded")
		return
	}

	docs := make([]app.UploadedDocument, 0, len(files))
	for _, file := range files {
		if strings.ToLower(filepath.Ext(file.Filename)) != ".pdf" {
			response.Error(c, http.StatusBadRequest, "only PDF files are allowed: "+file.Filename)
			return
		}
		f, err := file.Open()
		if err != nil {
			response.Error(c, http.StatusInternalServerError, processErrorPrefix+err.Error())
			return
		}
		defer f.Close()
		docs = append(docs, app.UploadedDocument{Name: file.Filename, Content: f})
	}

	result, err := h.docQA.Ingest(c.Request.Context(), docs)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, processErrorPrefix+err.Error())
		return
	}

	response.OK(c, gin.H{
		"message":  ProcessedMessage,
		"build_id": result.BuildID,
		"files":    result.FileCount,
		"pages":    result.PageCount,
		"chunks":   result.ChunkCount,
	})
}

func (h *DocQAHandler) Ask(c *gin.Context) {
	question := strings.TrimSpace(c.PostForm(questionFormField))
	if question == "" {
		response.Error(c, http.StatusBadRequest, "question is required")
		return
	}

	result, err := h.docQA.Ask(c.Request.Context(), question)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrIndexNotFound):
			response.Error(c, http.StatusBadRequest, ProcessFirstDetail)
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, answerErrorPrefix+err.Error())
		}
		return
	}

	response.OK(c, gin.H{"answer": result.Answer})
}

func (h *DocQAHandler) History(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := h.docQA.History(c.Request.Context(), limit)
	if err != nil {
		if errors.Is(err, app.ErrHistoryDisabled) {
			response.Error(c, http.StatusNotFound, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, "list history failed: "+err.Error())
		return
	}
	response.OK(c, gin.H{"records": records})
}
