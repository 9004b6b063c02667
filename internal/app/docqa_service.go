package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"cogniva-docs/internal/ai"
	"cogniva-docs/internal/model"
	"cogniva-docs/internal/pkg/pdfextract"
	"cogniva-docs/internal/pkg/textsplit"
	"cogniva-docs/internal/vectorindex"
)

const (
	defaultTopK            = 4
	maxHistoryLimit        = 100
	maxParallelExtractions = 4
)

type IngestRecorder interface {
	Create(record *model.IngestRecord) error
	Latest() (*model.IngestRecord, error)
}

type QARecordStore interface {
	Create(record *model.QARecord) error
	ListRecent(limit int) ([]model.QARecord, error)
}

type QARecordPublisher interface {
	Publish(ctx context.Context, record model.QARecord) error
}

type QAHistoryCache interface {
	GetHistory(ctx context.Context) ([]model.QARecord, bool, error)
	SetHistory(ctx context.Context, records []model.QARecord) error
	DeleteHistory(ctx context.Context) error
	MarkDirty(ctx context.Context) error
	IsDirty(ctx context.Context) (bool, error)
}

// AuditTrail groups the optional stores that remember what was ingested and
// asked. Any field may be nil.
type AuditTrail struct {
	Ingests   IngestRecorder
	QARecords QARecordStore
	Publisher QARecordPublisher
	Cache     QAHistoryCache
}

type DocQAConfig struct {
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	Embedding    ai.EmbeddingConfig
	Chat         ai.ChatConfig
}

// UploadedDocument is one PDF handed to Ingest.
type UploadedDocument struct {
	Name    string
	Content io.Reader
}

type IngestResult struct {
	BuildID    string `json:"build_id"`
	FileCount  int    `json:"files"`
	PageCount  int    `json:"pages"`
	ChunkCount int    `json:"chunks"`
}

type AskResult struct {
	Answer  string              `json:"answer"`
	BuildID string              `json:"build_id"`
	Sources []vectorindex.Match `json:"sources"`
}

// DocQAService answers questions over the most recently ingested PDFs.
type DocQAService struct {
	cfg       DocQAConfig
	splitter  *textsplit.RecursiveSplitter
	llmClient *ai.OpenAICompatibleClient
	store     *vectorindex.Store
	audit     AuditTrail
	logger    *slog.Logger
}

func NewDocQAService(
	cfg DocQAConfig,
	llmClient *ai.OpenAICompatibleClient,
	store *vectorindex.Store,
	audit AuditTrail,
	logger *slog.Logger,
) (*DocQAService, error) {
	splitter := textsplit.NewRecursiveSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err := splitter.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chunking config: %w", err)
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DocQAService{
		cfg:       cfg,
		splitter:  splitter,
		llmClient: llmClient,
		store:     store,
		audit:     audit,
		logger:    logger.With("component", "docqa"),
	}, nil
}

// Ingest replaces the index with one built from docs. A failure in any
// document aborts the whole batch and leaves the previous index untouched.
func (s *DocQAService) Ingest(ctx context.Context, docs []UploadedDocument) (*IngestResult, error) {
	if len(docs) == 0 {
		return nil, ErrInvalidInput
	}

	for _, doc := range docs {
		if doc.Content == nil {
			return nil, ErrInvalidInput
		}
	}

	pagesByDoc := make([][]string, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelExtractions)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pages, err := pdfextract.ExtractPages(doc.Content)
			if err != nil {
				return fmt.Errorf("extract %q failed: %w", doc.Name, err)
			}
			pagesByDoc[i] = pages
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Documents are concatenated in upload order, pages in page order.
	var text strings.Builder
	names := make([]string, len(docs))
	pageCount := 0
	for i, pages := range pagesByDoc {
		for _, page := range pages {
			text.WriteString(page)
		}
		pageCount += len(pages)
		names[i] = docs[i].Name
	}

	chunks := s.splitter.SplitText(text.String())
	vectors, err := s.llmClient.EmbedBatch(ctx, s.cfg.Embedding, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks failed: %w", err)
	}

	idx, err := vectorindex.Build(s.cfg.Embedding.Model, chunks, vectors)
	if err != nil {
		return nil, fmt.Errorf("build index failed: %w", err)
	}
	if err := s.store.Save(idx); err != nil {
		return nil, fmt.Errorf("save index failed: %w", err)
	}

	result := &IngestResult{
		BuildID:    idx.Meta.BuildID,
		FileCount:  len(docs),
		PageCount:  pageCount,
		ChunkCount: len(chunks),
	}
	s.logger.InfoContext(ctx, "index rebuilt",
		"build_id", result.BuildID,
		"files", result.FileCount,
		"pages", result.PageCount,
		"chunks", result.ChunkCount,
	)
	s.recordIngest(ctx, result, names)
	return result, nil
}

// Ask answers question from the current index.
func (s *DocQAService) Ask(ctx context.Context, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrInvalidInput
	}

	idx, err := s.store.Load()
	if err != nil {
		if errors.Is(err, vectorindex.ErrNotFound) {
			return nil, ErrIndexNotFound
		}
		return nil, fmt.Errorf("load index failed: %w", err)
	}

	queryVec, err := s.llmClient.Embed(ctx, s.cfg.Embedding, question)
	if err != nil {
		return nil, fmt.Errorf("embed question failed: %w", err)
	}

	matches := idx.Search(queryVec, s.cfg.TopK)
	chunks := make([]string, len(matches))
	for i := range matches {
		chunks[i] = matches[i].Text
	}

	answer, err := s.llmClient.Complete(ctx, s.cfg.Chat, []ai.ChatMessage{
		{Role: "user", Content: buildAnswerPrompt(question, chunks)},
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer failed: %w", err)
	}

	result := &AskResult{
		Answer:  answer,
		BuildID: idx.Meta.BuildID,
		Sources: matches,
	}
	s.recordQA(ctx, model.QARecord{
		BuildID:   idx.Meta.BuildID,
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now(),
	})
	return result, nil
}

// History returns up to limit recent answers, newest first.
func (s *DocQAService) History(ctx context.Context, limit int) ([]model.QARecord, error) {
	if s.audit.QARecords == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	if s.audit.Cache != nil {
		dirty, err := s.audit.Cache.IsDirty(ctx)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.audit.Cache.GetHistory(ctx); cacheErr == nil && hit {
				return trimRecords(cached, limit), nil
			}
		}
	}

	records, err := s.audit.QARecords.ListRecent(maxHistoryLimit)
	if err != nil {
		return nil, err
	}
	if s.audit.Cache != nil {
		if dirty, dirtyErr := s.audit.Cache.IsDirty(ctx); dirtyErr == nil && !dirty {
			if err := s.audit.Cache.SetHistory(ctx, records); err != nil {
				s.logger.WarnContext(ctx, "cache qa history failed", "error", err)
			}
		}
	}
	return trimRecords(records, limit), nil
}

// LatestIngest reports the last recorded ingest, or nil when the audit trail
// is off or nothing was ingested.
func (s *DocQAService) LatestIngest() (*model.IngestRecord, error) {
	if s.audit.Ingests == nil {
		return nil, nil
	}
	return s.audit.Ingests.Latest()
}

func (s *DocQAService) IndexReady() bool {
	return s.store.Exists()
}

func (s *DocQAService) recordIngest(ctx context.Context, result *IngestResult, names []string) {
	if s.audit.Ingests == nil {
		return
	}
	record := &model.IngestRecord{
		BuildID:    result.BuildID,
		PageCount:  result.PageCount,
		ChunkCount: result.ChunkCount,
	}
	record.SetFileNames(names)
	if err := s.audit.Ingests.Create(record); err != nil {
		s.logger.WarnContext(ctx, "record ingest failed", "build_id", result.BuildID, "error", err)
	}
}

func (s *DocQAService) recordQA(ctx context.Context, record model.QARecord) {
	if s.audit.Cache != nil {
		if err := s.audit.Cache.MarkDirty(ctx); err != nil {
			s.logger.WarnContext(ctx, "mark qa history dirty failed", "error", err)
		}
		if err := s.audit.Cache.DeleteHistory(ctx); err != nil {
			s.logger.WarnContext(ctx, "drop cached qa history failed", "error", err)
		}
	}

	if s.audit.Publisher != nil {
		err := s.audit.Publisher.Publish(ctx, record)
		if err == nil {
			return
		}
		s.logger.WarnContext(ctx, "publish qa record failed", "error", err)
	}
	if s.audit.QARecords != nil {
		if err := s.audit.QARecords.Create(&record); err != nil {
			s.logger.WarnContext(ctx, "record qa failed", "error", err)
		}
	}
}

func trimRecords(records []model.QARecord, limit int) []model.QARecord {
	if len(records) > limit {
		return records[:limit]
	}
	return records
}
