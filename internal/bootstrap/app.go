package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cogniva-docs/internal/ai"
	"cogniva-docs/internal/app"
	"cogniva-docs/internal/cache"
	"cogniva-docs/internal/config"
	"cogniva-docs/internal/model"
	mysqlClient "cogniva-docs/internal/platform/mysql"
	rabbitmqClient "cogniva-docs/internal/platform/rabbitmq"
	redisClient "cogniva-docs/internal/platform/redis"
	"cogniva-docs/internal/repository"
	"cogniva-docs/internal/vectorindex"
	"cogniva-docs/internal/worker"
)

// App owns the service and every optional connection behind the audit trail.
// MySQL, Redis and MQConn are nil when not configured.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DocQA    *app.DocQAService
	MySQL    *gorm.DB
	Redis    *redis.Client
	MQConn   *amqp.Connection
	QAWorker *worker.QARecordPersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return NewWithConfig(ctx, cfg, NewLogger(cfg.App.Env))
}

// NewWithConfig wires the service from an already loaded config.
func NewWithConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		Config:    cfg,
		Logger:    logger,
		StartedAt: time.Now(),
	}

	audit, err := a.connectAuditTrail(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	llmClient := ai.NewOpenAICompatibleClient(ai.ClientConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Timeout: cfg.LLMTimeout(),
	})
	docQA, err := app.NewDocQAService(app.DocQAConfig{
		ChunkSize:    cfg.Index.ChunkSize,
		ChunkOverlap: cfg.Index.ChunkOverlap,
		TopK:         cfg.Index.TopK,
		Embedding: ai.EmbeddingConfig{
			Model:     cfg.LLM.EmbeddingModel,
			BatchSize: cfg.LLM.EmbeddingBatchSize,
		},
		Chat: ai.ChatConfig{
			Model:       cfg.LLM.Model,
			Temperature: float32(cfg.LLM.Temperature),
		},
	}, llmClient, vectorindex.NewStore(cfg.Index.Dir), audit, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.DocQA = docQA
	return a, nil
}

// connectAuditTrail opens whichever audit stores are configured. Redis and
// RabbitMQ only feed the MySQL tables, so they are skipped without it.
func (a *App) connectAuditTrail(ctx context.Context) (app.AuditTrail, error) {
	var audit app.AuditTrail
	cfg := a.Config
	if cfg.MySQL.DSN == "" {
		if cfg.Redis.Addr != "" || cfg.RabbitMQ.URL != "" {
			a.Logger.Warn("redis and rabbitmq need mysql for the audit trail, skipping them")
		}
		return audit, nil
	}

	db, err := mysqlClient.New(ctx, cfg.MySQL.DSN, &model.IngestRecord{}, &model.QARecord{})
	if err != nil {
		return audit, err
	}
	a.MySQL = db
	qaRepo := repository.NewQARecordRepository(db)
	audit.Ingests = repository.NewIngestRecordRepository(db)
	audit.QARecords = qaRepo

	if cfg.Redis.Addr != "" {
		redisCli, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			return audit, err
		}
		a.Redis = redisCli
		audit.Cache = cache.NewQAHistoryCache(
			redisCli,
			time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
			time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
		)
	}

	if cfg.RabbitMQ.URL != "" {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.QAPersistQueue)
		if err != nil {
			return audit, err
		}
		a.MQConn = mqConn
		qaWorker := worker.NewQARecordPersistWorker(mqConn, qaRepo, cfg.RabbitMQ.QAPersistQueue, a.Logger)
		if err := qaWorker.Start(ctx); err != nil {
			return audit, fmt.Errorf("start qa worker failed: %w", err)
		}
		a.QAWorker = qaWorker
		audit.Publisher = rabbitmqClient.NewQARecordPublisher(mqConn, cfg.RabbitMQ.QAPersistQueue)
	}

	a.Logger.Info("audit trail enabled",
		"history_cache", a.Redis != nil,
		"async_writes", a.MQConn != nil,
	)
	return audit, nil
}

// NewLogger logs JSON in production and text elsewhere.
func NewLogger(env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if env == "prod" || env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.QAWorker != nil {
		a.QAWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
