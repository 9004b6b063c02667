package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"cogniva-docs/internal/model"
)

// QARecordWriter stores one decoded record.
type QARecordWriter interface {
	Create(record *model.QARecord) error
}

// QARecordPersistWorker drains the QA audit queue into the database.
type QARecordPersistWorker struct {
	conn      *amqp.Connection
	repo      QARecordWriter
	queueName string
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewQARecordPersistWorker(conn *amqp.Connection, repo QARecordWriter, queueName string, logger *slog.Logger) *QARecordPersistWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &QARecordPersistWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
		logger:    logger.With("component", "qa_persist_worker", "queue", queueName),
	}
}

func (w *QARecordPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := ch.QueueDeclare(w.queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("delivery channel closed")
					return
				}
				if err := w.handle(d.Body); err != nil {
					w.logger.Error("persist qa record failed", "error", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.logger.Info("worker started")
	return nil
}

func (w *QARecordPersistWorker) handle(body []byte) error {
	var record model.QARecord
	if err := json.Unmarshal(body, &record); err != nil {
		return fmt.Errorf("decode qa record failed: %w", err)
	}
	if record.Question == "" {
		return fmt.Errorf("qa record has no question")
	}
	// IDs are assigned by the database.
	record.ID = 0
	return w.repo.Create(&record)
}

func (w *QARecordPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
