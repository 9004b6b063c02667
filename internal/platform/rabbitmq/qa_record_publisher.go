package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"cogniva-docs/internal/model"
)

type QARecordPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewQARecordPublisher(conn *amqp.Connection, queueName string) *QARecordPublisher {
	return &QARecordPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *QARecordPublisher) Publish(ctx context.Context, record model.QARecord) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if _, err := declareQueue(ch, p.queueName); err != nil {
		return err
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal qa record payload failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish qa record failed: %w", err)
	}
	return nil
}
