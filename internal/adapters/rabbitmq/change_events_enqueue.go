package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"catalog-view-service/internal/constants"
	"catalog-view-service/internal/core/domain"
	"catalog-view-service/pkg/rabbitmq/rabbitmq_producer"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ChangeEventPublisher публикует события изменений в fanout-обменник ленты.
// Каждая реплика каталога (включая эту же) получит событие и сложит его в
// свои подписки - так запись "возвращается" в view, а не применяется
// локально на отправке.
type ChangeEventPublisher struct {
	producer *rabbitmq_producer.Publisher
}

func NewChangeEventPublisher(producer *rabbitmq_producer.Publisher) *ChangeEventPublisher {
	return &ChangeEventPublisher{producer: producer}
}

func (p *ChangeEventPublisher) PublishChange(ctx context.Context, ev domain.ChangeEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := p.producer.Publish(ctx, constants.RoutingKeyListingChanged, msg); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

func (p *ChangeEventPublisher) Close() error {
	return p.producer.Close()
}
