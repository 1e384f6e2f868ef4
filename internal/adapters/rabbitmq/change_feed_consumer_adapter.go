package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"catalog-view-service/internal/constants"
	"catalog-view-service/internal/core/domain"
	"catalog-view-service/internal/core/port"
	"catalog-view-service/pkg/rabbitmq/rabbitmq_common"
	"catalog-view-service/pkg/rabbitmq/rabbitmq_consumer"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventValidator - контракт валидации сырого события до десериализации
// (реализация - contracts поверх JSON Schema).
type EventValidator interface {
	ValidateChangeEvent(raw []byte) error
}

// ChangeFeedConsumerAdapter - входящий адаптер ленты изменений: слушает
// свою (сгенерированную сервером, эксклюзивную) очередь на fanout-обменнике
// и передает валидные события диспетчеру подписок.
//
// prefetch=1 и один обработчик: порядок прибытия событий сохраняется,
// больше никакой упорядоченности лента и не обещает.
type ChangeFeedConsumerAdapter struct {
	consumer  *rabbitmq_consumer.Consumer
	dispatch  func(domain.ChangeEvent)
	validator EventValidator
	logger    port.LoggerPort
}

func NewChangeFeedConsumerAdapter(
	url string,
	dispatch func(domain.ChangeEvent),
	validator EventValidator,
	logger port.LoggerPort,
	connManager *rabbitmq_common.ConnectionManager,
) (*ChangeFeedConsumerAdapter, error) {
	if dispatch == nil {
		return nil, fmt.Errorf("dispatch function is required")
	}

	adapter := &ChangeFeedConsumerAdapter{
		dispatch:  dispatch,
		validator: validator,
		logger:    logger.WithFields(port.Fields{"component": "ChangeFeedConsumerAdapter"}),
	}

	cfg := rabbitmq_consumer.ConsumerConfig{
		Config: rabbitmq_common.Config{URL: url},
		// Пустое имя: сервер генерирует эксклюзивную очередь этого
		// инстанса. Лента - fanout, каждая реплика видит все.
		QueueName:              "",
		ExclusiveQueue:         true,
		AutoDeleteQueue:        true,
		ExchangeNameForBind:    constants.ChangeFeedExchange,
		DeclareExchangeForBind: true,
		ExchangeTypeForBind:    "fanout",
		DurableExchangeForBind: true,
		PrefetchCount:          1,
		ConsumerTag:            "catalog-view-feed",
		Logger:                 NewPkgLoggerBridge(adapter.logger),
	}

	consumer, err := rabbitmq_consumer.NewConsumer(cfg, adapter.handleMessage, connManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create change feed consumer: %w", err)
	}
	adapter.consumer = consumer
	return adapter, nil
}

func (a *ChangeFeedConsumerAdapter) handleMessage(d amqp.Delivery) error {
	if a.validator != nil {
		if err := a.validator.ValidateChangeEvent(d.Body); err != nil {
			// Отравленное сообщение не должно ломать view: отклоняем и
			// едем дальше.
			a.logger.Warn("Dropping invalid change event", port.Fields{"error": err.Error()})
			return err
		}
	}

	var ev domain.ChangeEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		a.logger.Warn("Dropping undecodable change event", port.Fields{"error": err.Error()})
		return err
	}

	a.dispatch(ev)
	return nil
}

// Start блокируется до отмены контекста или обрыва ленты. Обрыв - это
// SubscriptionFailure для всех открытых view; решение о переподписке
// принимает вызывающий.
func (a *ChangeFeedConsumerAdapter) Start(ctx context.Context) error {
	return a.consumer.StartConsuming(ctx)
}

func (a *ChangeFeedConsumerAdapter) Close() error {
	return a.consumer.Close()
}
