package rabbitmq_consumer

import (
	"context"
	"fmt"
	"sync"

	"catalog-view-service/pkg/rabbitmq/rabbitmq_common"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler - обработчик одного сообщения. Возврат ошибки приводит к
// nack без requeue: лента изменений - это поток фактов, переигрывать
// отравленное сообщение бессмысленно.
type MessageHandler func(delivery amqp.Delivery) error

// ConsumerConfig - конфигурация потребителя.
type ConsumerConfig struct {
	rabbitmq_common.Config
	// QueueName пустое - сервер сгенерирует эксклюзивную очередь
	// (паттерн "своя очередь на инстанс" для fanout-ленты).
	QueueName       string
	DurableQueue    bool
	ExclusiveQueue  bool
	AutoDeleteQueue bool
	QueueArgs       amqp.Table

	// Привязка к обменнику (пустое имя - без привязки).
	ExchangeNameForBind    string
	DeclareExchangeForBind bool
	ExchangeTypeForBind    string
	DurableExchangeForBind bool
	RoutingKeyForBind      string

	PrefetchCount int
	ConsumerTag   string

	Logger rabbitmq_common.Logger
}

// Consumer читает одну очередь и передает доставки обработчику по одной
// (сериализация на уровне канала с prefetch=1 - порядок прибытия
// сохраняется).
type Consumer struct {
	config          ConsumerConfig
	connection      *amqp.Connection
	channel         *amqp.Channel
	actualQueueName string // имя может быть сгенерировано сервером
	handler         MessageHandler
	wg              sync.WaitGroup

	Logger rabbitmq_common.Logger
}

func NewConsumer(cfg ConsumerConfig, handler MessageHandler, connManager *rabbitmq_common.ConnectionManager) (*Consumer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = rabbitmq_common.NewNoopLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("consumer: invalid base config: %w", err)
	}
	if handler == nil {
		return nil, fmt.Errorf("consumer: message handler is required")
	}
	if cfg.ExchangeNameForBind != "" && cfg.DeclareExchangeForBind && cfg.ExchangeTypeForBind == "" {
		return nil, fmt.Errorf("consumer: exchange type is required when declaring the exchange for binding")
	}

	c := &Consumer{
		config:  cfg,
		handler: handler,
		Logger:  logger,
	}

	conn, ch, err := connManager.GetChannel()
	if err != nil {
		return nil, fmt.Errorf("consumer: failed to get channel from manager: %w", err)
	}
	c.connection = conn
	c.channel = ch

	if err := c.setup(); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("consumer: setup failed: %w", err)
	}
	return c, nil
}

func (c *Consumer) setup() error {
	if c.config.PrefetchCount > 0 {
		if err := c.channel.Qos(c.config.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	c.Logger.Debug("Declaring queue",
		"name", c.config.QueueName,
		"durable", c.config.DurableQueue,
		"exclusive", c.config.ExclusiveQueue,
	)
	q, err := c.channel.QueueDeclare(
		c.config.QueueName,
		c.config.DurableQueue,
		c.config.AutoDeleteQueue,
		c.config.ExclusiveQueue,
		false, // no-wait
		c.config.QueueArgs,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue '%s': %w", c.config.QueueName, err)
	}
	c.actualQueueName = q.Name

	if c.config.ExchangeNameForBind != "" {
		if c.config.DeclareExchangeForBind {
			c.Logger.Debug("Declaring exchange",
				"name", c.config.ExchangeNameForBind,
				"type", c.config.ExchangeTypeForBind,
			)
			err = c.channel.ExchangeDeclare(
				c.config.ExchangeNameForBind,
				c.config.ExchangeTypeForBind,
				c.config.DurableExchangeForBind,
				false, // auto-delete
				false, // internal
				false, // no-wait
				nil,
			)
			if err != nil {
				return fmt.Errorf("failed to declare exchange '%s': %w", c.config.ExchangeNameForBind, err)
			}
		}

		c.Logger.Debug("Binding queue to exchange",
			"queue_name", c.actualQueueName,
			"exchange_name", c.config.ExchangeNameForBind,
			"routing_key", c.config.RoutingKeyForBind,
		)
		err = c.channel.QueueBind(
			c.actualQueueName,
			c.config.RoutingKeyForBind,
			c.config.ExchangeNameForBind,
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("failed to bind queue '%s' to exchange '%s': %w", c.actualQueueName, c.config.ExchangeNameForBind, err)
		}
	}

	c.Logger.Debug("Setup complete", "queue", c.actualQueueName)
	return nil
}

// StartConsuming блокируется до отмены контекста или обрыва канала
// доставки. Обрыв (закрытие канала со стороны брокера) возвращается
// ошибкой - вызывающий решает, что делать с деградацией.
func (c *Consumer) StartConsuming(ctx context.Context) error {
	if c.channel == nil || c.connection == nil || c.connection.IsClosed() {
		return fmt.Errorf("consumer: not connected")
	}

	msgs, err := c.channel.Consume(
		c.actualQueueName,
		c.config.ConsumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consumer %s: failed to register on queue '%s': %w", c.config.ConsumerTag, c.actualQueueName, err)
	}

	c.Logger.Info("[*] Waiting for messages on queue", "queue_name", c.actualQueueName)

	for {
		select {
		case <-ctx.Done():
			c.Logger.Info("Context cancelled. Exiting consumption loop.")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("consumer: delivery channel closed by broker")
			}
			c.wg.Add(1)
			c.handleDelivery(d)
			c.wg.Done()
		}
	}
}

func (c *Consumer) handleDelivery(d amqp.Delivery) {
	if err := c.handler(d); err != nil {
		c.Logger.Error(err, "Handler failed, rejecting message", "routing_key", d.RoutingKey)
		if nackErr := d.Nack(false, false); nackErr != nil {
			c.Logger.Error(nackErr, "Failed to nack message")
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		c.Logger.Error(ackErr, "Failed to ack message")
	}
}

// Close закрывает канал потребителя после завершения обработчиков.
func (c *Consumer) Close() error {
	c.Logger.Debug("Waiting for message handlers to finish...")
	c.wg.Wait()

	if c.channel == nil {
		return nil
	}
	if err := c.channel.Close(); err != nil {
		c.Logger.Error(err, "Error closing consumer channel")
		c.channel = nil
		return err
	}
	c.channel = nil
	c.Logger.Info("Consumer closed")
	return nil
}
