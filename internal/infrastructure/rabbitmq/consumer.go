package rabbitmq

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/catalog-service/internal/core/domain/inventory"
	"github.com/avatarctic/catalog-service/internal/core/ports"
)

// ErrPoisonMessage marks a delivery that can never be handled and must not be requeued.
var ErrPoisonMessage = inventory.ErrMalformedMessage

// Consumer reads the inventory queue with manual acks and resubscribes after reconnects.
type Consumer struct {
	conn       *Connection
	queue      string
	tag        string
	handler    ports.InventoryLedgerService
	retryDelay time.Duration
	logger     *logrus.Logger
}

// NewConsumer creates a consumer. The connection should be set up with
// DeclareQueueSetup(queue, false, prefetch).
func NewConsumer(conn *Connection, queue, tag string, handler ports.InventoryLedgerService, retryDelay time.Duration, logger *logrus.Logger) *Consumer {
	if retryDelay <= 0 {
		retryDelay = defaultReconnectDelay
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Consumer{conn: conn, queue: queue, tag: tag, handler: handler, retryDelay: retryDelay, logger: logger}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		ch, err := c.conn.Channel()
		if errors.Is(err, ErrConnectionClosed) {
			return nil
		}
		if err != nil {
			c.wait(ctx)
			continue
		}

		deliveries, err := ch.Consume(
			c.queue, // queue
			c.tag,   // consumer tag
			false,   // auto-ack
			false,   // exclusive
			false,   // no-local
			false,   // no-wait
			nil,     // args
		)
		if err != nil {
			c.logger.WithError(err).Warn("could not start consume")
			c.wait(ctx)
			continue
		}

		c.logger.WithField("queue", c.queue).Info("consuming inventory events")
		c.drain(ctx, deliveries)
	}
}

func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	err := c.handler.HandleMessage(ctx, d.MessageId, d.Body)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.WithError(ackErr).WithField("message_id", d.MessageId).Warn("ack failed; message will be redelivered")
		}
		return
	}

	requeue := !errors.Is(err, ErrPoisonMessage)
	c.logger.WithError(err).WithFields(logrus.Fields{"message_id": d.MessageId, "requeue": requeue}).Error("inventory event not applied")
	if nackErr := d.Nack(false, requeue); nackErr != nil {
		c.logger.WithError(nackErr).WithField("message_id", d.MessageId).Warn("nack failed")
	}
}

func (c *Consumer) wait(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(c.retryDelay):
	}
}
