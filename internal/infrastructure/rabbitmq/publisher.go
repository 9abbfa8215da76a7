package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/catalog-service/internal/core/domain/inventory"
	"github.com/avatarctic/catalog-service/internal/core/ports"
)

var (
	// ErrPublisherClosed is returned for publishes attempted after Close.
	ErrPublisherClosed = errors.New("rabbitmq: publisher closed")
	// ErrNacked means the broker refused responsibility for the message.
	ErrNacked = errors.New("rabbitmq: message nacked by broker")
)

// channelSource hands out the current live channel.
type channelSource interface {
	Channel() (*amqp.Channel, error)
	Close(ctx context.Context) error
}

// Publisher sends inventory events to a durable queue with publisher confirms.
type Publisher struct {
	conn   channelSource
	queue  string
	logger *logrus.Logger

	// serializes frames on the shared channel; confirms are awaited outside it
	sendMu sync.Mutex

	stateMu  sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
}

// NewPublisher creates a new InventoryPublisher on a managed connection.
// The connection should be set up with DeclareQueueSetup(queue, true, 0).
func NewPublisher(conn *Connection, queue string, logger *logrus.Logger) *Publisher {
	return newPublisher(conn, queue, logger)
}

func newPublisher(conn channelSource, queue string, logger *logrus.Logger) *Publisher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Publisher{conn: conn, queue: queue, logger: logger}
}

// Publish returns nil once the broker has confirmed the message.
func (p *Publisher) Publish(ctx context.Context, event inventory.Event) error {
	p.stateMu.RLock()
	if p.closed {
		p.stateMu.RUnlock()
		return ErrPublisherClosed
	}
	p.inflight.Add(1)
	p.stateMu.RUnlock()
	defer p.inflight.Done()

	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}

	body, err := json.Marshal(event.Message())
	if err != nil {
		return fmt.Errorf("could not marshal inventory event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.EmittedAt,
		Body:         body,
	}

	p.sendMu.Lock()
	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		msg,
	)
	p.sendMu.Unlock()
	if err != nil {
		return fmt.Errorf("could not publish inventory event: %w", err)
	}
	if confirm == nil {
		// channel is not in confirm mode; the write reached the socket
		return nil
	}

	select {
	case <-confirm.Done():
		if !confirm.Acked() {
			return ErrNacked
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("rabbitmq: confirm not received: %w", ctx.Err())
	}
}

// Name identifies the publisher during shutdown.
func (p *Publisher) Name() string { return "inventory-publisher" }

// Close stops accepting publishes, waits for in-flight ones until ctx ends,
// then closes the channel and connection.
func (p *Publisher) Close(ctx context.Context) error {
	p.stateMu.Lock()
	if p.closed {
		p.stateMu.Unlock()
		return nil
	}
	p.closed = true
	p.stateMu.Unlock()

	drained := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		p.logger.WithError(ctx.Err()).Warn("closing publisher with publishes still in flight")
	}

	return p.conn.Close(ctx)
}

var _ ports.InventoryPublisher = (*Publisher)(nil)
