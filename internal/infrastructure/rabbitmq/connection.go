package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	defaultReconnectDelay = 2 * time.Second
	dialTimeout           = 5 * time.Second
)

var (
	// ErrNotConnected is returned while the broker connection is down.
	ErrNotConnected = errors.New("rabbitmq: not connected")
	// ErrConnectionClosed is returned after Close.
	ErrConnectionClosed = errors.New("rabbitmq: connection closed")
)

// SetupFunc prepares a freshly opened channel: queue declaration, confirm mode, QoS.
type SetupFunc func(ch *amqp.Channel) error

// ConnectionConfig configures a managed connection.
type ConnectionConfig struct {
	URL            string
	ReconnectDelay time.Duration
	Setup          SetupFunc
}

// Connection keeps one AMQP connection and channel alive, redialing after
// every broker-side close until Close is called.
type Connection struct {
	url            string
	reconnectDelay time.Duration
	setup          SetupFunc
	logger         *logrus.Logger

	// dial and release default to connect and closeHandles.
	dial    func() (*amqp.Connection, *amqp.Channel, error)
	release func(conn *amqp.Connection, ch *amqp.Channel)

	mu     sync.RWMutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewConnection creates a managed connection. Call Start to begin dialing.
func NewConnection(cfg ConnectionConfig, logger *logrus.Logger) *Connection {
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = defaultReconnectDelay
	}
	if logger == nil {
		logger = logrus.New()
	}
	c := &Connection{
		url:            cfg.URL,
		reconnectDelay: delay,
		setup:          cfg.Setup,
		logger:         logger,
		ready:          make(chan struct{}),
		done:           make(chan struct{}),
	}
	c.dial = c.connect
	c.release = c.closeHandles
	return c
}

// DeclareQueueSetup declares a durable queue and optionally puts the channel in confirm mode.
func DeclareQueueSetup(queue string, confirm bool, prefetch int) SetupFunc {
	return func(ch *amqp.Channel) error {
		if _, err := ch.QueueDeclare(
			queue, // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		); err != nil {
			return fmt.Errorf("could not declare queue: %w", err)
		}
		if confirm {
			if err := ch.Confirm(false); err != nil {
				return fmt.Errorf("could not enable publisher confirms: %w", err)
			}
		}
		if prefetch > 0 {
			if err := ch.Qos(prefetch, 0, false); err != nil {
				return fmt.Errorf("could not set qos: %w", err)
			}
		}
		return nil
	}
}

// Start launches the reconnect loop. It never blocks on the broker.
func (c *Connection) Start() {
	c.wg.Add(1)
	go c.run()
}

// WaitReady blocks until the first successful connect or ctx ends.
func (c *Connection) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Channel returns the live channel or ErrNotConnected.
func (c *Connection) Channel() (*amqp.Channel, error) {
	select {
	case <-c.done:
		return nil, ErrConnectionClosed
	default:
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ch == nil {
		return nil, ErrNotConnected
	}
	return c.ch, nil
}

// Check implements a health probe.
func (c *Connection) Check(_ context.Context) error {
	_, err := c.Channel()
	return err
}

func (c *Connection) run() {
	defer c.wg.Done()
	for {
		conn, ch, err := c.dial()
		if err != nil {
			c.logger.WithError(err).WithField("retry_in", c.reconnectDelay.String()).Warn("rabbitmq connect failed")
			select {
			case <-c.done:
				return
			case <-time.After(c.reconnectDelay):
				continue
			}
		}

		if !c.adopt(conn, ch) {
			return
		}
		connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
		chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
		c.readyOnce.Do(func() { close(c.ready) })
		c.logger.Info("rabbitmq connection established")

		select {
		case <-c.done:
			return
		case amqpErr := <-connClosed:
			c.logger.WithField("reason", amqpErr).Warn("rabbitmq connection lost, reconnecting")
		case amqpErr := <-chClosed:
			c.logger.WithField("reason", amqpErr).Warn("rabbitmq channel lost, reconnecting")
			_ = conn.Close()
		}
		c.mu.Lock()
		c.conn, c.ch = nil, nil
		c.mu.Unlock()

		select {
		case <-c.done:
			return
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *Connection) connect() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(c.url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}
	if c.setup != nil {
		if err := c.setup(ch); err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
	}
	return conn, ch, nil
}

// adopt publishes freshly dialed handles. A dial that finishes after Close
// has already taken the handles is released here and reports false.
func (c *Connection) adopt(conn *amqp.Connection, ch *amqp.Channel) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.release(conn, ch)
		return false
	}
	c.conn, c.ch = conn, ch
	c.mu.Unlock()
	return true
}

func (c *Connection) closeHandles(conn *amqp.Connection, ch *amqp.Channel) {
	if err := closeChannelAndConn(conn, ch); err != nil {
		c.logger.WithError(err).Warn("rabbitmq late connection close failed")
	}
}

func closeChannelAndConn(conn *amqp.Connection, ch *amqp.Channel) error {
	var errs []error
	if ch != nil {
		if err := ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close stops reconnecting and closes the channel, then the connection.
// Calling Close more than once is safe; later calls return nil.
func (c *Connection) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		stopped := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			err = fmt.Errorf("rabbitmq: reconnect loop did not stop: %w", ctx.Err())
		}

		c.mu.Lock()
		conn, ch := c.conn, c.ch
		c.conn, c.ch = nil, nil
		c.closed = true
		c.mu.Unlock()

		err = errors.Join(err, closeChannelAndConn(conn, ch))
	})
	return err
}
