package queue

import (
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/docsense/aicore/pkg/logger"
)

// Rabbit manages the AMQP connection and channel for the ingest queue,
// with automatic reconnection.
type Rabbit struct {
	cfg            Config
	conn           *amqp.Connection
	channel        *amqp.Channel
	logger         *logger.Logger
	mu             sync.RWMutex
	shutdownSignal chan struct{}

	closeShutdownOnce sync.Once
}

// NewClient connects to RabbitMQ and declares the ingest exchange, queue,
// and binding. Connection failure at startup is fatal.
func NewClient(cfg Config, l *logger.Logger) *Rabbit {
	conn, err := newConnection(cfg, l)
	if err != nil {
		l.Fatal("error in connecting to rabbit", err, nil)
	}

	ch, err := connectToChannel(conn, cfg, l)
	if ch == nil || err != nil {
		l.Fatal("error in declaring rabbit channel", err, nil)
	}

	return &Rabbit{
		cfg:            cfg,
		conn:           conn,
		channel:        ch,
		logger:         l,
		shutdownSignal: make(chan struct{}),
	}
}

func newConnection(cfg Config, l *logger.Logger) (*amqp.Connection, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/",
		cfg.Connection.User,
		cfg.Connection.Password,
		cfg.Connection.Host,
		cfg.Connection.Port)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbit: %w", err)
	}

	l.Info("connected to rabbit", nil, map[string]interface{}{
		"host": cfg.Connection.Host,
		"port": cfg.Connection.Port,
	})
	return conn, nil
}

// connectToChannel declares the exchange, queue, and binding for the ingest
// consumer and applies QoS.
func connectToChannel(conn *amqp.Connection, cfg Config, l *logger.Logger) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Channel.ExchangeName,
		cfg.Channel.ExchangeType,
		true,  // Durable
		false, // AutoDelete
		false, // Internal
		false, // NoWait
		nil,   // Arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		cfg.Channel.QueueName,
		true,  // Durable
		false, // AutoDelete
		false, // Exclusive
		false, // NoWait
		nil,   // Arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = ch.QueueBind(
		cfg.Channel.QueueName,
		cfg.Channel.RoutingKey,
		cfg.Channel.ExchangeName,
		false, // NoWait
		nil,   // Arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	if cfg.Channel.PrefetchCount > 0 {
		if err := ch.Qos(cfg.Channel.PrefetchCount, 0, false); err != nil {
			return nil, fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	return ch, nil
}

// retryConnection monitors the connection and re-establishes it when it
// closes. Runs as a goroutine until shutdown.
func (rb *Rabbit) retryConnection(cfg Config, l *logger.Logger) {
outerLoop:
	for {
		errChan := make(chan *amqp.Error, 1)
		rb.conn.NotifyClose(errChan)

		select {
		case <-rb.shutdownSignal:
			l.Info("Stopping retryConnection loop due to shutdown signal", nil, nil)
			return

		case amqpErr := <-errChan:
			if amqpErr != nil {
				l.Warn("rabbit connection closed, retrying", amqpErr, nil)
			}
		reconnectLoop:
			for {
				select {
				case <-rb.shutdownSignal:
					return
				default:
					newConn, err := newConnection(cfg, l)
					if err != nil {
						l.Error("rabbit reconnection failed", err, nil)
						time.Sleep(time.Second)
						continue reconnectLoop
					}

					rb.mu.Lock()
					rb.conn = newConn
					if rb.channel != nil {
						_ = rb.channel.Close()
					}
					rb.channel, err = connectToChannel(newConn, cfg, l)
					rb.mu.Unlock()

					if err != nil {
						l.Error("failed to reopen rabbit channel, retrying", err, nil)
						time.Sleep(time.Second)
						continue reconnectLoop
					}

					l.Info("reconnected to rabbit", nil, nil)
					continue outerLoop
				}
			}
		}
	}
}

// gracefulShutdown closes the channel and connection.
func (rb *Rabbit) gracefulShutdown() {
	rb.closeShutdownOnce.Do(func() {
		close(rb.shutdownSignal)
	})

	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.logger.Info("closing rabbit channel...", nil, nil)

	if rb.channel != nil {
		if err := rb.channel.Close(); err != nil {
			rb.logger.Error("error in closing rabbit channel", err, nil)
			return
		}
	}
	if rb.conn != nil && !rb.conn.IsClosed() {
		if err := rb.conn.Close(); err != nil {
			rb.logger.Error("error in closing rabbit connection", err, nil)
		}
	}
}
