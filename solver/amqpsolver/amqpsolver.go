// Package amqpsolver runs plan searches as RPC over RabbitMQ. Requests go to
// a work queue; each client owns an exclusive reply queue and matches replies
// by correlation id.
package amqpsolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/pddlplanning/pddlplanning-go/ontology"
	"github.com/pddlplanning/pddlplanning-go/planning"
)

// Config configures both the client and the server side.
type Config struct {
	URL          string `json:"url" yaml:"url"`
	Queue        string `json:"queue" yaml:"queue"`
	QueueDurable bool   `json:"queue_durable" yaml:"queue_durable"`
	Prefetch     int    `json:"prefetch" yaml:"prefetch"`
	// Expiration bounds how long a request waits in the queue.
	Expiration time.Duration `json:"expiration" yaml:"expiration"`
}

func validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}
	if config.URL == "" {
		return fmt.Errorf("url is required")
	}
	if config.Queue == "" {
		return fmt.Errorf("queue is required")
	}
	return nil
}

// Client is a planning.Solver that publishes requests to a queue.
type Client struct {
	config  *Config
	conn    *amqp.Connection
	channel *amqp.Channel
	replyTo string
	pending *pending

	publishMu sync.Mutex
	done      chan struct{}
}

// Dial connects, declares the reply queue and starts consuming replies.
func Dial(config *Config) (*Client, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, planning.Unavailable(err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, planning.Unavailable(err)
	}
	replies, err := channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare reply queue: %w", err)
	}
	deliveries, err := channel.Consume(replies.Name, "", true, true, false, false, nil)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to consume reply queue: %w", err)
	}

	c := &Client{
		config:  config,
		conn:    conn,
		channel: channel,
		replyTo: replies.Name,
		pending: newPending(),
		done:    make(chan struct{}),
	}
	go c.dispatch(deliveries)
	return c, nil
}

func (c *Client) dispatch(deliveries <-chan amqp.Delivery) {
	defer close(c.done)
	defer c.pending.closeAll()
	for d := range deliveries {
		c.pending.resolve(d.CorrelationId, d.Body)
	}
}

// SearchPlan publishes a request and waits for the matching reply.
func (c *Client) SearchPlan(ctx context.Context, domain, problem string) ([]ontology.Task, error) {
	body, err := json.Marshal(request{Domain: domain, Problem: problem})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	id := uuid.NewString()
	reply := c.pending.add(id)
	defer c.pending.remove(id)

	msg := amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: id,
		ReplyTo:       c.replyTo,
		Timestamp:     time.Now(),
		Body:          body,
	}
	if c.config.Expiration > 0 {
		msg.Expiration = fmt.Sprintf("%d", c.config.Expiration.Milliseconds())
	}

	c.publishMu.Lock()
	err = c.channel.PublishWithContext(ctx, "", c.config.Queue, false, false, msg)
	c.publishMu.Unlock()
	if err != nil {
		return nil, planning.Unavailable(err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case body, ok := <-reply:
		if !ok {
			return nil, planning.Unavailable(errors.New("reply channel closed"))
		}
		return decodeResponse(body)
	}
}

// Close closes the channel and the connection.
func (c *Client) Close() error {
	c.channel.Close()
	err := c.conn.Close()
	<-c.done
	return err
}

// Serve answers requests from config.Queue with solver until ctx is done.
func Serve(ctx context.Context, config *Config, solver planning.Solver, logger *zap.Logger) error {
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Prefetch == 0 {
		config.Prefetch = 1
	}

	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return planning.Unavailable(err)
	}
	defer conn.Close()
	channel, err := conn.Channel()
	if err != nil {
		return planning.Unavailable(err)
	}
	defer channel.Close()

	if _, err := channel.QueueDeclare(config.Queue, config.QueueDurable, !config.QueueDurable, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", config.Queue, err)
	}
	if err := channel.Qos(config.Prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}
	deliveries, err := channel.Consume(config.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", config.Queue, err)
	}

	logger.Info("serving plan requests", zap.String("queue", config.Queue))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return planning.Unavailable(errors.New("delivery channel closed"))
			}
			reply := handle(ctx, solver, d.Body)
			if d.ReplyTo != "" {
				err := channel.PublishWithContext(ctx, "", d.ReplyTo, false, false, amqp.Publishing{
					ContentType:   "application/json",
					CorrelationId: d.CorrelationId,
					Body:          reply,
				})
				if err != nil {
					logger.Warn("failed to publish reply", zap.String("correlation_id", d.CorrelationId), zap.Error(err))
				}
			}
			if err := d.Ack(false); err != nil {
				logger.Warn("failed to ack request", zap.String("correlation_id", d.CorrelationId), zap.Error(err))
			}
		}
	}
}
