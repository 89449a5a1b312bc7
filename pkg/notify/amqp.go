package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/google/uuid"

	"github.com/tusrelay/tusrelay/pkg/upload"
)

// AMQPDeclareOptions controls whether Prepare declares the exchange
// and per-hook queues.
type AMQPDeclareOptions struct {
	DeclareExchange bool
	DurableExchange bool
	DeclareQueues   bool
	DurableQueues   bool
}

// AMQPNotifier publishes hook messages to a RabbitMQ exchange.
type AMQPNotifier struct {
	conn         *amqp.Connection
	ExchangeName string
	ExchangeKind string
	QueuesPrefix string
	RoutingKey   string // overrides the per-hook queue name when set
	Declare      AMQPDeclareOptions
	Celery       bool
	Format       Format
}

// NewAMQPNotifier dials the broker and returns a ready-to-Prepare
// notifier. A single long-lived connection is kept and a fresh channel
// is opened per publish, since AMQP channels are not safe for
// concurrent use but connections are cheap to multiplex over.
func NewAMQPNotifier(url, exchangeName, exchangeKind, queuesPrefix, routingKey string, declare AMQPDeclareOptions, celery bool, format Format) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp notifier: dial failed: %w", err)
	}

	return &AMQPNotifier{
		conn: conn, ExchangeName: exchangeName, ExchangeKind: exchangeKind,
		QueuesPrefix: queuesPrefix, RoutingKey: routingKey, Declare: declare,
		Celery: celery, Format: format,
	}, nil
}

func (n *AMQPNotifier) Name() string { return "amqp" }

// queueName returns the routing key override or "<prefix>.<hook>".
func (n *AMQPNotifier) queueName(hook upload.Hook) string {
	if n.RoutingKey != "" {
		return n.RoutingKey
	}
	return fmt.Sprintf("%s.%s", n.QueuesPrefix, hook)
}

func (n *AMQPNotifier) Prepare(ctx context.Context) error {
	ch, err := n.conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp notifier: open channel: %w", err)
	}
	defer ch.Close()

	if n.Declare.DeclareExchange {
		if err := ch.ExchangeDeclare(n.ExchangeName, n.ExchangeKind, n.Declare.DurableExchange, false, false, false, nil); err != nil {
			return fmt.Errorf("amqp notifier: declare exchange: %w", err)
		}
	}

	if n.Declare.DeclareQueues {
		for _, hook := range upload.AllHooks {
			queueName := n.queueName(hook)
			if _, err := ch.QueueDeclare(queueName, n.Declare.DurableQueues, false, false, false, nil); err != nil {
				return fmt.Errorf("amqp notifier: declare queue %s: %w", queueName, err)
			}
			if err := ch.QueueBind(queueName, queueName, n.ExchangeName, false, nil); err != nil {
				return fmt.Errorf("amqp notifier: bind queue %s: %w", queueName, err)
			}
		}
	}

	return nil
}

func (n *AMQPNotifier) Send(ctx context.Context, hook upload.Hook, message upload.HookMessage) error {
	body, err := FormatMessage(n.Format, message)
	if err != nil {
		return err
	}

	ch, err := n.conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp notifier: open channel: %w", err)
	}
	defer ch.Close()

	queue := n.queueName(hook)
	routingKey := queue
	if n.RoutingKey != "" {
		routingKey = n.RoutingKey
	}

	payload := body
	headers := amqp.Table{}
	if n.Celery {
		wrapped, err := json.Marshal([]interface{}{[]json.RawMessage{body}, map[string]interface{}{}, map[string]interface{}{}})
		if err != nil {
			return err
		}
		payload = wrapped
		headers["id"] = uuid.NewString()
		headers["task"] = fmt.Sprintf("relay.%s", hook)
	}

	return ch.PublishWithContext(ctx, n.ExchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:     "application/json",
		ContentEncoding: "utf-8",
		Headers:         headers,
		Body:            payload,
	})
}
