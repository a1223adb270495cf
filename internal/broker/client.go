package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

// Client wraps one AMQP connection and channel. Each worker process opens
// exactly one; the publish side takes no lock of its own because
// amqp.Channel serializes concurrent sends internally, which the
// summarizer relies on when its three consume loops share one Client.
type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects to the broker and declares the topic exchanges and queues
// the pipeline needs, with bindings matching spec.md §6's routing keys.
func Dial(url string, prefetch int) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("broker: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("broker: open channel: %w", err)
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("broker: set qos: %w", err)
	}

	c := &Client{conn: conn, ch: ch}
	if err := c.topology(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) topology() error {
	for _, exchange := range []string{TranscribeExchange, SummarizeExchange} {
		if err := c.ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("broker: declare exchange %s: %w", exchange, err)
		}
	}

	bindings := []struct {
		queue, exchange, routingKey string
	}{
		{QueueDispatch, TranscribeExchange, RoutingStart},
		{QueueChunk, TranscribeExchange, RoutingChunk},
		{QueueMerge, TranscribeExchange, RoutingMerge},
		{QueueSummarize, SummarizeExchange, RoutingSummarizeGenerate},
		{QueueKeyNotes, SummarizeExchange, RoutingKeyNotesTask},
		{QueueTasks, SummarizeExchange, RoutingTasksTask},
	}
	for _, b := range bindings {
		if _, err := c.ch.QueueDeclare(b.queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("broker: declare queue %s: %w", b.queue, err)
		}
		if err := c.ch.QueueBind(b.queue, b.routingKey, b.exchange, false, nil); err != nil {
			return fmt.Errorf("broker: bind queue %s: %w", b.queue, err)
		}
	}
	return nil
}

// Close tears down the channel and connection.
func (c *Client) Close() error {
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Publish JSON-encodes body and publishes it to exchange under routingKey
// with a persistent delivery mode and the given deterministic message id
// (enabling broker-side dedup for chunk/merge messages per spec.md §5).
func (c *Client) Publish(ctx context.Context, exchange, routingKey, messageID string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("broker: marshal message: %w", err)
	}
	return c.ch.Publish(exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Body:         data,
	})
}

// Redeliver republishes a consumed delivery back onto its original
// exchange/routing key with an incremented retry count header. The worker
// runner uses this for task-level retries: ack the original, republish a
// counted copy, so a poisoned message cannot loop forever the way a bare
// Nack(requeue) would.
func (c *Client) Redeliver(d amqp.Delivery, retryCount int) error {
	return c.ch.Publish(d.Exchange, d.RoutingKey, false, false, amqp.Publishing{
		ContentType:  d.ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    d.MessageId,
		Headers:      amqp.Table{retryCountHeader: int32(retryCount)},
		Body:         d.Body,
	})
}

// retryCountHeader carries how many task-level retries a delivery has
// already consumed.
const retryCountHeader = "x-retry-count"

// RetryCount reads the retry count header off a delivery, zero when the
// delivery is a first attempt.
func RetryCount(d amqp.Delivery) int {
	if d.Headers == nil {
		return 0
	}
	switch v := d.Headers[retryCountHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// Consume returns a late-ack delivery channel for queue: task_acks_late
// semantics are realized by the caller acking/nacking each delivery only
// after its work completes, never auto-acking (spec.md §5).
func (c *Client) Consume(queue, consumerTag string) (<-chan amqp.Delivery, error) {
	return c.ch.Consume(queue, consumerTag, false, false, false, false, nil)
}
