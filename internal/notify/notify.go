// Package notify announces launched campaigns to delivery workers over
// AMQP. Notification is best effort: workers also poll the queue on an
// interval, so a lost message only delays delivery.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ignite/email-delivery/internal/pkg/logger"
	"github.com/ignite/email-delivery/internal/service/campaign"
	"github.com/streadway/amqp"
)

// DefaultQueue is used when no queue name is configured.
const DefaultQueue = "email_batches"

// channel is the subset of *amqp.Channel used here.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Noop discards notifications.
type Noop struct{}

func (Noop) NotifyBatchReady(context.Context, campaign.BatchReady) error { return nil }

// AMQP publishes and consumes batch-ready messages on a durable queue.
type AMQP struct {
	conn  *amqp.Connection
	ch    channel
	queue string
	mu    sync.Mutex
}

// Dial connects and declares the queue.
func Dial(url, queue string) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	a, err := newAMQP(ch, queue)
	if err != nil {
		conn.Close()
		return nil, err
	}
	a.conn = conn
	return a, nil
}

func newAMQP(ch channel, queue string) (*AMQP, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &AMQP{ch: ch, queue: queue}, nil
}

// NotifyBatchReady publishes b as a persistent JSON message.
func (a *AMQP) NotifyBatchReady(_ context.Context, b campaign.BatchReady) error {
	body, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode batch ready: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	err = a.ch.Publish("", a.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish batch ready: %w", err)
	}
	logger.Debug("[Notify] batch ready published", "campaign_id", b.CampaignID, "queued", b.Queued)
	return nil
}

// Consume hands each message to fn until ctx is done or the channel
// closes. Malformed messages are dropped. A failed message is requeued
// once and dropped on its second failure.
func (a *AMQP) Consume(ctx context.Context, fn func(context.Context, campaign.BatchReady) error) error {
	deliveries, err := a.ch.Consume(a.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", a.queue, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("amqp deliveries closed")
			}
			handle(ctx, d, fn)
		}
	}
}

func handle(ctx context.Context, d amqp.Delivery, fn func(context.Context, campaign.BatchReady) error) {
	var b campaign.BatchReady
	if err := json.Unmarshal(d.Body, &b); err != nil {
		logger.Warn("[Notify] dropping malformed message", "error", err)
		d.Ack(false)
		return
	}
	if err := fn(ctx, b); err != nil {
		logger.Error("[Notify] batch handler failed", "campaign_id", b.CampaignID, "redelivered", d.Redelivered, "error", err)
		d.Nack(false, !d.Redelivered)
		return
	}
	d.Ack(false)
}

// Close shuts the channel and connection.
func (a *AMQP) Close() error {
	a.ch.Close()
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}
