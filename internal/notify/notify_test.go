package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ignite/email-delivery/internal/service/campaign"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu         sync.Mutex
	declared   string
	durable    bool
	published  []amqp.Publishing
	deliveries chan amqp.Delivery
	declareErr error
}

func (f *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	f.declared, f.durable = name, durable
	return amqp.Queue{Name: name}, f.declareErr
}

func (f *fakeChannel) Publish(_, _ string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Close() error { return nil }

type ackRecorder struct {
	mu     sync.Mutex
	acks   int
	nacks  []bool
	signal chan struct{}
}

func (a *ackRecorder) Ack(uint64, bool) error {
	a.mu.Lock()
	a.acks++
	a.mu.Unlock()
	a.signal <- struct{}{}
	return nil
}

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	a.nacks = append(a.nacks, requeue)
	a.mu.Unlock()
	a.signal <- struct{}{}
	return nil
}

func (a *ackRecorder) Reject(uint64, bool) error { return nil }

func TestNewAMQP_DeclaresDurableQueue(t *testing.T) {
	ch := &fakeChannel{}
	a, err := newAMQP(ch, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultQueue, a.queue)
	assert.Equal(t, DefaultQueue, ch.declared)
	assert.True(t, ch.durable)

	_, err = newAMQP(&fakeChannel{declareErr: errors.New("access refused")}, "q")
	assert.Error(t, err)
}

func TestNotifyBatchReady(t *testing.T) {
	ch := &fakeChannel{}
	a, err := newAMQP(ch, "batches")
	require.NoError(t, err)

	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, a.NotifyBatchReady(context.Background(), campaign.BatchReady{CampaignID: "c1", Queued: 3, At: at}))

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, uint8(amqp.Persistent), msg.DeliveryMode)

	var got campaign.BatchReady
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, "c1", got.CampaignID)
	assert.Equal(t, 3, got.Queued)
}

func TestConsume(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery)}
	a, err := newAMQP(ch, "batches")
	require.NoError(t, err)

	acks := &ackRecorder{signal: make(chan struct{}, 4)}
	var handled []string
	fn := func(_ context.Context, b campaign.BatchReady) error {
		handled = append(handled, b.CampaignID)
		if b.CampaignID == "bad" {
			return errors.New("queue locked")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Consume(ctx, fn) }()

	send := func(body string, redelivered bool) {
		ch.deliveries <- amqp.Delivery{Acknowledger: acks, Body: []byte(body), Redelivered: redelivered}
		<-acks.signal
	}
	send(`{"campaign_id":"ok","queued":2}`, false)
	send(`not json`, false)
	send(`{"campaign_id":"bad"}`, false)
	send(`{"campaign_id":"bad"}`, true)

	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"ok", "bad", "bad"}, handled)
	assert.Equal(t, 2, acks.acks)
	// first failure requeues, the redelivery is dropped
	assert.Equal(t, []bool{true, false}, acks.nacks)
}

func TestNoop(t *testing.T) {
	var n campaign.Notifier = Noop{}
	assert.NoError(t, n.NotifyBatchReady(context.Background(), campaign.BatchReady{}))
}
