package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "meetscribe/internal/errors"
)

type fakeAcknowledger struct {
	acks  int
	nacks int
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error { a.acks++; return nil }

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error { a.nacks++; return nil }

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error { a.nacks++; return nil }

type fakeBroker struct {
	deliveries  chan amqp.Delivery
	redelivered []int
}

func (b *fakeBroker) Consume(queue, consumerTag string) (<-chan amqp.Delivery, error) {
	return b.deliveries, nil
}

func (b *fakeBroker) Redeliver(d amqp.Delivery, retryCount int) error {
	b.redelivered = append(b.redelivered, retryCount)
	return nil
}

func TestRunAcksSuccessfulDeliveryAndStopsAtMaxTasks(t *testing.T) {
	ack := &fakeAcknowledger{}
	b := &fakeBroker{deliveries: make(chan amqp.Delivery, 1)}
	b.deliveries <- amqp.Delivery{Acknowledger: ack}

	var handled int
	r := &Runner{
		Broker:   b,
		Queue:    "q",
		Handler:  func(ctx context.Context, d amqp.Delivery) error { handled++; return nil },
		MaxTasks: 1,
	}

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 1, handled)
	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, b.redelivered)
}

func TestRunRedeliversRetriableFailureWithIncrementedCount(t *testing.T) {
	ack := &fakeAcknowledger{}
	b := &fakeBroker{deliveries: make(chan amqp.Delivery, 1)}
	b.deliveries <- amqp.Delivery{
		Acknowledger: ack,
		Headers:      amqp.Table{"x-retry-count": int32(1)},
	}

	r := &Runner{
		Broker:     b,
		Queue:      "q",
		Handler:    func(ctx context.Context, d amqp.Delivery) error { return &pkgerrors.StorageError{Op: "save", Err: errors.New("boom")} },
		MaxRetries: 3,
		MaxTasks:   1,
	}

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, []int{2}, b.redelivered)
	assert.Equal(t, 1, ack.acks)
}

func TestRunDropsNonRetriableFailure(t *testing.T) {
	ack := &fakeAcknowledger{}
	b := &fakeBroker{deliveries: make(chan amqp.Delivery, 1)}
	b.deliveries <- amqp.Delivery{Acknowledger: ack}

	r := &Runner{
		Broker:     b,
		Queue:      "q",
		Handler:    func(ctx context.Context, d amqp.Delivery) error { return &pkgerrors.InvalidStateError{Kind: "meeting"} },
		MaxRetries: 3,
		MaxTasks:   1,
	}

	require.NoError(t, r.Run(context.Background()))
	assert.Empty(t, b.redelivered)
	assert.Equal(t, 1, ack.acks)
}

func TestRunDropsDeliveryOutOfRetries(t *testing.T) {
	ack := &fakeAcknowledger{}
	b := &fakeBroker{deliveries: make(chan amqp.Delivery, 1)}
	b.deliveries <- amqp.Delivery{
		Acknowledger: ack,
		Headers:      amqp.Table{"x-retry-count": int32(3)},
	}

	r := &Runner{
		Broker:     b,
		Queue:      "q",
		Handler:    func(ctx context.Context, d amqp.Delivery) error { return &pkgerrors.StorageError{Op: "save", Err: errors.New("boom")} },
		MaxRetries: 3,
		MaxTasks:   1,
	}

	require.NoError(t, r.Run(context.Background()))
	assert.Empty(t, b.redelivered)
	assert.Equal(t, 1, ack.acks)
}

func TestRunReturnsOnContextCancel(t *testing.T) {
	b := &fakeBroker{deliveries: make(chan amqp.Delivery)}
	r := &Runner{Broker: b, Queue: "q", Handler: func(ctx context.Context, d amqp.Delivery) error { return nil }}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop on cancel")
	}
}
