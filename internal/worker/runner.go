// Package worker runs the consume loop every pipeline binary shares:
// pull deliveries off one queue, hand each to a stage handler, ack late,
// and retry retriable failures by republishing a retry-counted copy.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/streadway/amqp"

	"meetscribe/internal/broker"
	pkgerrors "meetscribe/internal/errors"
	"meetscribe/internal/logging"
)

// Handler processes one delivery's body. Returning nil acks the delivery;
// returning an error triggers the runner's retry policy.
type Handler func(ctx context.Context, d amqp.Delivery) error

// Broker is the slice of *broker.Client the runner depends on.
type Broker interface {
	Consume(queue, consumerTag string) (<-chan amqp.Delivery, error)
	Redeliver(d amqp.Delivery, retryCount int) error
}

// Runner consumes one queue until its context is cancelled or MaxTasks
// deliveries have been handled (the worker-recycling knob; zero means
// unlimited).
type Runner struct {
	Broker      Broker
	Queue       string
	ConsumerTag string
	Handler     Handler
	MaxRetries  int
	RetryDelay  time.Duration
	MaxTasks    int
	Log         *logging.Logger
}

// Run blocks consuming the runner's queue. Deliveries are acked only
// after the handler returns, so a worker lost mid-task leaves its message
// unacked for the broker to requeue (task_acks_late semantics).
func (r *Runner) Run(ctx context.Context) error {
	deliveries, err := r.Broker.Consume(r.Queue, r.ConsumerTag)
	if err != nil {
		return err
	}

	handled := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("worker: delivery channel closed")
			}
			r.handle(ctx, d)
			handled++
			if r.MaxTasks > 0 && handled >= r.MaxTasks {
				if r.Log != nil {
					r.Log.Info().Int("handled", handled).Msg("max tasks reached, worker recycling")
				}
				return nil
			}
		}
	}
}

func (r *Runner) handle(ctx context.Context, d amqp.Delivery) {
	err := r.Handler(ctx, d)
	if err == nil {
		d.Ack(false)
		return
	}

	log := r.Log
	if log != nil {
		log = log.WithField("queue", r.Queue).WithField("message_id", d.MessageId).WithError(err)
	}

	attempt := broker.RetryCount(d)
	if !retriable(err) || attempt >= r.MaxRetries {
		// Out of retries (or never retriable). The stage has already moved
		// the meeting to its terminal failed status where one applies; all
		// that is left is to drop the message.
		if log != nil {
			log.Error().Int("attempt", attempt).Msg("task failed terminally, dropping message")
		}
		d.Ack(false)
		return
	}

	if log != nil {
		log.Warn().Int("attempt", attempt).Msg("task failed, scheduling retry")
	}
	if r.RetryDelay > 0 {
		select {
		case <-time.After(r.RetryDelay):
		case <-ctx.Done():
			d.Nack(false, true)
			return
		}
	}
	if err := r.Broker.Redeliver(d, attempt+1); err != nil {
		// Can't republish; put the original back instead.
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

// retriable reports whether err should be retried. Errors outside the
// pipeline taxonomy default to retriable, matching the broker-retries-
// unknown-failures policy.
func retriable(err error) bool {
	var r pkgerrors.Retriable
	if errors.As(err, &r) {
		return r.Retriable()
	}
	return true
}
