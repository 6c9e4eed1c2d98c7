package amqp

import (
	"context"
	"encoding/json"

	"github.com/eshaffer321/fintrack-go/pkg/fintrack"
	"github.com/pkg/errors"
)

// BindQueue declares a durable queue and binds it to the exchange for each
// routing key. Use "#" for every event.
func (p *Publisher) BindQueue(queue string, keys ...string) error {
	_, err := p.channel.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return errors.Wrap(err, "declare queue")
	}

	if len(keys) == 0 {
		keys = []string{"#"}
	}
	for _, key := range keys {
		if err := p.channel.QueueBind(queue, key, p.exchange, false, nil); err != nil {
			return errors.Wrapf(err, "bind queue to %q", key)
		}
	}
	return nil
}

// Consume delivers events from queue to handler until ctx is done. Messages
// that cannot be decoded are dropped; handler failures are requeued.
func (p *Publisher) Consume(ctx context.Context, queue string, handler func(context.Context, *fintrack.Event) error) error {
	msgs, err := p.channel.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return errors.Wrap(err, "start consuming")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("amqp: delivery channel closed")
			}

			var event fintrack.Event
			if err := json.Unmarshal(delivery.Body, &event); err != nil {
				p.warn("Dropping undecodable event", "error", err)
				_ = delivery.Nack(false, false)
				continue
			}

			if err := handler(ctx, &event); err != nil {
				p.warn("Event handler failed", "type", event.Type, "id", event.ID, "error", err)
				_ = delivery.Nack(false, true)
				continue
			}

			_ = delivery.Ack(false)
		}
	}
}

func (p *Publisher) warn(msg string, keysAndValues ...interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, keysAndValues...)
	}
}
