package event

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"orderservice/pkg/common/domain"
)

type AMQPDispatcher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewAMQPDispatcher(url, exchange string) (*AMQPDispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to rabbitmq")
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "failed to open rabbitmq channel")
	}
	if err := channel.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "failed to declare exchange %s", exchange)
	}

	return &AMQPDispatcher{conn: conn, channel: channel, exchange: exchange}, nil
}

func (d *AMQPDispatcher) Dispatch(event domain.Event) error {
	msg, err := encode(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	d.mu.Lock()
	defer d.mu.Unlock()

	err = d.channel.PublishWithContext(ctx, d.exchange, msg.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID.String(),
		Timestamp:    msg.OccurredAt,
		Type:         msg.Type,
		Headers:      amqp.Table{"aggregate-key": msg.key},
		Body:         msg.body,
	})
	return errors.Wrapf(err, "failed to publish %s", msg.Type)
}

func (d *AMQPDispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.channel.Close(); err != nil {
		return errors.Wrap(err, "failed to close rabbitmq channel")
	}
	return d.conn.Close()
}
