package event

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"orderservice/pkg/common/domain"
)

// Dispatch writes synchronously, so the writer must not sit on kafka-go's
// default one second batch window.
const batchTimeout = 10 * time.Millisecond

type KafkaDispatcher struct {
	writer *kafka.Writer
}

func NewKafkaDispatcher(brokersCSV, topic string) (*KafkaDispatcher, error) {
	writer, err := newKafkaWriter(brokersCSV, topic)
	if err != nil {
		return nil, err
	}
	return &KafkaDispatcher{writer: writer}, nil
}

func newKafkaWriter(brokersCSV, topic string) (*kafka.Writer, error) {
	var brokers []string
	for _, b := range strings.Split(brokersCSV, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}

	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: batchTimeout,
		BatchSize:    100,
	}, nil
}

func (d *KafkaDispatcher) Dispatch(event domain.Event) error {
	msg, err := encode(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.key),
		Value: msg.body,
		Time:  msg.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(msg.ID.String())},
			{Key: "event-type", Value: []byte(msg.Type)},
		},
	})
	return errors.Wrapf(err, "failed to publish %s", msg.Type)
}

func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}
