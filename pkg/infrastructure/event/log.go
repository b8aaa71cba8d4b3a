package event

import (
	"github.com/sirupsen/logrus"

	"orderservice/pkg/common/domain"
)

// LogDispatcher writes events to the service log. It is used when no broker is configured.
type LogDispatcher struct {
	logger logrus.FieldLogger
}

func NewLogDispatcher(logger logrus.FieldLogger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(event domain.Event) error {
	msg, err := encode(event)
	if err != nil {
		return err
	}

	d.logger.WithFields(logrus.Fields{
		"eventId":   msg.ID,
		"eventType": msg.Type,
		"key":       msg.key,
		"payload":   string(msg.Payload),
	}).Info("domain event")
	return nil
}

func (d *LogDispatcher) Close() error {
	return nil
}
