package service

import (
	"github.com/sirupsen/logrus"

	"orderservice/pkg/common/domain"
)

func dispatchEvents(dispatcher domain.EventDispatcher, logger logrus.FieldLogger, events ...domain.Event) {
	for _, event := range events {
		if err := dispatcher.Dispatch(event); err != nil {
			logger.WithError(err).WithField("event", event.Type()).Error("failed to dispatch event")
		}
	}
}
