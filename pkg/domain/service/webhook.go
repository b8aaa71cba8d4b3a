package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"orderservice/pkg/common/domain"
	"orderservice/pkg/domain/model"
)

type WebhookReconciler interface {
	// Reconcile verifies a gateway notification and applies it to the referenced
	// order. Every verified event is acknowledged with a nil error, including
	// events for orders that do not exist. Redelivered events change nothing.
	Reconcile(ctx context.Context, payload []byte, signature string) error
}

func NewWebhookReconciler(
	gateway model.PaymentGateway,
	orders model.OrderRepository,
	processed model.ProcessedEventRepository,
	dispatcher domain.EventDispatcher,
	logger logrus.FieldLogger,
	secret string,
) WebhookReconciler {
	return &webhookReconciler{
		gateway:    gateway,
		orders:     orders,
		processed:  processed,
		dispatcher: dispatcher,
		logger:     logger,
		secret:     secret,
	}
}

type webhookReconciler struct {
	gateway    model.PaymentGateway
	orders     model.OrderRepository
	processed  model.ProcessedEventRepository
	dispatcher domain.EventDispatcher
	logger     logrus.FieldLogger
	secret     string
}

func (r *webhookReconciler) Reconcile(ctx context.Context, payload []byte, signature string) error {
	event, err := r.gateway.VerifyAndParseEvent(payload, signature, r.secret)
	if err != nil {
		r.logger.WithError(err).Warn("webhook rejected")
		if errors.Is(err, model.ErrInvalidSignature) {
			return err
		}
		return fmt.Errorf("%w: %v", model.ErrInvalidSignature, err)
	}

	ctx, span := tracer.Start(ctx, "webhook.Reconcile", trace.WithAttributes(
		attribute.String("gateway.event.id", event.ID),
		attribute.String("gateway.event.kind", string(event.Kind)),
	))
	defer span.End()

	log := r.logger.WithFields(logrus.Fields{"eventId": event.ID, "eventKind": event.Kind})
	if !event.IsPaymentSuccess() {
		log.Debug("gateway event ignored")
		return nil
	}

	processed, err := r.processed.IsProcessed(ctx, event.ID)
	if err != nil {
		return err
	}
	if processed {
		log.Info("gateway event already processed")
		return nil
	}

	matched, err := r.applyPayment(ctx, event, log)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !matched {
		return nil
	}
	return r.processed.MarkProcessed(ctx, event.ID, event.Kind)
}

// applyPayment reports whether the event referenced a stored order. Events
// without one are acknowledged but not recorded as processed.
func (r *webhookReconciler) applyPayment(ctx context.Context, event *model.GatewayEvent, log logrus.FieldLogger) (bool, error) {
	orderID, err := uuid.Parse(event.OrderID)
	if err != nil {
		log.WithField("orderId", event.OrderID).Warn("payment event carries no valid order id")
		return false, nil
	}
	log = log.WithField("orderId", orderID)

	var paid *model.Order
	err = retryOnConflict(func() error {
		paid = nil
		order, err := r.orders.Find(ctx, orderID)
		if err != nil {
			return err
		}

		switch order.Status {
		case model.StatusPending:
		case model.StatusCancelled:
			log.WithField("transactionId", event.TransactionID).Warn("payment received for cancelled order, state left unchanged")
			return nil
		default:
			log.WithField("status", order.Status).Info("order already past payment, event is a no-op")
			return nil
		}

		if err := order.ApplyPayment(event.TransactionID, time.Now().UTC()); err != nil {
			return err
		}
		if err := updateOrder(ctx, r.orders, order); err != nil {
			return err
		}
		paid = order
		return nil
	})
	if errors.Is(err, model.ErrOrderNotFound) {
		log.Warn("order referenced by payment event not found")
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if paid != nil {
		log.WithField("transactionId", event.TransactionID).Info("order marked as paid")
		dispatchEvents(r.dispatcher, r.logger, model.OrderPaid{
			OrderID:       paid.ID,
			TransactionID: event.TransactionID,
			Amount:        paid.Totals.Total,
		})
	}
	return true, nil
}
