package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"orderservice/pkg/domain/model"
)

type PaymentSettings struct {
	Currency    string
	FrontendURL string
}

type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.PaymentIntent, error)
	CreateCheckoutSession(ctx context.Context, actor model.Actor, orderID uuid.UUID, successURL, cancelURL string) (*model.CheckoutSession, error)
	// PaymentStatus returns the order so callers can read both payment and order status.
	PaymentStatus(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.Order, error)
}

func NewPaymentService(orders model.OrderRepository, gateway model.PaymentGateway, settings PaymentSettings, logger logrus.FieldLogger) PaymentService {
	return &paymentService{orders: orders, gateway: gateway, settings: settings, logger: logger}
}

type paymentService struct {
	orders   model.OrderRepository
	gateway  model.PaymentGateway
	settings PaymentSettings
	logger   logrus.FieldLogger
}

func (s *paymentService) CreatePaymentIntent(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.PaymentIntent, error) {
	order, err := s.payableOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreateIntent(ctx, model.PaymentIntentRequest{
		Amount:         order.Totals.Total,
		Currency:       s.settings.Currency,
		Description:    "Order " + order.OrderNumber,
		Metadata:       paymentMetadata(order),
		IdempotencyKey: fmt.Sprintf("intent-%s-v%d", order.ID, order.Version),
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"orderId": order.ID, "paymentIntentId": intent.ID}).Info("payment intent created")
	return intent, nil
}

func (s *paymentService) CreateCheckoutSession(ctx context.Context, actor model.Actor, orderID uuid.UUID, successURL, cancelURL string) (*model.CheckoutSession, error) {
	order, err := s.payableOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	if successURL == "" {
		successURL = fmt.Sprintf("%s/orders/%s?success=true", s.settings.FrontendURL, order.ID)
	}
	if cancelURL == "" {
		cancelURL = fmt.Sprintf("%s/orders/%s?cancelled=true", s.settings.FrontendURL, order.ID)
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, model.CheckoutSessionRequest{
		Lines:         sessionLines(order),
		Currency:      s.settings.Currency,
		CustomerEmail: order.ShippingAddress.Email,
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
		Metadata:      paymentMetadata(order),
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"orderId": order.ID, "sessionId": session.ID}).Info("checkout session created")
	return session, nil
}

func (s *paymentService) PaymentStatus(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.Order, error) {
	return s.accessibleOrder(ctx, actor, orderID, true)
}

func (s *paymentService) payableOrder(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.accessibleOrder(ctx, actor, orderID, false)
	if err != nil {
		return nil, err
	}
	if order.Paid() || order.Status != model.StatusPending {
		return nil, model.ErrPaymentNotAllowed
	}
	return order, nil
}

func (s *paymentService) accessibleOrder(ctx context.Context, actor model.Actor, orderID uuid.UUID, allowAdmin bool) (*model.Order, error) {
	if !actor.Authenticated() {
		return nil, model.ErrUnauthorized
	}

	order, err := s.orders.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.IsOwnedBy(actor.UserID) || (allowAdmin && actor.Admin) {
		return order, nil
	}
	return nil, model.ErrForbidden
}

func paymentMetadata(order *model.Order) map[string]string {
	return map[string]string{
		"orderId":     order.ID.String(),
		"orderNumber": order.OrderNumber,
		"userId":      order.UserID.String(),
	}
}

func sessionLines(order *model.Order) []model.CheckoutSessionLine {
	lines := make([]model.CheckoutSessionLine, 0, len(order.Lines)+2)
	for _, line := range order.Lines {
		lines = append(lines, model.CheckoutSessionLine{
			Name:       line.Name,
			UnitAmount: line.UnitPrice,
			Quantity:   line.Quantity,
		})
	}
	if order.Totals.Tax.IsPositive() {
		lines = append(lines, model.CheckoutSessionLine{Name: "Tax", UnitAmount: order.Totals.Tax, Quantity: 1})
	}
	if order.Totals.ShippingCost.IsPositive() {
		lines = append(lines, model.CheckoutSessionLine{Name: "Shipping", UnitAmount: order.Totals.ShippingCost, Quantity: 1})
	}
	return lines
}
