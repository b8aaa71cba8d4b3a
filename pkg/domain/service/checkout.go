package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"orderservice/pkg/common/domain"
	"orderservice/pkg/domain/model"
)

var tracer = otel.Tracer("orderservice/domain")

const maxOrderNumberAttempts = 3

type CheckoutItem struct {
	ProductID uuid.UUID
	Quantity  int
}

type CheckoutRequest struct {
	UserID          uuid.UUID
	Items           []CheckoutItem
	ShippingAddress model.ShippingAddress
	PaymentMethod   string
	Notes           string
}

type CheckoutService interface {
	// PlaceOrder reserves stock for every item and persists a pending order.
	// Either all reservations end up bound to the created order or none stay taken.
	PlaceOrder(ctx context.Context, req CheckoutRequest) (*model.Order, error)
}

func NewCheckoutService(
	catalog CatalogAccessor,
	orders model.OrderRepository,
	carts model.CartRepository,
	dispatcher domain.EventDispatcher,
	logger logrus.FieldLogger,
) CheckoutService {
	return &checkoutService{
		catalog:    catalog,
		orders:     orders,
		carts:      carts,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

type checkoutService struct {
	catalog    CatalogAccessor
	orders     model.OrderRepository
	carts      model.CartRepository
	dispatcher domain.EventDispatcher
	logger     logrus.FieldLogger
}

func (s *checkoutService) PlaceOrder(ctx context.Context, req CheckoutRequest) (order *model.Order, err error) {
	ctx, span := tracer.Start(ctx, "checkout.PlaceOrder", trace.WithAttributes(
		attribute.String("user.id", req.UserID.String()),
		attribute.Int("order.items", len(req.Items)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if req.UserID == uuid.Nil {
		return nil, model.ErrUnauthorized
	}
	if len(req.Items) == 0 {
		return nil, model.ErrEmptyOrder
	}
	if err := validateCheckout(req); err != nil {
		return nil, err
	}

	saga := newReservationSaga(s.catalog)
	lines, err := s.reserveLines(ctx, saga, req.Items)
	if err != nil {
		saga.compensate(ctx)
		return nil, err
	}

	order, err = s.newOrder(req, lines)
	if err != nil {
		saga.compensate(ctx)
		return nil, err
	}

	if err := s.createOrder(ctx, order); err != nil {
		saga.compensate(ctx)
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", order.ID.String()))

	if err := s.carts.Clear(ctx, req.UserID); err != nil {
		s.logger.WithError(err).WithField("userId", req.UserID).Warn("failed to clear cart after checkout")
	}

	dispatchEvents(s.dispatcher, s.logger, orderCreatedEvents(order)...)
	return order, nil
}

// createOrder draws a fresh order number when the random one is already taken.
func (s *checkoutService) createOrder(ctx context.Context, order *model.Order) error {
	var err error
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		if attempt > 0 {
			s.logger.WithField("orderNumber", order.OrderNumber).Warn("order number collision, drawing a new one")
			order.OrderNumber = newOrderNumber(order.CreatedAt)
		}
		err = s.orders.Create(ctx, order)
		if !errors.Is(err, model.ErrDuplicateOrderNumber) {
			return err
		}
	}
	return err
}

// orderCreatedEvents must only be published once the order is stored.
func orderCreatedEvents(order *model.Order) []domain.Event {
	events := make([]domain.Event, 0, len(order.Lines)+1)
	events = append(events, model.OrderCreated{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Total:       order.Totals.Total,
	})
	for _, line := range order.Lines {
		events = append(events, model.StockReserved{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return events
}

func (s *checkoutService) reserveLines(ctx context.Context, saga *reservationSaga, items []CheckoutItem) ([]model.OrderLine, error) {
	lines := make([]model.OrderLine, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reservation, err := s.catalog.Reserve(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return nil, err
		}
		saga.record(item.ProductID, item.Quantity)

		lines = append(lines, model.OrderLine{
			ProductID: item.ProductID,
			Name:      reservation.Name,
			Quantity:  item.Quantity,
			UnitPrice: reservation.UnitPrice,
		})
	}
	return lines, nil
}

func (s *checkoutService) newOrder(req CheckoutRequest, lines []model.OrderLine) (*model.Order, error) {
	orderID, err := s.orders.NextID()
	if err != nil {
		return nil, err
	}

	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = model.DefaultPaymentMethod
	}
	address := req.ShippingAddress
	if address.Country == "" {
		address.Country = "US"
	}

	now := time.Now().UTC()
	return &model.Order{
		ID:              orderID,
		OrderNumber:     newOrderNumber(now),
		UserID:          req.UserID,
		Lines:           lines,
		ShippingAddress: address,
		Payment: model.PaymentInfo{
			Method: method,
			Status: model.PaymentPending,
		},
		Totals:    Price(lines),
		Status:    model.StatusPending,
		Notes:     strings.TrimSpace(req.Notes),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func newOrderNumber(now time.Time) string {
	random := uuid.New()
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), strings.ToUpper(hex.EncodeToString(random[:4])))
}

func validateCheckout(req CheckoutRequest) error {
	verr := &model.ValidationError{}
	for i, item := range req.Items {
		if item.ProductID == uuid.Nil {
			verr.Add(fmt.Sprintf("items[%d].productId", i), "is required")
		}
		if item.Quantity < 1 {
			verr.Add(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
	}

	address := req.ShippingAddress
	required := []struct {
		field string
		value string
	}{
		{"shippingAddress.name", address.Name},
		{"shippingAddress.email", address.Email},
		{"shippingAddress.phone", address.Phone},
		{"shippingAddress.street", address.Street},
		{"shippingAddress.city", address.City},
		{"shippingAddress.state", address.State},
		{"shippingAddress.zip", address.Zip},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			verr.Add(r.field, "is required")
		}
	}
	if address.Email != "" {
		if _, err := mail.ParseAddress(address.Email); err != nil {
			verr.Add("shippingAddress.email", "is not a valid email address")
		}
	}
	if len(req.Notes) > 500 {
		verr.Add("notes", "must be at most 500 characters")
	}

	return verr.Err()
}
