package tests

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"orderservice/pkg/domain/model"
	"orderservice/pkg/domain/service"
)

const webhookSecret = "whsec_test"

type fixture struct {
	products   *mockProductRepository
	orders     *mockOrderRepository
	carts      *mockCartRepository
	processed  *mockProcessedEventRepository
	gateway    *mockPaymentGateway
	dispatcher *mockEventDispatcher

	catalog  service.CatalogAccessor
	checkout service.CheckoutService
	orderSvc service.OrderService
	payments service.PaymentService
	webhooks service.WebhookReconciler
}

func setup(t *testing.T) *fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &fixture{
		products:   newMockProductRepository(),
		orders:     newMockOrderRepository(),
		carts:      &mockCartRepository{},
		processed:  newMockProcessedEventRepository(),
		gateway:    newMockPaymentGateway(),
		dispatcher: &mockEventDispatcher{},
	}
	f.catalog = service.NewCatalogAccessor(f.products, f.dispatcher, logger)
	f.checkout = service.NewCheckoutService(f.catalog, f.orders, f.carts, f.dispatcher, logger)
	f.orderSvc = service.NewOrderService(f.orders, f.catalog, f.dispatcher, logger)
	f.payments = service.NewPaymentService(f.orders, f.gateway, service.PaymentSettings{
		Currency:    "usd",
		FrontendURL: "https://shop.test",
	}, logger)
	f.webhooks = service.NewWebhookReconciler(f.gateway, f.orders, f.processed, f.dispatcher, logger, webhookSecret)
	return f
}

func validAddress() model.ShippingAddress {
	return model.ShippingAddress{
		Name:   "Jane Doe",
		Email:  "jane@example.com",
		Phone:  "+1 555 0100",
		Street: "1 Market St",
		City:   "San Francisco",
		State:  "CA",
		Zip:    "94105",
	}
}

func (f *fixture) placeOrder(t *testing.T, userID uuid.UUID, items ...service.CheckoutItem) *model.Order {
	t.Helper()

	order, err := f.checkout.PlaceOrder(context.Background(), service.CheckoutRequest{
		UserID:          userID,
		Items:           items,
		ShippingAddress: validAddress(),
	})
	require.NoError(t, err)
	return order
}

func admin() model.Actor {
	return model.Actor{UserID: uuid.New(), Admin: true}
}
