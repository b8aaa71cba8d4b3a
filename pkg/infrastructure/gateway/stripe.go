package gateway

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"orderservice/pkg/domain/model"
)

var hundred = decimal.NewFromInt(100)

// StripeGateway talks to Stripe through its API client and verifies webhook
// signatures with the endpoint signing secret.
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req model.PaymentIntentRequest) (*model.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(toMinorUnits(req.Amount)),
		Currency:    stripe.String(req.Currency),
		Description: stripe.String(req.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create payment intent")
	}
	return &model.PaymentIntent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req model.CheckoutSessionRequest) (*model.CheckoutSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Lines))
	for _, line := range req.Lines {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
				UnitAmount: stripe.Int64(toMinorUnits(line.UnitAmount)),
			},
			Quantity: stripe.Int64(int64(line.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		// The intent behind the session carries the same metadata, so a
		// payment_intent.succeeded event for it still resolves the order.
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: req.Metadata,
		},
	}
	params.Context = ctx
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create checkout session")
	}
	return &model.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func (g *StripeGateway) VerifyAndParseEvent(payload []byte, signatureHeader, secret string) (*model.GatewayEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, errors.Wrap(model.ErrInvalidSignature, err.Error())
	}

	result := &model.GatewayEvent{ID: event.ID, Kind: model.GatewayEventKind(event.Type)}
	if event.Data == nil {
		return result, nil
	}

	switch result.Kind {
	case model.EventPaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, errors.Wrap(err, "failed to decode payment intent")
		}
		result.OrderID = intent.Metadata["orderId"]
		result.TransactionID = intent.ID
	case model.EventCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, errors.Wrap(err, "failed to decode checkout session")
		}
		result.OrderID = session.Metadata["orderId"]
		result.TransactionID = session.ID
		if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
			result.TransactionID = session.PaymentIntent.ID
		}
	}
	return result, nil
}

func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
