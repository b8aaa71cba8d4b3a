package model

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSignature  = errors.New("invalid webhook signature")
	ErrPaymentNotAllowed = errors.New("payment is not allowed for the order in its current state")
)

type GatewayEventKind string

const (
	EventPaymentIntentSucceeded   GatewayEventKind = "payment_intent.succeeded"
	EventCheckoutSessionCompleted GatewayEventKind = "checkout.session.completed"
)

// GatewayEvent is a verified notification from the payment processor.
type GatewayEvent struct {
	ID            string
	Kind          GatewayEventKind
	OrderID       string
	TransactionID string
}

func (e GatewayEvent) IsPaymentSuccess() bool {
	return e.Kind == EventPaymentIntentSucceeded || e.Kind == EventCheckoutSessionCompleted
}

type PaymentIntentRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

type PaymentIntent struct {
	ID           string
	ClientSecret string
}

type CheckoutSessionLine struct {
	Name       string
	UnitAmount decimal.Decimal
	Quantity   int
}

type CheckoutSessionRequest struct {
	Lines         []CheckoutSessionLine
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

type CheckoutSession struct {
	ID  string
	URL string
}

type PaymentGateway interface {
	CreateIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)
	// VerifyAndParseEvent fails with ErrInvalidSignature when the payload was not signed with secret.
	VerifyAndParseEvent(payload []byte, signatureHeader, secret string) (*GatewayEvent, error)
}

// ProcessedEventRepository remembers gateway event ids that were already reconciled.
type ProcessedEventRepository interface {
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string, kind GatewayEventKind) error
}
