package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrOptimisticLock          = errors.New("order has been modified by another transaction")
	ErrEmptyOrder              = errors.New("cannot create an empty order")
	ErrInvalidStatusTransition = errors.New("order status transition is not allowed")
	ErrUnauthorized            = errors.New("authentication required")
	ErrForbidden               = errors.New("access to the order is forbidden")
	ErrDuplicateOrderNumber    = errors.New("order number is already taken")
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

var allowedTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch status := OrderStatus(s); status {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return status, true
	}
	return "", false
}

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

const DefaultPaymentMethod = "stripe"

type ShippingAddress struct {
	Name    string
	Email   string
	Phone   string
	Street  string
	City    string
	State   string
	Zip     string
	Country string
}

type PaymentInfo struct {
	Method        string
	Status        PaymentStatus
	TransactionID string
	PaidAt        *time.Time
}

// OrderLine keeps name and unit price as they were at checkout. They are never
// re-read from the catalog.
type OrderLine struct {
	ProductID uuid.UUID
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l OrderLine) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Totals struct {
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	ShippingCost decimal.Decimal
	Total        decimal.Decimal
}

type Order struct {
	ID              uuid.UUID
	OrderNumber     string
	UserID          uuid.UUID
	Lines           []OrderLine
	ShippingAddress ShippingAddress
	Payment         PaymentInfo
	Totals          Totals
	Status          OrderStatus
	Notes           string
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	CancelledAt     *time.Time
}

func (o *Order) IsOwnedBy(userID uuid.UUID) bool {
	return o.UserID == userID
}

func (o *Order) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range allowedTransitions[o.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionTo moves the order along the lifecycle and stamps the matching
// timestamp. Stock compensation for cancellation is left to the caller.
func (o *Order) TransitionTo(next OrderStatus, now time.Time) error {
	if !o.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, o.Status, next)
	}

	switch next {
	case StatusShipped:
		o.ShippedAt = &now
	case StatusDelivered:
		o.DeliveredAt = &now
		o.Payment.Status = PaymentCompleted
		if o.Payment.PaidAt == nil {
			o.Payment.PaidAt = &now
		}
	case StatusCancelled:
		o.CancelledAt = &now
	}

	o.Status = next
	return nil
}

// ApplyPayment records a confirmed gateway payment. Only pending orders accept it.
func (o *Order) ApplyPayment(transactionID string, now time.Time) error {
	if o.Status != StatusPending {
		return fmt.Errorf("%w: payment on %s order", ErrInvalidStatusTransition, o.Status)
	}

	o.Payment.Status = PaymentCompleted
	o.Payment.TransactionID = transactionID
	o.Payment.PaidAt = &now
	o.Status = StatusProcessing
	return nil
}

func (o *Order) Paid() bool {
	return o.Payment.Status == PaymentCompleted
}

// MaxPage bounds list pagination so the row offset cannot overflow.
const MaxPage = 100000

type OrderFilter struct {
	UserID *uuid.UUID
	Status *OrderStatus
	Page   int
	Limit  int
}

func (f OrderFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type OrderPage struct {
	Orders []Order
	Total  int
	Page   int
	Limit  int
}

type OrderStats struct {
	TotalOrders       int
	CountByStatus     map[OrderStatus]int
	TotalRevenue      decimal.Decimal
	AverageOrderValue decimal.Decimal
}

type OrderRepository interface {
	NextID() (uuid.UUID, error)
	// Create fails with ErrDuplicateOrderNumber when order.OrderNumber is in use.
	Create(ctx context.Context, order *Order) error
	Find(ctx context.Context, id uuid.UUID) (*Order, error)
	// Update persists the order only if the stored version equals order.Version-1.
	Update(ctx context.Context, order *Order) error
	List(ctx context.Context, filter OrderFilter) (*OrderPage, error)
	Stats(ctx context.Context) (*OrderStats, error)
}
