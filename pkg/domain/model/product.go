package model

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock quantity")
)

type Product struct {
	ID        uuid.UUID
	Name      string
	Price     decimal.Decimal
	Stock     int
	SoldCount int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reservation is stock bound to an order together with the name and price
// observed at the moment of the decrement.
type Reservation struct {
	ProductID uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

type ProductRepository interface {
	Find(ctx context.Context, id uuid.UUID) (*Product, error)
	// Reserve decrements stock and increments the sold count in a single
	// conditional write. Missing or inactive products yield ErrProductNotFound,
	// stock below quantity yields ErrInsufficientStock.
	Reserve(ctx context.Context, id uuid.UUID, quantity int) (*Reservation, error)
	Release(ctx context.Context, id uuid.UUID, quantity int) error
}
