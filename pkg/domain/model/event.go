package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderCreated struct {
	OrderID     uuid.UUID       `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	UserID      uuid.UUID       `json:"userId"`
	Total       decimal.Decimal `json:"total"`
}

func (e OrderCreated) Type() string { return "OrderCreated" }

type OrderStatusChanged struct {
	OrderID uuid.UUID   `json:"orderId"`
	From    OrderStatus `json:"from"`
	To      OrderStatus `json:"to"`
}

func (e OrderStatusChanged) Type() string { return "OrderStatusChanged" }

type OrderCancelled struct {
	OrderID uuid.UUID `json:"orderId"`
	UserID  uuid.UUID `json:"userId"`
}

func (e OrderCancelled) Type() string { return "OrderCancelled" }

type OrderPaid struct {
	OrderID       uuid.UUID       `json:"orderId"`
	TransactionID string          `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
}

func (e OrderPaid) Type() string { return "OrderPaid" }

type StockReserved struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

func (e StockReserved) Type() string { return "StockReserved" }

type StockReleased struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

func (e StockReleased) Type() string { return "StockReleased" }
