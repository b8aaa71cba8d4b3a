package tests

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"orderservice/pkg/domain/model"
	"orderservice/pkg/domain/service"
)

func line(price string, quantity int) model.OrderLine {
	return model.OrderLine{ProductID: uuid.New(), Name: "item", Quantity: quantity, UnitPrice: decimal.RequireFromString(price)}
}

func TestPrice(t *testing.T) {
	testCases := []struct {
		name     string
		lines    []model.OrderLine
		subtotal string
		tax      string
		shipping string
		total    string
	}{
		{"Free shipping above threshold", []model.OrderLine{line("120.00", 1)}, "120", "9.60", "0", "129.60"},
		{"Flat shipping below threshold", []model.OrderLine{line("50.00", 1)}, "50", "4.00", "10", "64.00"},
		{"Threshold itself is not free", []model.OrderLine{line("25.00", 4)}, "100", "8.00", "10", "118.00"},
		{"Several lines", []model.OrderLine{line("19.99", 3), line("45.50", 1)}, "105.47", "8.44", "0", "113.91"},
		{"Tax rounds to cents", []model.OrderLine{line("0.99", 1)}, "0.99", "0.08", "10", "11.07"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			totals := service.Price(tc.lines)

			assert.True(t, decimal.RequireFromString(tc.subtotal).Equal(totals.Subtotal), "subtotal %s", totals.Subtotal)
			assert.True(t, decimal.RequireFromString(tc.tax).Equal(totals.Tax), "tax %s", totals.Tax)
			assert.True(t, decimal.RequireFromString(tc.shipping).Equal(totals.ShippingCost), "shipping %s", totals.ShippingCost)
			assert.True(t, decimal.RequireFromString(tc.total).Equal(totals.Total), "total %s", totals.Total)
		})
	}
}
