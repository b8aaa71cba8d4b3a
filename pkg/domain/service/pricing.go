package service

import (
	"github.com/shopspring/decimal"

	"orderservice/pkg/domain/model"
)

var (
	taxRate               = decimal.RequireFromString("0.08")
	freeShippingThreshold = decimal.NewFromInt(100)
	flatShippingCost      = decimal.NewFromInt(10)
)

// Price computes order totals from line snapshots. Tax is rounded to cents,
// shipping is free only when the subtotal is strictly above the threshold.
func Price(lines []model.OrderLine) model.Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Amount())
	}

	tax := subtotal.Mul(taxRate).Round(2)
	shipping := flatShippingCost
	if subtotal.GreaterThan(freeShippingThreshold) {
		shipping = decimal.Zero
	}

	return model.Totals{
		Subtotal:     subtotal,
		Tax:          tax,
		ShippingCost: shipping,
		Total:        subtotal.Add(tax).Add(shipping),
	}
}
