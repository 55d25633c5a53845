package domain

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// CurrencyKSH is the currency all amounts are recorded in
const CurrencyKSH = "KSH"

// MaxAmount is the largest amount a numeric(14,2) money column holds
var MaxAmount = decimal.New(99999999999999, -2)

// WithinAmountLimit reports whether amount fits the money columns
func WithinAmountLimit(amount decimal.Decimal) bool {
	return amount.Abs().LessThanOrEqual(MaxAmount)
}

// FormatKSH renders an amount as "KSH 12,500.00"
func FormatKSH(amount decimal.Decimal) string {
	return CurrencyKSH + " " + humanize.FormatFloat("#,###.##", amount.Round(2).InexactFloat64())
}

// LineTotal returns quantity × unit cost rounded to cents
func LineTotal(quantity, unitCost decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitCost).Round(2)
}

// SumLineItems recomputes every line total and returns the items with the grand total
func SumLineItems(items []CostLineItemInput) ([]CostLineItem, decimal.Decimal) {
	total := decimal.Zero
	out := make([]CostLineItem, 0, len(items))
	for _, in := range items {
		line := LineTotal(in.Quantity, in.UnitCost)
		out = append(out, CostLineItem{
			Item:     in.Item,
			Quantity: in.Quantity,
			UnitCost: in.UnitCost,
			Total:    line,
		})
		total = total.Add(line)
	}
	return out, total
}
