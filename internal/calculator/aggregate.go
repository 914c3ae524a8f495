// Package calculator sums order cards per contributor.
package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/Marga-Ghale/cardpool-backend/internal/repository"
)

// Contribution is one contributor's share of an order.
type Contribution struct {
	Email    string
	Name     string
	Subtotal decimal.Decimal
	Cards    int
	Units    int
}

// Summary aggregates every card of an order.
type Summary struct {
	Contributors []Contribution
	GrandTotal   decimal.Decimal
	CardCount    int
	UnitCount    int
}

// Quantity returns the effective quantity of a card. Missing counts as 1.
func Quantity(q *int) int {
	if q == nil {
		return 1
	}
	return *q
}

// LineTotal is price × quantity with a missing price counted as 0.
func LineTotal(price decimal.NullDecimal, quantity *int) decimal.Decimal {
	if !price.Valid {
		return decimal.Zero
	}
	return price.Decimal.Mul(decimal.NewFromInt(int64(Quantity(quantity))))
}

// Aggregate groups cards by added_by_email, in order of first appearance.
func Aggregate(cards []*repository.OrderCard) Summary {
	summary := Summary{
		Contributors: []Contribution{},
		GrandTotal:   decimal.Zero,
	}
	index := make(map[string]int)

	for _, card := range cards {
		i, ok := index[card.AddedByEmail]
		if !ok {
			i = len(summary.Contributors)
			index[card.AddedByEmail] = i
			summary.Contributors = append(summary.Contributors, Contribution{
				Email:    card.AddedByEmail,
				Name:     card.AddedByName,
				Subtotal: decimal.Zero,
			})
		}

		line := LineTotal(card.Price, card.Quantity)
		units := Quantity(card.Quantity)

		c := &summary.Contributors[i]
		c.Subtotal = c.Subtotal.Add(line)
		c.Cards++
		c.Units += units

		summary.GrandTotal = summary.GrandTotal.Add(line)
		summary.CardCount++
		summary.UnitCount += units
	}

	return summary
}

// Format renders a money amount with two decimals.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
