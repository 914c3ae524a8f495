package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/cardpool-backend/internal/repository"
)

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func qty(n int) *int { return &n }

func TestAggregateGroupsByContributorInFirstAppearanceOrder(t *testing.T) {
	cards := []*repository.OrderCard{
		{AddedByEmail: "a@x", AddedByName: "Ana", Price: price("2.50"), Quantity: qty(2)},
		{AddedByEmail: "b@x", AddedByName: "Bo", Price: price("1.00"), Quantity: qty(3)},
		{AddedByEmail: "a@x", AddedByName: "Ana", Price: price("3.00"), Quantity: nil},
	}

	s := Aggregate(cards)

	require.Len(t, s.Contributors, 2)
	assert.Equal(t, "a@x", s.Contributors[0].Email)
	assert.Equal(t, "8.00", Format(s.Contributors[0].Subtotal))
	assert.Equal(t, 2, s.Contributors[0].Cards)
	assert.Equal(t, 3, s.Contributors[0].Units)

	assert.Equal(t, "b@x", s.Contributors[1].Email)
	assert.Equal(t, "3.00", Format(s.Contributors[1].Subtotal))

	assert.Equal(t, "11.00", Format(s.GrandTotal))
	assert.Equal(t, 3, s.CardCount)
	assert.Equal(t, 6, s.UnitCount)
}

func TestAggregateMissingPriceCountsAsZero(t *testing.T) {
	s := Aggregate([]*repository.OrderCard{
		{AddedByEmail: "a@x", Quantity: qty(4)},
		{AddedByEmail: "a@x", Price: price("1.50"), Quantity: qty(4)},
	})

	require.Len(t, s.Contributors, 1)
	assert.Equal(t, "6.00", Format(s.Contributors[0].Subtotal))
	assert.Equal(t, 8, s.UnitCount)
}

func TestAggregateSingleCardPrice(t *testing.T) {
	s := Aggregate([]*repository.OrderCard{
		{AddedByEmail: "bea@example.com", AddedByName: "Bea", Price: price("1.50"), Quantity: qty(4)},
	})

	assert.Equal(t, "6.00", Format(s.GrandTotal))
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil)

	assert.Empty(t, s.Contributors)
	assert.NotNil(t, s.Contributors)
	assert.Equal(t, "0.00", Format(s.GrandTotal))
	assert.Zero(t, s.CardCount)
}

func TestLineTotalAvoidsFloatDrift(t *testing.T) {
	total := decimal.Zero
	for i := 0; i < 10; i++ {
		total = total.Add(LineTotal(price("0.10"), nil))
	}
	assert.Equal(t, "1.00", Format(total))
}
