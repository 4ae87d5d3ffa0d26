// internal/domain/pricing/pricing_test.go
package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/your-org/storefront-backend/internal/config"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := &config.Config{
		Checkout: config.CheckoutConfig{
			Currency:              "INR",
			TaxRate:               decimal.RequireFromString("0.10"),
			FreeShippingThreshold: decimal.NewFromInt(100),
			ShippingFee:           decimal.NewFromInt(10),
		},
	}
	return NewEngine(cfg)
}

func TestPriceLines(t *testing.T) {
	engine := testEngine(t)

	tests := []struct {
		name     string
		lines    []Line
		subtotal string
		tax      string
		shipping string
		total    string
	}{
		{
			name: "subtotal above threshold ships free",
			lines: []Line{
				{UnitPrice: decimal.NewFromInt(30), Quantity: 2},
				{UnitPrice: decimal.NewFromInt(50), Quantity: 1},
			},
			subtotal: "110",
			tax:      "11",
			shipping: "0",
			total:    "121",
		},
		{
			name: "small cart pays flat shipping",
			lines: []Line{
				{UnitPrice: decimal.NewFromInt(10), Quantity: 1},
			},
			subtotal: "10",
			tax:      "1",
			shipping: "10",
			total:    "21",
		},
		{
			name: "subtotal exactly at threshold still pays shipping",
			lines: []Line{
				{UnitPrice: decimal.NewFromInt(100), Quantity: 1},
			},
			subtotal: "100",
			tax:      "10",
			shipping: "10",
			total:    "120",
		},
		{
			name: "one paisa above threshold ships free",
			lines: []Line{
				{UnitPrice: decimal.RequireFromString("100.01"), Quantity: 1},
			},
			subtotal: "100.01",
			tax:      "10.001",
			shipping: "0",
			total:    "110.01",
		},
		{
			name:     "no lines price to zero",
			lines:    nil,
			subtotal: "0",
			tax:      "0",
			shipping: "0",
			total:    "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := engine.PriceLines(tt.lines)

			assert.True(t, totals.Subtotal.Equal(decimal.RequireFromString(tt.subtotal)),
				"subtotal = %s, want %s", totals.Subtotal, tt.subtotal)
			assert.True(t, totals.Tax.Equal(decimal.RequireFromString(tt.tax)),
				"tax = %s, want %s", totals.Tax, tt.tax)
			assert.True(t, totals.Shipping.Equal(decimal.RequireFromString(tt.shipping)),
				"shipping = %s, want %s", totals.Shipping, tt.shipping)
			assert.True(t, totals.Total.Equal(decimal.RequireFromString(tt.total)),
				"total = %s, want %s", totals.Total, tt.total)
		})
	}
}

func TestPriceLinesRoundsTotalHalfUpOnce(t *testing.T) {
	engine := testEngine(t)

	// 0.335 + 0.0335 + 10 = 10.3685, which rounds to 10.37 only if the
	// intermediate values stay exact.
	totals := engine.PriceLines([]Line{
		{UnitPrice: decimal.RequireFromString("0.335"), Quantity: 1},
	})

	assert.Equal(t, "10.37", totals.Total.String())
}

func TestPriceLinesIsDeterministic(t *testing.T) {
	engine := testEngine(t)
	lines := []Line{
		{UnitPrice: decimal.RequireFromString("19.99"), Quantity: 3},
		{UnitPrice: decimal.RequireFromString("4.05"), Quantity: 7},
	}

	first := engine.PriceLines(lines)
	second := engine.PriceLines(lines)

	assert.True(t, first.Total.Equal(second.Total))
	assert.True(t, first.Subtotal.Equal(second.Subtotal))
	assert.True(t, first.Tax.Equal(second.Tax))
	assert.True(t, first.Shipping.Equal(second.Shipping))
}

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"121", 12100},
		{"0.01", 1},
		{"10.37", 1037},
		{"99.994", 9999},
		{"10.005", 1001}, // rounds to nearest, not truncates
	}

	for _, tt := range tests {
		got := ToMinorUnits(decimal.RequireFromString(tt.amount))
		assert.Equal(t, tt.want, got, "ToMinorUnits(%s)", tt.amount)
	}
}
