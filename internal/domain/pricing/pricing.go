// internal/domain/pricing/pricing.go
package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/config"
)

// Line is the minimal view of a cart or order line the engine prices.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals is the complete pricing breakdown for a set of lines.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// Engine computes order totals. It is pure: the same lines always produce
// the same totals, so the cart view and the persisted order agree exactly.
type Engine struct {
	taxRate           decimal.Decimal
	freeShippingAbove decimal.Decimal
	shippingFee       decimal.Decimal
}

// NewEngine creates a pricing engine from checkout configuration.
func NewEngine(cfg *config.Config) *Engine {
	return &Engine{
		taxRate:           cfg.Checkout.TaxRate,
		freeShippingAbove: cfg.Checkout.FreeShippingThreshold,
		shippingFee:       cfg.Checkout.ShippingFee,
	}
}

// PriceLines computes subtotal, tax, shipping, and total for the given lines.
// Rounding happens once, half-up to two decimal places, on the final total;
// intermediate values stay exact. A subtotal exactly at the free-shipping
// threshold still pays the flat fee.
func (e *Engine) PriceLines(lines []Line) Totals {
	if len(lines) == 0 {
		return Totals{
			Subtotal: decimal.Zero,
			Tax:      decimal.Zero,
			Shipping: decimal.Zero,
			Total:    decimal.Zero,
		}
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	tax := subtotal.Mul(e.taxRate)

	shipping := e.shippingFee
	if subtotal.GreaterThan(e.freeShippingAbove) {
		shipping = decimal.Zero
	}

	total := subtotal.Add(tax).Add(shipping).Round(2)

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    total,
	}
}

// ToMinorUnits converts a major-unit amount to the currency's smallest
// denomination (e.g. rupees to paise), rounding to nearest. Truncation here
// would under-charge by a paisa on fractional amounts.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
