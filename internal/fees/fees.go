// internal/fees/fees.go
package fees

import (
	"fmt"

	"partner-payouts/internal/domain"

	"github.com/shopspring/decimal"
)

// Calculator turns gross payout amounts into what actually moves on each rail.
// All amounts are integer cents; rate math goes through decimal. Partner fees
// round up to whole cents, platform fees and markups half away from zero.
type Calculator struct {
	stablecoinRate  decimal.Decimal
	fastACHFeeCents int64
	fxMarkupRate    decimal.Decimal
}

func NewCalculator(stablecoinRate string, fastACHFeeCents int64, fxMarkupRate string) (*Calculator, error) {
	sr, err := decimal.NewFromString(stablecoinRate)
	if err != nil {
		return nil, fmt.Errorf("invalid stablecoin fee rate %q: %w", stablecoinRate, err)
	}
	fx, err := decimal.NewFromString(fxMarkupRate)
	if err != nil {
		return nil, fmt.Errorf("invalid fx markup rate %q: %w", fxMarkupRate, err)
	}
	if sr.IsNegative() || sr.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("stablecoin fee rate must be in [0,1), got %s", sr)
	}
	if fx.IsNegative() {
		return nil, fmt.Errorf("fx markup rate must not be negative, got %s", fx)
	}
	if fastACHFeeCents < 0 {
		return nil, fmt.Errorf("fast ach fee must not be negative, got %d", fastACHFeeCents)
	}
	return &Calculator{
		stablecoinRate:  sr,
		fastACHFeeCents: fastACHFeeCents,
		fxMarkupRate:    fx,
	}, nil
}

func (c *Calculator) StablecoinRate() decimal.Decimal { return c.stablecoinRate }

// NetPayout returns the amount handed to the rail for a gross payout. The
// stablecoin fee rounds up, so a positive rate always takes at least one cent.
func (c *Calculator) NetPayout(method domain.PayoutMethod, gross int64) int64 {
	switch method {
	case domain.PayoutMethodStablecoin:
		return gross - feeCeil(gross, c.stablecoinRate)
	default:
		return gross
	}
}

// PlatformFee is the fee charged to the workspace on top of the payout amount.
// The Fast ACH surcharge lands here and never on the partner's amount.
func (c *Calculator) PlatformFee(gross int64, rate decimal.Decimal, fastACH bool) int64 {
	fee := percentOf(gross, rate)
	if fastACH {
		fee += c.fastACHFeeCents
	}
	return fee
}

// ApplyFXMarkup grosses an amount up by the configured FX markup.
func (c *Calculator) ApplyFXMarkup(amount int64, currency string) int64 {
	if currency == "" || currency == "usd" || currency == "USD" {
		return amount
	}
	return amount + percentOf(amount, c.fxMarkupRate)
}

type Totals struct {
	Amount int64 `json:"amount"`
	Fee    int64 `json:"fee"`
	Total  int64 `json:"total"`
}

func (c *Calculator) InvoiceTotals(amount int64, rate decimal.Decimal, fastACH bool) Totals {
	fee := c.PlatformFee(amount, rate, fastACH)
	return Totals{Amount: amount, Fee: fee, Total: amount + fee}
}

func percentOf(amount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(rate).Round(0).IntPart()
}

func feeCeil(amount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(rate).Ceil().IntPart()
}
