package fx

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Converter supplies exchange rates at time of use. The real rate feed is an
// external collaborator; this engine only captures the rate applied to an
// order so the ledger stays explainable after the fact.
type Converter interface {
	// Rate returns how many units of `to` one unit of `from` buys.
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

var ErrUnsupportedPair = errors.New("fx: unsupported currency pair")

// Conversion is the result of converting a minor-unit amount.
type Conversion struct {
	From        string
	To          string
	AmountMinor int64
	ResultMinor int64
	Rate        decimal.Decimal
}

// ConvertMinor converts amountMinor from one currency to another using the
// rate at time of call. Rounding is half-up to the minor unit; the same rule
// is used everywhere money is derived in this engine.
func ConvertMinor(ctx context.Context, c Converter, amountMinor int64, from, to string) (Conversion, error) {
	if amountMinor < 0 {
		return Conversion{}, fmt.Errorf("fx: amount must be >= 0, got %d", amountMinor)
	}
	if from == to {
		return Conversion{
			From:        from,
			To:          to,
			AmountMinor: amountMinor,
			ResultMinor: amountMinor,
			Rate:        decimal.NewFromInt(1),
		}, nil
	}

	rate, err := c.Rate(ctx, from, to)
	if err != nil {
		return Conversion{}, err
	}

	result := decimal.NewFromInt(amountMinor).Mul(rate).Round(0).IntPart()
	return Conversion{
		From:        from,
		To:          to,
		AmountMinor: amountMinor,
		ResultMinor: result,
		Rate:        rate,
	}, nil
}

// StaticConverter is a fixed-rate table. It stands in for the external rate
// feed in local and test environments.
type StaticConverter struct {
	rates map[string]decimal.Decimal
}

// NewStaticConverter seeds indicative rates into the settlement currency.
func NewStaticConverter() *StaticConverter {
	return &StaticConverter{
		rates: map[string]decimal.Decimal{
			"USD_XOF": decimal.NewFromInt(600),
			"EUR_XOF": decimal.RequireFromString("655.957"),
			"GBP_XOF": decimal.RequireFromString("760.5"),
			"NGN_XOF": decimal.RequireFromString("0.39"),
			"GHS_XOF": decimal.RequireFromString("41.2"),
			"XOF_USD": decimal.RequireFromString("0.001667"),
			"XOF_EUR": decimal.RequireFromString("0.001524"),
		},
	}
}

func (s *StaticConverter) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	r, ok := s.rates[from+"_"+to]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s/%s", ErrUnsupportedPair, from, to)
	}
	return r, nil
}
