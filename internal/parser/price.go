package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Cents is an integer amount in minor currency units. Malformed values
// decode to zero instead of failing the record.
type Cents int64

func (c *Cents) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if n, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*c = Cents(n)
		return nil
	}
	if f, err := strconv.ParseFloat(string(data), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		*c = Cents(int64(f))
		return nil
	}
	*c = 0
	return nil
}

var _ json.Unmarshaler = (*Cents)(nil)

// PriceCentToNumeric renders floor(c/100) and c mod 100 as "<whole>.<frac>"
// and parses that text. The fraction is not zero padded, so 105 becomes 1.5
// rather than 1.05; this matches what the shop frontend reports.
func PriceCentToNumeric(c Cents) decimal.Decimal {
	whole, frac := int64(c)/100, int64(c)%100
	if frac < 0 {
		frac += 100
		whole--
	}
	d, err := decimal.NewFromString(fmt.Sprintf("%d.%d", whole, frac))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CalculateSavings returns oldPrice - price rounded to two decimals.
func CalculateSavings(oldPrice, price decimal.Decimal) decimal.Decimal {
	return oldPrice.Sub(price).Round(2)
}
