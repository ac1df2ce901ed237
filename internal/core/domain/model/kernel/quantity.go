package kernel

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ErrInvalidQuantity is returned for quantities that are not finite
// numbers (NaN, ±Inf, unparsable text).
var ErrInvalidQuantity = errors.New("invalid quantity")

// NewQuantityFromFloat converts a client-supplied float into a decimal
// quantity. Any finite value is accepted, including negatives: the basket
// treats quantities <= 0 as removals.
func NewQuantityFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidQuantity, f)
	}
	return decimal.NewFromFloat(f), nil
}

// ParseQuantity parses a decimal string such as "1.5".
func ParseQuantity(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidQuantity, s)
	}
	return d, nil
}
