package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a currency amount in raw units: an integer multiple of 10^-6
// whole units. All pot and payout arithmetic happens on this type so that
// repeated proportional division never drifts the way floats do.
type Amount int64

// Scale is the number of raw units per whole currency unit.
const Scale = 1_000_000

var scaleDec = decimal.New(1, 6)

// FromUnits builds an Amount from a whole number of currency units.
func FromUnits(units int64) Amount {
	return Amount(units * Scale)
}

// Parse converts a decimal string ("10.00", "0.10") to an Amount.
// More than six fractional digits is rejected rather than rounded:
// amounts entering the system must be exact.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	raw := d.Mul(scaleDec)
	if !raw.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than 6 decimal places", s)
	}
	if !raw.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	return Amount(raw.IntPart()), nil
}

// Raw returns the scaled-integer value.
func (a Amount) Raw() int64 {
	return int64(a)
}

// Decimal returns the exact decimal value of the amount.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -6)
}

// Display renders the amount rounded to two decimal places. Only for
// presentation; never feed the result back into arithmetic.
func (a Amount) Display() string {
	return a.Decimal().StringFixed(2)
}

func (a Amount) String() string {
	return a.Decimal().String()
}
