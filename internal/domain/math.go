package domain

import (
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// FiatPrecision is the number of decimal places used for displayed fiat amounts.
const FiatPrecision = 2

// SafeParse parses a string into a decimal, returning zero for invalid or empty input.
func SafeParse(value string) decimal.Decimal {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// BnOrZero converts any supported numeric input into a decimal.
// Nil pointers, unsupported types, malformed strings, NaN and infinities all yield zero.
func BnOrZero(v any) decimal.Decimal {
	switch n := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return n
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero
		}
		return *n
	case string:
		return SafeParse(n)
	case *string:
		if n == nil {
			return decimal.Zero
		}
		return SafeParse(*n)
	case int:
		return decimal.NewFromInt(int64(n))
	case int32:
		return decimal.NewFromInt32(n)
	case int64:
		return decimal.NewFromInt(n)
	case uint:
		return fromUint64(uint64(n))
	case uint32:
		return fromUint64(uint64(n))
	case uint64:
		return fromUint64(n)
	case float32:
		return floatOrZero(float64(n))
	case float64:
		return floatOrZero(n)
	default:
		return decimal.Zero
	}
}

func fromUint64(n uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(n), 0)
}

func floatOrZero(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// OrZero returns the value stored under key, or the zero value of V when the map is nil
// or the key is absent.
func OrZero[K comparable, V any](m map[K]V, key K) V {
	v, _ := Lookup(m, key)
	return v
}

// Lookup is a nil-safe map access.
func Lookup[K comparable, V any](m map[K]V, key K) (V, bool) {
	if m == nil {
		var zero V
		return zero, false
	}
	v, ok := m[key]
	return v, ok
}

// Lookup2 resolves m[k1][k2], reporting false if either level is missing.
func Lookup2[K1, K2 comparable, V any](m map[K1]map[K2]V, k1 K1, k2 K2) (V, bool) {
	inner, ok := Lookup(m, k1)
	if !ok {
		var zero V
		return zero, false
	}
	return Lookup(inner, k2)
}

// SafeMultiply multiplies two string values, returning zero if either is invalid.
func SafeMultiply(a, b string) decimal.Decimal {
	return SafeParse(a).Mul(SafeParse(b))
}

// SafeSum adds two decimals.
func SafeSum(a, b decimal.Decimal) decimal.Decimal {
	return a.Add(b)
}

// FromBaseUnit converts an amount in base units into human units (amount / 10^precision).
// Negative precision is treated as zero.
func FromBaseUnit(amount decimal.Decimal, precision int) decimal.Decimal {
	return amount.Shift(-int32(max(precision, 0)))
}

// ToBaseUnit converts a human amount back into base units.
func ToBaseUnit(amount decimal.Decimal, precision int) decimal.Decimal {
	return amount.Shift(int32(max(precision, 0)))
}

// FiatValue returns the fiat value of a base-unit balance. Missing price or precision
// behave as zero price and zero precision respectively.
func FiatValue(baseUnits string, precision int, price decimal.Decimal) decimal.Decimal {
	return FromBaseUnit(SafeParse(baseUnits), precision).Mul(price)
}

// FormatFiat rounds to two decimal places for display, e.g. "10.00".
func FormatFiat(d decimal.Decimal) string {
	return d.StringFixed(FiatPrecision)
}

// FormatHuman renders a human amount, keeping at least one fractional digit ("1.0").
func FormatHuman(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		return s + ".0"
	}
	return s
}
