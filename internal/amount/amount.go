// Package amount implements fixed-point decimal amounts. An Amount is an
// integer value with an implicit decimal point: value / 10^decimals.
// Points and currency values cross the relay boundary as the decimal string
// of the raw integer, never as floating point.
package amount

import (
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	"github.com/0gfoundation/0g-points-relay/internal/errs"
)

// DefaultDecimals is the precision used by points and tokens on the side chain.
const DefaultDecimals = 18

var gwei = big.NewInt(1_000_000_000)

// Amount is an immutable fixed-point value.
type Amount struct {
	value    *big.Int
	decimals int
}

// New wraps an already scaled integer value. Amounts are never negative, so
// everything New accepts formats to text Parse reads back. A nil value is
// zero.
func New(value *big.Int, decimals int) (Amount, error) {
	if decimals < 0 {
		return Amount{}, errs.Protocol("amount", "negative decimals %d", decimals)
	}
	v := new(big.Int)
	if value != nil {
		if value.Sign() < 0 {
			return Amount{}, errs.Protocol("amount", "negative value %s", value)
		}
		v.Set(value)
	}
	return Amount{value: v, decimals: decimals}, nil
}

// Zero returns a zero amount with the given precision.
func Zero(decimals int) Amount {
	return Amount{value: new(big.Int), decimals: decimals}
}

// Parse converts human text such as "1_000.25" into an Amount.
// Thousands separators (',' and '_') are ignored. Fractional digits beyond
// decimals are truncated, never rounded. Empty input yields zero.
func Parse(text string, decimals int) (Amount, error) {
	if decimals < 0 {
		return Amount{}, errs.Format(text, "negative decimals")
	}
	cleaned := strings.NewReplacer(",", "", "_", "").Replace(strings.TrimSpace(text))
	if cleaned == "" {
		return Zero(decimals), nil
	}

	parts := strings.Split(cleaned, ".")
	if len(parts) > 2 {
		return Amount{}, errs.Format(text, "more than one decimal point")
	}
	integral := parts[0]
	fraction := ""
	if len(parts) == 2 {
		fraction = parts[1]
	}
	if integral == "" && fraction == "" {
		return Amount{}, errs.Format(text, "no digits")
	}
	if !allDigits(integral) || !allDigits(fraction) {
		return Amount{}, errs.Format(text, "non-digit character")
	}

	if len(fraction) > decimals {
		fraction = fraction[:decimals]
	} else {
		fraction += strings.Repeat("0", decimals-len(fraction))
	}
	if integral == "" {
		integral = "0"
	}

	v, ok := new(big.Int).SetString(integral+fraction, 10)
	if !ok {
		return Amount{}, errs.Format(text, "not a number")
	}
	return Amount{value: v, decimals: decimals}, nil
}

// MustParse is Parse for constants; it panics on malformed input.
func MustParse(text string, decimals int) Amount {
	a, err := Parse(text, decimals)
	if err != nil {
		panic(err)
	}
	return a
}

// Value returns a copy of the scaled integer.
func (a Amount) Value() *big.Int {
	if a.value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.value)
}

// Decimals returns the number of implied fractional digits.
func (a Amount) Decimals() int { return a.decimals }

// String renders the raw scaled integer, the form the relay expects.
func (a Amount) String() string { return a.Value().String() }

// Format renders "integral.fraction" with the fraction zero-padded to
// exactly Decimals digits.
func (a Amount) Format() string {
	integral, fraction := a.split()
	if a.decimals == 0 {
		return integral
	}
	return integral + "." + fraction
}

// DisplayString renders the amount with trailing zeros removed and the
// fraction cut to at most precision digits. precision < 0 keeps all digits.
func (a Amount) DisplayString(precision int) string {
	integral, fraction := a.split()
	if precision >= 0 && len(fraction) > precision {
		fraction = fraction[:precision]
	}
	fraction = strings.TrimRight(fraction, "0")
	if fraction == "" {
		return integral
	}
	return integral + "." + fraction
}

// Convert rescales to a different precision. Lowering the precision
// truncates the dropped digits.
func (a Amount) Convert(decimals int) (Amount, error) {
	if decimals < 0 {
		return Amount{}, errs.Format(a.String(), "negative decimals")
	}
	v := a.Value()
	switch {
	case decimals > a.decimals:
		v.Mul(v, pow10(decimals-a.decimals))
	case decimals < a.decimals:
		v.Quo(v, pow10(a.decimals-decimals))
	}
	return Amount{value: v, decimals: decimals}, nil
}

// Equal reports whether both value and precision match.
func (a Amount) Equal(b Amount) bool {
	return a.decimals == b.decimals && a.Value().Cmp(b.Value()) == 0
}

// Uint256 returns the value as a 256-bit word. ok is false when the value is
// negative or does not fit.
func (a Amount) Uint256() (*uint256.Int, bool) {
	return ToUint256(a.Value())
}

// ToUint256 converts v into a 256-bit word. ok is false when v is nil,
// negative or wider than 256 bits.
func ToUint256(v *big.Int) (*uint256.Int, bool) {
	if v == nil || v.Sign() < 0 {
		return nil, false
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, false
	}
	return u, true
}

// FloorGwei truncates x to a whole multiple of 10^9. It returns nil for nil.
func FloorGwei(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	out := new(big.Int).Quo(x, gwei)
	return out.Mul(out, gwei)
}

func (a Amount) split() (string, string) {
	v := a.Value()
	neg := v.Sign() < 0
	v.Abs(v)
	q, r := new(big.Int).QuoRem(v, pow10(a.decimals), new(big.Int))
	integral := q.String()
	if neg {
		integral = "-" + integral
	}
	fraction := ""
	if a.decimals > 0 {
		fraction = r.String()
		fraction = strings.Repeat("0", a.decimals-len(fraction)) + fraction
	}
	return integral, fraction
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
