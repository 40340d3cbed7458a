package units

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// DefaultDecimals is the decimal count of every token traded on the pair.
const DefaultDecimals uint8 = 18

// MaxDecimals bounds the scale accepted by FormatUnits and ParseUnits.
// 10^77 is the largest power of ten that fits in a uint256.
const MaxDecimals uint8 = 77

// Reason classifies why an amount string was rejected.
type Reason uint8

const (
	ReasonEmpty Reason = iota + 1
	ReasonSyntax
	ReasonNegative
	ReasonTooPrecise
	ReasonOverflow
	ReasonScale
)

func (r Reason) String() string {
	switch r {
	case ReasonEmpty:
		return "empty amount"
	case ReasonSyntax:
		return "malformed decimal"
	case ReasonNegative:
		return "negative amount"
	case ReasonTooPrecise:
		return "too many fractional digits"
	case ReasonOverflow:
		return "amount exceeds uint256"
	case ReasonScale:
		return "unsupported decimal count"
	default:
		return "unknown"
	}
}

// ParseError is returned by ParseUnits for any input that cannot become a
// base-unit amount.
type ParseError struct {
	Input  string
	Reason Reason
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid amount %q: %s", e.Input, e.Reason)
}

// FormatUnits renders a base-unit integer as a decimal string scaled down by
// decimals. The fractional part keeps at least one digit: 0 -> "0.0",
// 1500000000000000000 -> "1.5".
func FormatUnits(v *big.Int, decimals uint8) string {
	if v == nil {
		v = new(big.Int)
	}
	negative := v.Sign() < 0
	digits := new(big.Int).Abs(v).String()

	d := int(decimals)
	if len(digits) <= d {
		digits = strings.Repeat("0", d-len(digits)+1) + digits
	}
	whole := digits[:len(digits)-d]
	frac := strings.TrimRight(digits[len(digits)-d:], "0")
	if frac == "" {
		frac = "0"
	}

	out := whole + "." + frac
	if negative {
		out = "-" + out
	}
	return out
}

// ParseUnits converts a non-negative decimal string into base units scaled up
// by decimals. Inputs with more fractional digits than decimals, signs,
// exponents, or values that do not fit in a uint256 are rejected with a
// *ParseError.
func ParseUnits(s string, decimals uint8) (*big.Int, error) {
	input := s
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &ParseError{Input: input, Reason: ReasonEmpty}
	}
	if decimals > MaxDecimals {
		return nil, &ParseError{Input: input, Reason: ReasonScale}
	}
	if strings.HasPrefix(s, "-") {
		return nil, &ParseError{Input: input, Reason: ReasonNegative}
	}
	s = strings.TrimPrefix(s, "+")

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return nil, &ParseError{Input: input, Reason: ReasonSyntax}
	}
	if !allDigits(whole) || !allDigits(frac) {
		return nil, &ParseError{Input: input, Reason: ReasonSyntax}
	}

	frac = strings.TrimRight(frac, "0")
	if len(frac) > int(decimals) {
		return nil, &ParseError{Input: input, Reason: ReasonTooPrecise}
	}
	if whole == "" {
		whole = "0"
	}

	combined := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	v, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, &ParseError{Input: input, Reason: ReasonSyntax}
	}
	if _, overflow := uint256.FromBig(v); overflow {
		return nil, &ParseError{Input: input, Reason: ReasonOverflow}
	}
	return v, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
