// Package format converts token amounts between display units and subunits
// and renders numbers with thousand separators.
package format

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// MaxFraction is the number of fractional digits Number keeps.
const MaxFraction = 18

var (
	// ErrInvalidNumber indicates the input is not a decimal number.
	ErrInvalidNumber = errors.New("format: invalid number")
	// ErrPrecision indicates an amount has more decimals than its token supports.
	ErrPrecision = errors.New("format: amount exceeds token precision")
)

var printer = message.NewPrinter(language.English)

// Number renders s with thousand separators and at most MaxFraction decimals,
// dropping trailing zeros. Input ending in "." is returned as is so that a
// value being typed keeps its decimal point.
func Number(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, ".") {
		return s, nil
	}
	r, ok := parseDecimal(s)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return formatRat(r, MaxFraction), nil
}

// Amount converts a display amount into integer subunits, e.g. "1.5" with
// subunitToUnit 100 is "150".
func Amount(amount, subunitToUnit string) (string, error) {
	r, ok := parseDecimal(amount)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidNumber, amount)
	}
	sub, err := parseSubunit(subunitToUnit)
	if err != nil {
		return "", err
	}
	r.Mul(r, new(big.Rat).SetInt(sub))
	if !r.IsInt() {
		return "", fmt.Errorf("%w: %s with subunit %s", ErrPrecision, amount, subunitToUnit)
	}
	return r.Num().String(), nil
}

// ReceiveAmountToTotal converts integer subunits into a grouped display amount,
// e.g. "123456" with subunitToUnit 100 is "1,234.56".
func ReceiveAmountToTotal(amount, subunitToUnit string) (string, error) {
	if strings.TrimSpace(amount) == "" {
		amount = "0"
	}
	r, ok := parseDecimal(amount)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidNumber, amount)
	}
	sub, err := parseSubunit(subunitToUnit)
	if err != nil {
		return "", err
	}
	r.Quo(r, new(big.Rat).SetInt(sub))
	return formatRat(r, Decimals(subunitToUnit)+MaxFraction), nil
}

// Decimals returns the number of decimal places a subunit factor represents,
// e.g. 2 for "100" and 18 for "1000000000000000000".
func Decimals(subunitToUnit string) int {
	s := strings.TrimLeft(strings.TrimSpace(subunitToUnit), "0")
	if s == "" {
		return 0
	}
	return len(s) - 1
}

func parseSubunit(s string) (*big.Int, error) {
	sub, ok := math.ParseBig256(strings.TrimSpace(s))
	if !ok || sub.Sign() <= 0 {
		return nil, fmt.Errorf("%w: subunit %q", ErrInvalidNumber, s)
	}
	return sub, nil
}

// parseDecimal accepts plain decimals with optional grouping commas.
func parseDecimal(s string) (*big.Rat, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || strings.ContainsAny(s, "eE/") {
		return nil, false
	}
	return new(big.Rat).SetString(s)
}

// formatRat renders r with grouped integer digits and up to prec fractional
// digits, trailing zeros trimmed.
func formatRat(r *big.Rat, prec int) string {
	s := r.FloatString(prec)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	frac = strings.TrimRight(frac, "0")

	out := groupInt(intPart)
	if frac != "" {
		out += "." + frac
	}
	if neg && out != "0" {
		out = "-" + out
	}
	return out
}

// groupInt inserts thousand separators into a string of digits. Values that
// fit an int64 go through the locale printer.
func groupInt(digits string) string {
	if n, ok := new(big.Int).SetString(digits, 10); ok && n.IsInt64() {
		return printer.Sprint(number.Decimal(n.Int64()))
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
