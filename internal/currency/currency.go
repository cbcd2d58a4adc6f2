// Package currency formats and parses monetary amounts against a
// currency profile. It holds no state of its own; callers thread the
// active profile in from configuration.
package currency

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Profile describes how a currency is rendered.
type Profile struct {
	Code              string
	Name              string
	Symbol            string
	DecimalPlaces     int
	SymbolPosition    string // "before" or "after"
	ThousandSeparator string
	DecimalSeparator  string
}

// ErrUnsupportedCurrency indicates an unknown currency code.
var ErrUnsupportedCurrency = errors.New("currency: unsupported currency code")

var profiles = map[string]Profile{
	"TSH": {Code: "TSH", Name: "Tanzanian Shilling", Symbol: "TSh", DecimalPlaces: 2, SymbolPosition: "before", ThousandSeparator: ",", DecimalSeparator: "."},
	"USD": {Code: "USD", Name: "US Dollar", Symbol: "$", DecimalPlaces: 2, SymbolPosition: "before", ThousandSeparator: ",", DecimalSeparator: "."},
	"KES": {Code: "KES", Name: "Kenyan Shilling", Symbol: "KSh", DecimalPlaces: 2, SymbolPosition: "before", ThousandSeparator: ",", DecimalSeparator: "."},
	"UGX": {Code: "UGX", Name: "Ugandan Shilling", Symbol: "USh", DecimalPlaces: 0, SymbolPosition: "before", ThousandSeparator: ",", DecimalSeparator: "."},
	"EUR": {Code: "EUR", Name: "Euro", Symbol: "€", DecimalPlaces: 2, SymbolPosition: "after", ThousandSeparator: ".", DecimalSeparator: ","},
	"GBP": {Code: "GBP", Name: "British Pound", Symbol: "£", DecimalPlaces: 2, SymbolPosition: "before", ThousandSeparator: ",", DecimalSeparator: "."},
	"NGN": {Code: "NGN", Name: "Nigerian Naira", Symbol: "₦", DecimalPlaces: 2, SymbolPosition: "before", ThousandSeparator: ",", DecimalSeparator: "."},
	"ZAR": {Code: "ZAR", Name: "South African Rand", Symbol: "R", DecimalPlaces: 2, SymbolPosition: "before", ThousandSeparator: ",", DecimalSeparator: "."},
}

// ProfileFor resolves a currency code to its profile.
func ProfileFor(code string) (Profile, error) {
	p, ok := profiles[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, code)
	}
	return p, nil
}

// Profiles lists all supported profiles.
func Profiles() []Profile {
	out := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p)
	}
	return out
}

// Format renders amount using the profile's separators and symbol placement.
func Format(amount float64, p Profile) string {
	negative := math.Signbit(amount) && amount != 0
	abs := math.Abs(amount)

	scaled := strconv.FormatFloat(abs, 'f', p.DecimalPlaces, 64)
	intPart, fracPart, _ := strings.Cut(scaled, ".")

	grouped := groupThousands(intPart, p.ThousandSeparator)
	number := grouped
	if p.DecimalPlaces > 0 {
		number += p.DecimalSeparator + fracPart
	}
	if negative {
		number = "-" + number
	}

	if p.SymbolPosition == "after" {
		return number + " " + p.Symbol
	}
	return p.Symbol + " " + number
}

// Parse extracts a numeric amount from a formatted currency string.
// The symbol and grouping separators of the profile are stripped; an
// empty input parses to zero.
func Parse(s string, p Profile) (float64, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return 0, nil
	}
	cleaned = strings.ReplaceAll(cleaned, p.Symbol, "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, p.ThousandSeparator, "")
	if p.DecimalSeparator != "." {
		cleaned = strings.ReplaceAll(cleaned, p.DecimalSeparator, ".")
	}
	cleaned = strings.TrimPrefix(cleaned, "+")

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("currency: parse %q: %w", s, err)
	}
	return amount, nil
}

func groupThousands(digits, sep string) string {
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")
	if sep == "" || len(digits) <= 3 {
		if neg {
			return "-" + digits
		}
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
