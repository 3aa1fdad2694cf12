// Package money keeps amounts as integer minor units. Decimal values only
// appear at the edges: parsing caller input and rendering for people.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	domainErrors "github.com/wekeepgrowing/portal-billing/internal/domain/errors"
)

// Minor is an amount in the smallest unit of its currency (cents for EUR).
type Minor int64

// MaxMinor is the largest amount accepted by the gateway (99,999,999.99 in a
// two decimal currency).
const MaxMinor Minor = 9_999_999_999

var zeroDecimalCurrencies = map[string]struct{}{
	"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "JPY": {}, "KMF": {}, "KRW": {}, "MGA": {},
	"PYG": {}, "RWF": {}, "UGX": {}, "VND": {}, "VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

var symbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"BRL": "R$",
}

// NormalizeCurrency upper-cases and validates an ISO 4217 code.
func NormalizeCurrency(currency string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if len(code) != 3 {
		return "", domainErrors.NewValidationError("currency", "%q is not an ISO 4217 code", currency)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", domainErrors.NewValidationError("currency", "%q is not an ISO 4217 code", currency)
		}
	}
	return code, nil
}

// Exponent is the number of decimal places of currency's minor unit.
func Exponent(currency string) int32 {
	if _, ok := zeroDecimalCurrencies[strings.ToUpper(currency)]; ok {
		return 0
	}
	return 2
}

// ToMinor converts a decimal amount exactly. Amounts with more precision than
// the currency allows are rejected, never rounded.
func ToMinor(amount decimal.Decimal, currency string) (Minor, error) {
	if amount.IsNegative() {
		return 0, domainErrors.NewValidationError("amount", "must not be negative")
	}

	exp := Exponent(currency)
	scaled := amount.Shift(exp)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, domainErrors.NewValidationError("amount", "%s has more than %d decimal places for %s", amount, exp, currency)
	}
	if scaled.GreaterThan(decimal.NewFromInt(int64(MaxMinor))) {
		return 0, domainErrors.NewValidationError("amount", "%s exceeds the maximum chargeable amount", amount)
	}
	return Minor(scaled.IntPart()), nil
}

// FromMinor converts back to currency units for presentation.
func FromMinor(m Minor, currency string) decimal.Decimal {
	return decimal.New(int64(m), -Exponent(currency))
}

// Format renders m for humans, e.g. "€49.18" or "1200 JPY".
func Format(m Minor, currency string) string {
	code := strings.ToUpper(currency)
	value := FromMinor(m, code).StringFixed(Exponent(code))
	if sym, ok := symbols[code]; ok {
		return sym + value
	}
	return fmt.Sprintf("%s %s", value, code)
}
