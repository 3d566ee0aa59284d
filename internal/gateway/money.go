package gateway

import (
	"fmt"
	"strconv"
	"strings"
)

// Currencies whose minor unit deviates from the default two decimals.
var currencyExponents = map[string]int{
	"JPY": 0,
	"ISK": 0,
	"HUF": 0,
}

// CurrencyExponent returns the number of decimals the provider expects
// for a currency's value string.
func CurrencyExponent(currency string) int {
	if exp, ok := currencyExponents[strings.ToUpper(currency)]; ok {
		return exp
	}
	return 2
}

// NewAmount formats an amount in minor units as the provider's
// major-unit decimal string, e.g. 4995 EUR -> "49.95", 4995 JPY ->
// "4995".
func NewAmount(minorUnits int64, currency string) Amount {
	exp := CurrencyExponent(currency)
	value := formatMinorUnits(minorUnits, exp)
	return Amount{Currency: strings.ToUpper(currency), Value: value}
}

func formatMinorUnits(minorUnits int64, exp int) string {
	if exp == 0 {
		return strconv.FormatInt(minorUnits, 10)
	}
	negative := minorUnits < 0
	if negative {
		minorUnits = -minorUnits
	}
	div := int64(1)
	for i := 0; i < exp; i++ {
		div *= 10
	}
	major := minorUnits / div
	minor := minorUnits % div

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%s%d.%0*d", sign, major, exp, minor)
}

// MinorUnits parses the amount's decimal value string back into minor
// units.
func (a Amount) MinorUnits() (int64, error) {
	exp := CurrencyExponent(a.Currency)

	value := strings.TrimSpace(a.Value)
	negative := strings.HasPrefix(value, "-")
	value = strings.TrimPrefix(value, "-")

	intPart := value
	fracPart := ""
	if i := strings.IndexByte(value, '.'); i >= 0 {
		intPart, fracPart = value[:i], value[i+1:]
	}
	if len(fracPart) > exp {
		return 0, fmt.Errorf("amount %q has more than %d decimals", a.Value, exp)
	}
	for len(fracPart) < exp {
		fracPart += "0"
	}

	major, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", a.Value, err)
	}
	var minor int64
	if fracPart != "" {
		minor, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse amount %q: %w", a.Value, err)
		}
	}

	div := int64(1)
	for i := 0; i < exp; i++ {
		div *= 10
	}
	total := major*div + minor
	if negative {
		total = -total
	}
	return total, nil
}
