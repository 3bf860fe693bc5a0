package util

import (
	"fmt"
	"strconv"
	"strings"
)

// RoundAmount parses a decimal money string and rounds it to whole cents,
// half away from zero. Rounding happens on the decimal digits, not on a
// float64, so "19.995" comes out as 20.00 rather than 19.99.
func RoundAmount(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) || (fracPart != "" && !isDigits(fracPart)) {
		return 0, fmt.Errorf("malformed amount: %q", raw)
	}

	units, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed amount: %q", raw)
	}

	cents := units * 100
	if len(fracPart) >= 1 {
		cents += int64(fracPart[0]-'0') * 10
	}
	if len(fracPart) >= 2 {
		cents += int64(fracPart[1] - '0')
	}
	if len(fracPart) >= 3 && fracPart[2] >= '5' {
		cents++
	}

	if negative {
		cents = -cents
	}
	return float64(cents) / 100, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
