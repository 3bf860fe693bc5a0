package util

import "strings"

// NormalizeBarcode strips everything but digits and X, uppercased. X is kept
// so ISBN-10 check digits survive normalization. Returns "" when nothing
// usable remains.
func NormalizeBarcode(input string) string {
	s := strings.ToUpper(strings.TrimSpace(input))
	out := strings.Builder{}
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == 'X' {
			out.WriteRune(r)
		}
	}
	return out.String()
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }
