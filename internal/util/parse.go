package util

import (
	"regexp"
	"strconv"
	"strings"
)

var leadingNumberRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)`)

// ParsePrice reads the leading decimal number of s, the way "9.97" or "3.99/lb"
// appear in flyer data. Empty, non-numeric, zero and negative values yield nil.
func ParsePrice(s string) *float64 {
	m := leadingNumberRegex.FindString(strings.TrimSpace(s))
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

// AsFloat converts a decoded JSON value to a price. Non-negative numbers pass
// through as-is; strings go through ParsePrice. Anything else is nil.
func AsFloat(v any) *float64 {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return nil
		}
		return &n
	case int:
		if n < 0 {
			return nil
		}
		f := float64(n)
		return &f
	case string:
		return ParsePrice(n)
	}
	return nil
}

// AsString converts a decoded JSON scalar to a string. Integral numbers print
// without a decimal point so numeric ids round-trip cleanly.
func AsString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}
