package provider

import (
	"errors"
	"fmt"
	"strings"
)

const maxTickerLength = 10

var ErrInvalidTicker = errors.New("invalid ticker")

// NormalizeTicker trims and upper-cases a ticker symbol.
func NormalizeTicker(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidateTicker accepts exchange symbols such as BRK.B, BF-B and ^GSPC.
// The ticker must already be normalized.
func ValidateTicker(s string) error {
	if s == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidTicker)
	}
	if len(s) > maxTickerLength {
		return fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidTicker, s, maxTickerLength)
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '^':
		default:
			return fmt.Errorf("%w: %q contains %q", ErrInvalidTicker, s, r)
		}
	}
	return nil
}

// ParseTickers splits a comma, whitespace or newline separated list,
// normalizing each entry and dropping blanks. Duplicates are kept.
func ParseTickers(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r' || r == '\t' || r == ' '
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := NormalizeTicker(f); t != "" {
			out = append(out, t)
		}
	}
	return out
}
