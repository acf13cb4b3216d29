package ingest

import (
	"errors"
	"strconv"
	"strings"
)

// ErrNotANumber indicates a value no supported locale could parse.
var ErrNotANumber = errors.New("ingest: value is not a number")

// ParseFlexibleNumber accepts both Chilean ("1.234,56") and US ("1,234.56")
// formatted numbers, plus plain machine formats. Currency symbols and spaces
// are stripped first.
func ParseFlexibleNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, ErrNotANumber
	}

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		// Both present: the rightmost separator is the decimal mark.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		// Only commas. A single comma followed by 1-2 digits is a decimal
		// mark; otherwise commas are thousands separators.
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0:
		// Only dots. A single dot with 1-2 trailing digits is a decimal
		// mark; "1.234" style values are Chilean thousands.
		if strings.Count(s, ".") > 1 || len(s)-lastDot-1 == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrNotANumber
	}
	if neg {
		value = -value
	}
	return value, nil
}
