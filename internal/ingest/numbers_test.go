package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFlexibleNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1.234,56", 1234.56},
		{"1,234.56", 1234.56},
		{"$1.234.567", 1234567},
		{"$ 1,234,567", 1234567},
		{"1.234", 1234},
		{"1.23", 1.23},
		{"12,5", 12.5},
		{"1500", 1500},
		{"1500.75", 1500.75},
		{"-2.500,00", -2500},
		{"0", 0},
	}
	for _, tc := range cases {
		got, err := ParseFlexibleNumber(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		require.InDelta(t, tc.want, got, 1e-9, "input %q", tc.in)
	}
}

func TestParseFlexibleNumberRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "12a4", "1..2,,3"} {
		_, err := ParseFlexibleNumber(in)
		require.ErrorIs(t, err, ErrNotANumber, "input %q", in)
	}
}
