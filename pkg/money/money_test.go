package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatEUR(t *testing.T) {
	cases := []struct {
		in   Cents
		want string
	}{
		{0, "€0,00"},
		{5, "€0,05"},
		{123450, "€1.234,50"},
		{100000000, "€1.000.000,00"},
		{99999, "€999,99"},
		{-500, "-€5,00"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatEUR(tc.in))
	}
}

func TestFormatEURPtrNil(t *testing.T) {
	assert.Equal(t, "€0,00", FormatEURPtr(nil))

	v := Cents(1050)
	assert.Equal(t, "€10,50", FormatEURPtr(&v))
}

func TestParse(t *testing.T) {
	cases := map[string]Cents{
		"1234,50":   123450,
		"1234.50":   123450,
		"1.234,50":  123450,
		"1,234.50":  123450,
		"€ 10":      1000,
		"0,5":       50,
		"1.234":     123400,
		"1.234.567": 123456700,
		"-12,30":    -1230,
		"15":        1500,
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "abc", "1,2,3", "10,123", "€"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
}

func TestPercentRounding(t *testing.T) {
	// 10% of €10,05 is 100.5 cents, rounded away from zero.
	assert.Equal(t, Cents(101), Percent(1005, 1000))
	assert.Equal(t, Cents(-101), Percent(-1005, 1000))
	assert.Equal(t, Cents(2500), Percent(10000, 2500))
	assert.Equal(t, Cents(0), Percent(0, 3333))
}

func TestPercentWithinOneCentOfExact(t *testing.T) {
	for amount := Cents(0); amount < 50000; amount += 137 {
		for _, bp := range []int64{0, 1, 333, 1250, 2000, 5000, 10000} {
			exact := float64(amount) * float64(bp) / 10000
			got := float64(Percent(amount, bp))
			assert.InDelta(t, exact, got, 0.5+1e-9)
		}
	}
}

func TestFromFloat(t *testing.T) {
	assert.Equal(t, Cents(1999), FromFloat(19.99))
	assert.Equal(t, Cents(30), FromFloat(0.1+0.2))
	assert.Equal(t, int64(1250), PercentToBasisPoints(12.5))
}
