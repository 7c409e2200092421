package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Cents is an amount of euro cents. All stored and computed amounts use it.
type Cents int64

var ErrInvalidAmount = errors.New("invalid amount")

func FromFloat(f float64) Cents {
	return Cents(math.Round(f * 100))
}

func (c Cents) Float() float64 {
	return float64(c) / 100
}

func (c Cents) String() string {
	return FormatEUR(c)
}

// Parse reads an amount written by a person: "1234,50", "1234.50", "1.234,50", "€ 10".
// A single dot followed by exactly three digits is read as a thousands separator.
func Parse(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "€")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	var intPart, fracPart string
	switch {
	case lastDot >= 0 && lastComma >= 0:
		sep := lastDot
		thousands := ","
		if lastComma > lastDot {
			sep = lastComma
			thousands = "."
		}
		intPart = strings.ReplaceAll(s[:sep], thousands, "")
		fracPart = s[sep+1:]
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return 0, ErrInvalidAmount
		}
		intPart, fracPart = s[:lastComma], s[lastComma+1:]
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 || len(s)-lastDot-1 == 3 {
			intPart = strings.ReplaceAll(s, ".", "")
		} else {
			intPart, fracPart = s[:lastDot], s[lastDot+1:]
		}
	default:
		intPart = s
	}

	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > 2 {
		return 0, fmt.Errorf("%w: more than two decimals in %q", ErrInvalidAmount, s)
	}
	for len(fracPart) < 2 {
		fracPart += "0"
	}

	units, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || units < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	frac, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil || frac < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	c := Cents(units*100 + frac)
	if negative {
		c = -c
	}
	return c, nil
}

// FormatEUR renders c the Italian way, e.g. 123450 -> "€1.234,50".
func FormatEUR(c Cents) string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}

	units := strconv.FormatInt(v/100, 10)
	var b strings.Builder
	for i, r := range units {
		if i > 0 && (len(units)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	return fmt.Sprintf("%s€%s,%02d", sign, b.String(), v%100)
}

// FormatEURPtr treats a missing amount as zero.
func FormatEURPtr(c *Cents) string {
	if c == nil {
		return FormatEUR(0)
	}
	return FormatEUR(*c)
}

// Percent returns amount * basisPoints / 10000, rounded half away from zero.
// 2550 basis points is 25.50%.
func Percent(amount Cents, basisPoints int64) Cents {
	num := int64(amount) * basisPoints
	q := num / 10000
	r := num % 10000
	if r < 0 {
		r = -r
	}
	if r*2 >= 10000 {
		if num < 0 {
			q--
		} else {
			q++
		}
	}
	return Cents(q)
}

func Sum(amounts ...Cents) Cents {
	var total Cents
	for _, a := range amounts {
		total += a
	}
	return total
}

// PercentToBasisPoints converts a percentage such as 12.5 to 1250.
func PercentToBasisPoints(p float64) int64 {
	return int64(math.Round(p * 100))
}
