package commission

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ptmanager_backend/pkg/money"
)

// Month is a calendar month. Dates are compared in their own location.
type Month struct {
	Year  int
	Month time.Month
}

func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

func ParseMonth(s string) (Month, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return Month{}, ErrInvalidMonth
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return Month{}, ErrInvalidMonth
	}
	mo, err := strconv.Atoi(parts[1])
	if err != nil || mo < 1 || mo > 12 {
		return Month{}, ErrInvalidMonth
	}
	return Month{Year: y, Month: time.Month(mo)}, nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) Contains(t time.Time) bool {
	return !t.IsZero() && t.Year() == m.Year && t.Month() == m.Month
}

func (m Month) index() int {
	return m.Year*12 + int(m.Month) - 1
}

// Start returns the first instant of the month in loc.
func (m Month) Start(loc *time.Location) time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
}

type PeriodKind string

const (
	PeriodYear  PeriodKind = "anno"
	PeriodMonth PeriodKind = "mese"
	PeriodRange PeriodKind = "range"
)

// Period is the reference window revenue is computed over.
type Period struct {
	Kind PeriodKind
	Year int
	// Month is used by PeriodMonth.
	Month time.Month
	// From and To bound PeriodRange, both inclusive.
	From Month
	To   Month
}

func (p Period) Validate() error {
	switch p.Kind {
	case PeriodYear:
	case PeriodMonth:
		if p.Month < time.January || p.Month > time.December {
			return ErrInvalidMonth
		}
	case PeriodRange:
		if p.From.index() > p.To.index() {
			return fmt.Errorf("range start %s is after end %s", p.From, p.To)
		}
	default:
		return fmt.Errorf("unknown period %q", p.Kind)
	}
	return nil
}

func (p Period) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	switch p.Kind {
	case PeriodYear:
		return t.Year() == p.Year
	case PeriodMonth:
		return t.Year() == p.Year && t.Month() == p.Month
	case PeriodRange:
		i := MonthOf(t).index()
		return i >= p.From.index() && i <= p.To.index()
	}
	return false
}

// ClientPayment is a payment received from a client, flattened with the
// client's flags.
type ClientPayment struct {
	ClientID  uint
	Amount    money.Cents
	Date      time.Time
	IsPast    bool
	OldClient bool
}

func (p ClientPayment) countsAsIncome() bool {
	return !p.IsPast && !p.OldClient
}

// Revenue sums the income of the period. Payments of old clients and
// historic imports are not income.
func Revenue(payments []ClientPayment, p Period) money.Cents {
	var total money.Cents
	for _, cp := range payments {
		if cp.countsAsIncome() && p.Contains(cp.Date) {
			total += cp.Amount
		}
	}
	return total
}

// SplitIncome separates the income of month m into first payments and
// renewals. A payment is a renewal when the same client paid earlier.
func SplitIncome(payments []ClientPayment, m Month) (newIncome, renewals money.Cents) {
	first := make(map[uint]time.Time)
	for _, cp := range payments {
		if cp.Date.IsZero() {
			continue
		}
		if f, ok := first[cp.ClientID]; !ok || cp.Date.Before(f) {
			first[cp.ClientID] = cp.Date
		}
	}

	for _, cp := range payments {
		if !cp.countsAsIncome() || !m.Contains(cp.Date) {
			continue
		}
		if cp.Date.After(first[cp.ClientID]) {
			renewals += cp.Amount
		} else {
			newIncome += cp.Amount
		}
	}
	return newIncome, renewals
}
