// Package commission computes what each employee has earned, has been paid
// and is still owed for a month, and the revenue figures it is based on.
package commission

import (
	"errors"
	"fmt"
	"time"

	"ptmanager_backend/pkg/money"
)

type Kind string

const (
	KindPercentage Kind = "percentuale"
	KindFixed      Kind = "fisso"
)

var (
	ErrUnknownKind        = errors.New("unknown commission type")
	ErrInvalidPercentage  = errors.New("percentage must be between 0 and 100")
	ErrInvalidFixedAmount = errors.New("fixed amounts must be positive and dated")
	ErrInvalidMonth       = errors.New("month must be formatted as YYYY-MM")
)

type FixedEntry struct {
	Amount money.Cents
	Date   time.Time
}

type Employee struct {
	ID           uint
	Name         string
	Kind         Kind
	PercentageBP int64
	Fixed        []FixedEntry
	Archived     bool
}

func (e Employee) Validate() error {
	switch e.Kind {
	case KindPercentage:
		if e.PercentageBP < 0 || e.PercentageBP > 10000 {
			return ErrInvalidPercentage
		}
	case KindFixed:
		for _, f := range e.Fixed {
			if f.Amount <= 0 || f.Date.IsZero() {
				return ErrInvalidFixedAmount
			}
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
	return nil
}

type Payment struct {
	EmployeeID uint
	Amount     money.Cents
	Date       time.Time
}

type Line struct {
	EmployeeID uint        `json:"employee_id"`
	Name       string      `json:"name"`
	Kind       Kind        `json:"kind"`
	Archived   bool        `json:"archived"`
	Owed       money.Cents `json:"provvigione"`
	Paid       money.Cents `json:"pagato"`
	Due        money.Cents `json:"da_pagare"`
}

type Summary struct {
	Month     string      `json:"month"`
	Revenue   money.Cents `json:"incasso"`
	Lines     []Line      `json:"lines"`
	TotalOwed money.Cents `json:"provvigioni_totali"`
	TotalPaid money.Cents `json:"pagato_totale"`
	TotalDue  money.Cents `json:"da_pagare_totale"`
	NetProfit money.Cents `json:"utile_netto"`
}

// Owed is what e earned in month m given the reference revenue.
func Owed(e Employee, revenue money.Cents, m Month) money.Cents {
	switch e.Kind {
	case KindPercentage:
		return money.Percent(revenue, e.PercentageBP)
	case KindFixed:
		var total money.Cents
		for _, f := range e.Fixed {
			if f.Amount > 0 && m.Contains(f.Date) {
				total += f.Amount
			}
		}
		return total
	}
	return 0
}

// Paid sums the payments made to employeeID within month m.
func Paid(employeeID uint, payments []Payment, m Month) money.Cents {
	var total money.Cents
	for _, p := range payments {
		if p.EmployeeID == employeeID && m.Contains(p.Date) {
			total += p.Amount
		}
	}
	return total
}

// Calculate builds the monthly summary. Archived employees get a line but are
// left out of the totals. Due may be negative when an employee was overpaid.
func Calculate(revenue money.Cents, employees []Employee, payments []Payment, m Month) Summary {
	s := Summary{
		Month:   m.String(),
		Revenue: revenue,
		Lines:   make([]Line, 0, len(employees)),
	}

	for _, e := range employees {
		owed := Owed(e, revenue, m)
		paid := Paid(e.ID, payments, m)
		line := Line{
			EmployeeID: e.ID,
			Name:       e.Name,
			Kind:       e.Kind,
			Archived:   e.Archived,
			Owed:       owed,
			Paid:       paid,
			Due:        owed - paid,
		}
		s.Lines = append(s.Lines, line)

		if e.Archived {
			continue
		}
		s.TotalOwed += line.Owed
		s.TotalPaid += line.Paid
		s.TotalDue += line.Due
	}

	s.NetProfit = revenue - s.TotalPaid
	return s
}

// SuggestPayment is the base amount for paying pctBP basis points of owed.
func SuggestPayment(owed money.Cents, pctBP int64) money.Cents {
	if owed <= 0 {
		return 0
	}
	return money.Percent(owed, pctBP)
}
