package commission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptmanager_backend/pkg/money"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func TestPercentageEmployee(t *testing.T) {
	may := Month{2024, time.May}
	emp := Employee{ID: 1, Name: "Luca", Kind: KindPercentage, PercentageBP: 1000}
	payments := []Payment{
		{EmployeeID: 1, Amount: 30000, Date: day(2024, time.May, 3)},
		{EmployeeID: 1, Amount: 99900, Date: day(2024, time.April, 28)},
		{EmployeeID: 2, Amount: 5000, Date: day(2024, time.May, 10)},
	}

	s := Calculate(1000000, []Employee{emp}, payments, may)
	require.Len(t, s.Lines, 1)
	line := s.Lines[0]
	assert.Equal(t, money.Cents(100000), line.Owed)
	assert.Equal(t, money.Cents(30000), line.Paid)
	assert.Equal(t, money.Cents(70000), line.Due)
	assert.Equal(t, "2024-05", s.Month)
	assert.Equal(t, money.Cents(1000000-30000), s.NetProfit)
}

func TestFixedEmployeeOnlyCountsEntriesInMonth(t *testing.T) {
	may := Month{2024, time.May}
	emp := Employee{ID: 7, Kind: KindFixed, Fixed: []FixedEntry{
		{Amount: 50000, Date: day(2024, time.May, 1)},
		{Amount: 25000, Date: day(2024, time.May, 31)},
		{Amount: 80000, Date: day(2024, time.June, 1)},
		{Amount: 0, Date: day(2024, time.May, 2)},
	}}

	assert.Equal(t, money.Cents(75000), Owed(emp, 999999, may))
}

func TestArchivedEmployeesExcludedFromTotals(t *testing.T) {
	may := Month{2024, time.May}
	employees := []Employee{
		{ID: 1, Kind: KindPercentage, PercentageBP: 1000},
		{ID: 2, Kind: KindPercentage, PercentageBP: 2000, Archived: true},
	}
	payments := []Payment{
		{EmployeeID: 2, Amount: 10000, Date: day(2024, time.May, 5)},
	}

	s := Calculate(100000, employees, payments, may)
	require.Len(t, s.Lines, 2)
	assert.Equal(t, money.Cents(10000), s.TotalOwed)
	assert.Equal(t, money.Cents(0), s.TotalPaid)
	assert.Equal(t, money.Cents(100000), s.NetProfit)
	assert.Equal(t, money.Cents(20000-10000), s.Lines[1].Due)
}

func TestOverpaymentGivesNegativeDue(t *testing.T) {
	may := Month{2024, time.May}
	emp := Employee{ID: 1, Kind: KindPercentage, PercentageBP: 500}
	payments := []Payment{{EmployeeID: 1, Amount: 9000, Date: day(2024, time.May, 20)}}

	s := Calculate(100000, []Employee{emp}, payments, may)
	assert.Equal(t, money.Cents(-4000), s.Lines[0].Due)
}

func TestDueEqualsOwedMinusPaid(t *testing.T) {
	m := Month{2023, time.November}
	for revenue := money.Cents(0); revenue < 2000000; revenue += 77777 {
		for _, bp := range []int64{0, 150, 1000, 3333, 10000} {
			emp := Employee{ID: 3, Kind: KindPercentage, PercentageBP: bp}
			payments := []Payment{
				{EmployeeID: 3, Amount: revenue / 7, Date: day(2023, time.November, 2)},
				{EmployeeID: 3, Amount: 1234, Date: day(2023, time.November, 29)},
			}
			s := Calculate(revenue, []Employee{emp}, payments, m)
			line := s.Lines[0]
			assert.Equal(t, line.Owed-(revenue/7+1234), line.Due)

			exact := float64(revenue) * float64(bp) / 10000
			assert.InDelta(t, exact, float64(line.Owed), 1)
		}
	}
}

func TestSuggestPayment(t *testing.T) {
	assert.Equal(t, money.Cents(5000), SuggestPayment(10000, 5000))
	assert.Equal(t, money.Cents(10000), SuggestPayment(10000, 10000))
	assert.Equal(t, money.Cents(0), SuggestPayment(-300, 10000))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Employee{Kind: KindPercentage, PercentageBP: 2500}.Validate())
	assert.ErrorIs(t, Employee{Kind: KindPercentage, PercentageBP: -1}.Validate(), ErrInvalidPercentage)
	assert.ErrorIs(t, Employee{Kind: KindPercentage, PercentageBP: 10001}.Validate(), ErrInvalidPercentage)
	assert.ErrorIs(t, Employee{Kind: "bonus"}.Validate(), ErrUnknownKind)
	assert.ErrorIs(t, Employee{Kind: KindFixed, Fixed: []FixedEntry{{Amount: 100}}}.Validate(), ErrInvalidFixedAmount)
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-02")
	require.NoError(t, err)
	assert.Equal(t, Month{2024, time.February}, m)

	for _, bad := range []string{"2024-13", "24-02", "2024/02", "", "2024-2"} {
		_, err := ParseMonth(bad)
		assert.ErrorIs(t, err, ErrInvalidMonth, bad)
	}
}

func TestRevenueSkipsOldClientsAndHistoricPayments(t *testing.T) {
	payments := []ClientPayment{
		{ClientID: 1, Amount: 10000, Date: day(2024, time.March, 1)},
		{ClientID: 2, Amount: 20000, Date: day(2024, time.March, 2), OldClient: true},
		{ClientID: 3, Amount: 40000, Date: day(2024, time.March, 3), IsPast: true},
		{ClientID: 1, Amount: 15000, Date: day(2024, time.July, 1)},
		{ClientID: 4, Amount: 70000, Date: day(2023, time.December, 31)},
	}

	assert.Equal(t, money.Cents(25000), Revenue(payments, Period{Kind: PeriodYear, Year: 2024}))
	assert.Equal(t, money.Cents(10000), Revenue(payments, Period{Kind: PeriodMonth, Year: 2024, Month: time.March}))
	assert.Equal(t, money.Cents(80000), Revenue(payments, Period{
		Kind: PeriodRange,
		From: Month{2023, time.December},
		To:   Month{2024, time.March},
	}))
}

func TestPeriodValidate(t *testing.T) {
	assert.NoError(t, Period{Kind: PeriodYear, Year: 2024}.Validate())
	assert.Error(t, Period{Kind: PeriodMonth, Year: 2024}.Validate())
	assert.Error(t, Period{Kind: PeriodRange, From: Month{2024, time.May}, To: Month{2024, time.January}}.Validate())
	assert.Error(t, Period{Kind: "week"}.Validate())
}

func TestSplitIncome(t *testing.T) {
	payments := []ClientPayment{
		{ClientID: 1, Amount: 10000, Date: day(2024, time.January, 10)},
		{ClientID: 1, Amount: 12000, Date: day(2024, time.May, 10)},
		{ClientID: 2, Amount: 30000, Date: day(2024, time.May, 3)},
		{ClientID: 3, Amount: 5000, Date: day(2023, time.May, 3), IsPast: true},
		{ClientID: 3, Amount: 6000, Date: day(2024, time.May, 4)},
	}

	newIncome, renewals := SplitIncome(payments, Month{2024, time.May})
	assert.Equal(t, money.Cents(30000), newIncome)
	assert.Equal(t, money.Cents(18000), renewals)
}
