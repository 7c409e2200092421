package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/commission"
)

func TestLeadsXLSX(t *testing.T) {
	leads := []model.Lead{
		{Name: "Marco Rossi", Phone: "+393331234567", Source: "instagram", ShowUp: true, Dialed: 2, Status: model.LeadStatusBooked},
		{Name: "Sara", Source: "quiz_popup", Closed: true},
	}
	leads[0].CreatedAt = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, LeadsXLSX(&buf, leads))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(leadsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, leadColumns, rows[0])
	assert.Equal(t, "10/06/2024", rows[1][0])
	assert.Equal(t, "Marco Rossi", rows[1][1])
	assert.Equal(t, "Sì", rows[1][8])
	assert.Equal(t, "2", rows[1][11])
	assert.Equal(t, "Sì", rows[2][10])
}

func TestPayrollPDF(t *testing.T) {
	s := commission.Summary{
		Month:   "2024-06",
		Revenue: 1000000,
		Lines: []commission.Line{
			{EmployeeID: 1, Name: "Giulia", Kind: commission.KindPercentage, Owed: 100000, Paid: 40000, Due: 60000},
			{EmployeeID: 2, Name: "Paolo", Kind: commission.KindFixed, Owed: 50000, Paid: 60000, Due: -10000, Archived: true},
		},
		TotalOwed: 100000,
		TotalPaid: 40000,
		TotalDue:  60000,
		NetProfit: 960000,
	}

	var buf bytes.Buffer
	require.NoError(t, PayrollPDF(&buf, "Coach Anna", s, time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 1000)
}
