// Package report renders exports: the lead spreadsheet and the monthly
// payroll statement.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"ptmanager_backend/internal/model"
)

const leadsSheet = "Lead"

var leadColumns = []string{
	"Data", "Nome", "Telefono", "Email", "Fonte", "Setter",
	"Appuntamento", "Ora", "Show-up", "Offerta", "Chiuso", "Chiamate", "Stato", "Note",
}

func yesNo(b bool) string {
	if b {
		return "Sì"
	}
	return "No"
}

// LeadsXLSX writes leads as a single-sheet workbook with a filterable header.
func LeadsXLSX(w io.Writer, leads []model.Lead) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", leadsSheet); err != nil {
		return err
	}

	header := make([]interface{}, len(leadColumns))
	for i, c := range leadColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(leadsSheet, "A1", &header); err != nil {
		return err
	}

	for i, l := range leads {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			l.CreatedAt.Format("02/01/2006"),
			l.Name,
			l.Phone,
			l.Email,
			l.Source,
			l.CollaboratorName,
			l.BookingDate,
			l.BookingTime,
			yesNo(l.ShowUp),
			yesNo(l.Offer),
			yesNo(l.Closed),
			l.Dialed,
			string(l.Status),
			l.Note,
		}
		if err := f.SetSheetRow(leadsSheet, cell, &row); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(leadColumns))
	if err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"1F2937"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(leadsSheet, "A1", lastCol+"1", bold); err != nil {
		return err
	}
	if err := f.SetColWidth(leadsSheet, "A", lastCol, 16); err != nil {
		return err
	}
	if err := f.AutoFilter(leadsSheet, fmt.Sprintf("A1:%s1", lastCol), nil); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}
