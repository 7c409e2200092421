package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"ptmanager_backend/pkg/commission"
	"ptmanager_backend/pkg/money"
)

const (
	marginL = 15.0
	marginR = 15.0
	pageW   = 210.0
)

var (
	colorDark  = [3]int{31, 41, 55}
	colorMuted = [3]int{107, 114, 128}
	colorRed   = [3]int{185, 28, 28}
	colorRow   = [3]int{243, 244, 246}
)

// PayrollPDF renders the monthly commission statement of a tenant.
func PayrollPDF(w io.Writer, tenantName string, s commission.Summary, generatedAt time.Time) error {
	contentW := pageW - marginL - marginR

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(marginL, 15, marginR)
	pdf.SetAutoPageBreak(true, 20)

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "", 7)
		pdf.SetTextColor(colorMuted[0], colorMuted[1], colorMuted[2])
		pdf.CellFormat(contentW/2, 6, tr("Generato il "+generatedAt.Format("02/01/2006 15:04")), "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW/2, 6, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(colorDark[0], colorDark[1], colorDark[2])
	pdf.CellFormat(contentW, 10, tr("Provvigioni "+s.Month), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(colorMuted[0], colorMuted[1], colorMuted[2])
	pdf.CellFormat(contentW, 6, tr(tenantName), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	widths := []float64{60, 30, 30, 30, 30}
	headers := []string{"Dipendente", "Tipo", "Provvigione", "Pagato", "Da pagare"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(colorDark[0], colorDark[1], colorDark[2])
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		align := "R"
		if i < 2 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 8, tr(h), "", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for i, l := range s.Lines {
		pdf.SetFillColor(colorRow[0], colorRow[1], colorRow[2])
		fill := i%2 == 0
		name := l.Name
		if l.Archived {
			name += " (archiviato)"
		}
		pdf.SetTextColor(colorDark[0], colorDark[1], colorDark[2])
		pdf.CellFormat(widths[0], 7, tr(name), "", 0, "L", fill, 0, "")
		pdf.CellFormat(widths[1], 7, tr(string(l.Kind)), "", 0, "L", fill, 0, "")
		pdf.CellFormat(widths[2], 7, tr(money.FormatEUR(l.Owed)), "", 0, "R", fill, 0, "")
		pdf.CellFormat(widths[3], 7, tr(money.FormatEUR(l.Paid)), "", 0, "R", fill, 0, "")
		if l.Due < 0 {
			pdf.SetTextColor(colorRed[0], colorRed[1], colorRed[2])
		}
		pdf.CellFormat(widths[4], 7, tr(money.FormatEUR(l.Due)), "", 0, "R", fill, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(6)
	totals := [][2]string{
		{"Incasso", money.FormatEUR(s.Revenue)},
		{"Provvigioni totali", money.FormatEUR(s.TotalOwed)},
		{"Pagato", money.FormatEUR(s.TotalPaid)},
		{"Da pagare", money.FormatEUR(s.TotalDue)},
		{"Utile netto", money.FormatEUR(s.NetProfit)},
	}
	pdf.SetTextColor(colorDark[0], colorDark[1], colorDark[2])
	for i, t := range totals {
		style := ""
		if i == len(totals)-1 {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(contentW-40, 7, tr(t[0]), "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, tr(t[1]), "", 1, "R", false, 0, "")
	}

	return pdf.Output(w)
}
