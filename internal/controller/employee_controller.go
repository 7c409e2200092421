package controller

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/commission"
	"ptmanager_backend/pkg/database"
	"ptmanager_backend/pkg/money"
	"ptmanager_backend/pkg/report"
)

type FixedEntryInput struct {
	Amount Amount `json:"amount"`
	Date   string `json:"date"`
}

type EmployeeInput struct {
	Name     string  `json:"name"`
	FullName string  `json:"full_name"`
	IBAN     string  `json:"iban"`
	Role     string  `json:"role"`
	Type     string  `json:"type"`

	// Percentage is in percent, 12.5 means 12.50%.
	Percentage   float64           `json:"percentage"`
	FixedEntries []FixedEntryInput `json:"fixed_entries"`
	Archived     bool              `json:"archived"`
}

func (in *EmployeeInput) build(tenantID uint) (model.Employee, error) {
	e := model.Employee{
		TenantID:     tenantID,
		Name:         strings.TrimSpace(in.Name),
		FullName:     in.FullName,
		IBAN:         strings.ReplaceAll(strings.ToUpper(in.IBAN), " ", ""),
		Role:         in.Role,
		Type:         in.Type,
		PercentageBP: money.PercentToBasisPoints(in.Percentage),
		Archived:     in.Archived,
	}
	if e.Name == "" {
		return e, errors.New("name is required")
	}
	if e.Role == "" {
		e.Role = "Setter"
	}
	if in.Percentage < 0 {
		return e, commission.ErrInvalidPercentage
	}
	for _, f := range in.FixedEntries {
		date, err := parseDate(f.Date)
		if err != nil {
			return e, fmt.Errorf("invalid fixed entry date %q", f.Date)
		}
		e.FixedEntries = append(e.FixedEntries, model.EmployeeFixedEntry{Amount: f.Amount.Cents(), Date: date})
	}
	if e.Type != string(commission.KindFixed) {
		e.FixedEntries = nil
	}
	return e, e.ToCommission().Validate()
}

func ListEmployees(c *fiber.Ctx) error {
	claims := claimsOf(c)

	query := database.GetDB().Preload("FixedEntries").Where("tenant_id = ?", claims.TenantID)
	if c.Query("archived") != "true" {
		query = query.Where("archived = ?", false)
	}

	var employees []model.Employee
	if err := query.Order("name asc").Find(&employees).Error; err != nil {
		return serverError(c, "Could not fetch employees", err)
	}
	return c.JSON(employees)
}

func CreateEmployee(c *fiber.Ctx) error {
	claims := claimsOf(c)
	input := new(EmployeeInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	employee, err := input.build(claims.TenantID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := database.GetDB().Create(&employee).Error; err != nil {
		return serverError(c, "Could not create employee", err)
	}
	return c.Status(fiber.StatusCreated).JSON(employee)
}

func findEmployee(c *fiber.Ctx, db *gorm.DB) (*model.Employee, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	var e model.Employee
	if err := db.Preload("FixedEntries").Where("id = ? AND tenant_id = ?", id, claimsOf(c).TenantID).
		First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateEmployee replaces the employee, fixed schedule included.
func UpdateEmployee(c *fiber.Ctx) error {
	claims := claimsOf(c)
	db := database.GetDB()

	existing, err := findEmployee(c, db)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Employee not found",
		})
	}

	input := new(EmployeeInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	updated, err := input.build(claims.TenantID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("employee_id = ?", existing.ID).Delete(&model.EmployeeFixedEntry{}).Error; err != nil {
			return err
		}
		entries := updated.FixedEntries
		updated.FixedEntries = nil
		if err := tx.Save(&updated).Error; err != nil {
			return err
		}
		for i := range entries {
			entries[i].EmployeeID = updated.ID
		}
		if len(entries) > 0 {
			if err := tx.Create(&entries).Error; err != nil {
				return err
			}
		}
		updated.FixedEntries = entries
		return nil
	})
	if err != nil {
		return serverError(c, "Could not update employee", err)
	}
	return c.JSON(updated)
}

// ArchiveEmployee keeps the employee and its payments for past summaries.
func ArchiveEmployee(c *fiber.Ctx) error {
	db := database.GetDB()
	employee, err := findEmployee(c, db)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Employee not found",
		})
	}

	if err := db.Model(employee).Update("archived", true).Error; err != nil {
		return serverError(c, "Could not archive employee", err)
	}
	return c.JSON(employee)
}

type EmployeePaymentInput struct {
	EmployeeID uint   `json:"employee_id"`
	BaseAmount Amount `json:"base_amount"`
	// PercentagePaid is the share of the owed amount being paid, in percent.
	PercentagePaid float64 `json:"percentage_paid"`
	Bonus          Amount  `json:"bonus"`
	Date           string  `json:"date"`
	Note           string  `json:"note"`
}

func ListEmployeePayments(c *fiber.Ctx) error {
	claims := claimsOf(c)

	query := database.GetDB().Where("tenant_id = ?", claims.TenantID)
	if m := c.Query("month"); m != "" {
		month, err := commission.ParseMonth(m)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		start := month.Start(time.Local)
		query = query.Where("date >= ? AND date < ?", start, start.AddDate(0, 1, 0))
	}
	if id := c.QueryInt("employee_id"); id > 0 {
		query = query.Where("employee_id = ?", id)
	}

	var payments []model.EmployeePayment
	if err := query.Order("date desc").Find(&payments).Error; err != nil {
		return serverError(c, "Could not fetch payments", err)
	}
	return c.JSON(payments)
}

// CreateEmployeePayment records a payout. Without a base amount, the base
// is percentage_paid of what the employee earned in the payment's month.
func CreateEmployeePayment(c *fiber.Ctx) error {
	claims := claimsOf(c)
	input := new(EmployeePaymentInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	date := time.Now()
	if input.Date != "" {
		d, err := parseDate(input.Date)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid date",
			})
		}
		date = d
	}
	if input.PercentagePaid < 0 || input.PercentagePaid > 100 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": commission.ErrInvalidPercentage.Error(),
		})
	}
	pctBP := money.PercentToBasisPoints(input.PercentagePaid)
	if input.PercentagePaid == 0 {
		pctBP = 10000
	}

	db := database.GetDB()
	var employee model.Employee
	if err := db.Preload("FixedEntries").Where("id = ? AND tenant_id = ?", input.EmployeeID, claims.TenantID).
		First(&employee).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Employee not found",
		})
	}

	base := input.BaseAmount.Cents()
	if base == 0 {
		month := commission.MonthOf(date)
		payments, err := loadCommissionPayments(db, claims.TenantID)
		if err != nil {
			return serverError(c, "Could not compute revenue", err)
		}
		revenue := commission.Revenue(payments, commission.Period{Kind: commission.PeriodMonth, Year: month.Year, Month: month.Month})
		base = commission.SuggestPayment(commission.Owed(employee.ToCommission(), revenue, month), pctBP)
	}
	if base < 0 || input.Bonus.Cents() < 0 || base+input.Bonus.Cents() == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Payment amount must be positive",
		})
	}

	payment := model.EmployeePayment{
		TenantID:         claims.TenantID,
		EmployeeID:       employee.ID,
		Amount:           base + input.Bonus.Cents(),
		BaseAmount:       base,
		PercentagePaidBP: pctBP,
		Bonus:            input.Bonus.Cents(),
		Date:             date,
		Note:             input.Note,
	}
	if err := db.Create(&payment).Error; err != nil {
		return serverError(c, "Could not create payment", err)
	}
	return c.Status(fiber.StatusCreated).JSON(payment)
}

func DeleteEmployeePayment(c *fiber.Ctx) error {
	claims := claimsOf(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid payment ID",
		})
	}

	result := database.GetDB().Where("id = ? AND tenant_id = ?", id, claims.TenantID).Delete(&model.EmployeePayment{})
	if result.Error != nil {
		return serverError(c, "Could not delete payment", result.Error)
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Payment not found",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// loadCommissionPayments flattens the tenant's client payments with the
// owning client's flags.
func loadCommissionPayments(db *gorm.DB, tenantID uint) ([]commission.ClientPayment, error) {
	var rows []model.ClientPayment
	if err := db.Preload("Client").Where("tenant_id = ?", tenantID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]commission.ClientPayment, 0, len(rows))
	for _, p := range rows {
		out = append(out, p.ForCommission(p.Client.IsOldClient))
	}
	return out, nil
}

// parsePeriod reads period=anno|mese|range with year, monthIndex (1-12),
// from and to (YYYY-MM). It defaults to the filter month.
func parsePeriod(c *fiber.Ctx, month commission.Month) (commission.Period, error) {
	p := commission.Period{Kind: commission.PeriodKind(c.Query("period", string(commission.PeriodMonth)))}
	p.Year = c.QueryInt("year", month.Year)

	switch p.Kind {
	case commission.PeriodMonth:
		p.Month = month.Month
		if mi := c.Query("monthIndex"); mi != "" {
			n, err := strconv.Atoi(mi)
			if err != nil {
				return p, commission.ErrInvalidMonth
			}
			p.Month = time.Month(n)
		}
	case commission.PeriodRange:
		from, err := commission.ParseMonth(c.Query("from"))
		if err != nil {
			return p, err
		}
		to, err := commission.ParseMonth(c.Query("to"))
		if err != nil {
			return p, err
		}
		p.From, p.To = from, to
	}
	return p, p.Validate()
}

func computeSummary(c *fiber.Ctx) (commission.Summary, commission.Period, error) {
	claims := claimsOf(c)
	db := database.GetDB()

	month := commission.MonthOf(time.Now())
	if m := c.Query("month"); m != "" {
		parsed, err := commission.ParseMonth(m)
		if err != nil {
			return commission.Summary{}, commission.Period{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		month = parsed
	}
	period, err := parsePeriod(c, month)
	if err != nil {
		return commission.Summary{}, period, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	payments, err := loadCommissionPayments(db, claims.TenantID)
	if err != nil {
		return commission.Summary{}, period, err
	}

	var employees []model.Employee
	if err := db.Preload("FixedEntries").Where("tenant_id = ?", claims.TenantID).Order("name asc").
		Find(&employees).Error; err != nil {
		return commission.Summary{}, period, err
	}
	var paid []model.EmployeePayment
	start := month.Start(time.Local)
	if err := db.Where("tenant_id = ? AND date >= ? AND date < ?", claims.TenantID, start, start.AddDate(0, 1, 0)).
		Find(&paid).Error; err != nil {
		return commission.Summary{}, period, err
	}

	emps := make([]commission.Employee, 0, len(employees))
	for i := range employees {
		emps = append(emps, employees[i].ToCommission())
	}
	pays := make([]commission.Payment, 0, len(paid))
	for i := range paid {
		pays = append(pays, paid[i].ToCommission())
	}

	return commission.Calculate(commission.Revenue(payments, period), emps, pays, month), period, nil
}

func summaryError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	return serverError(c, "Could not compute summary", err)
}

// GetCommissionSummary answers the payroll page: per employee owed, paid
// and due for the month, with totals and net profit.
func GetCommissionSummary(c *fiber.Ctx) error {
	summary, period, err := computeSummary(c)
	if err != nil {
		return summaryError(c, err)
	}
	return c.JSON(fiber.Map{
		"summary": summary,
		"period":  period,
	})
}

func GetPayrollPDF(c *fiber.Ctx) error {
	claims := claimsOf(c)
	summary, _, err := computeSummary(c)
	if err != nil {
		return summaryError(c, err)
	}

	var tenant model.Tenant
	database.GetDB().First(&tenant, claims.TenantID)

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="provvigioni-%s.pdf"`, summary.Month))
	if err := report.PayrollPDF(c.Response().BodyWriter(), tenant.Name, summary, time.Now()); err != nil {
		return serverError(c, "Could not render PDF", err)
	}
	return nil
}
