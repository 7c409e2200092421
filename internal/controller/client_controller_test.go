package controller

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptmanager_backend/internal/middleware"
	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/money"
)

func TestClientPayments(t *testing.T) {
	env := newTestEnv(t)
	sara := model.Client{TenantID: env.tenant.ID, Name: "Sara"}
	require.NoError(t, env.db.Create(&sara).Error)

	admin := as(env.claims(env.admin))
	env.app.Get("/clients/:id/payments", admin, middleware.CheckClientAccess(), ListPayments)
	env.app.Post("/clients/:id/payments", admin, middleware.CheckClientAccess(), CreatePayment)
	env.app.Delete("/clients/:id/payments/:paymentId", admin, middleware.CheckClientAccess(), DeletePayment)
	path := fmt.Sprintf("/clients/%d/payments", sara.ID)

	for _, body := range []fiber.Map{
		{"amount": "0", "duration": "3 mesi", "payment_date": "2024-03-10"},
		{"amount": "100", "duration": " ", "payment_date": "2024-03-10"},
		{"amount": "100", "duration": "3 mesi"},
		{"amount": "100", "duration": "3 mesi", "payment_date": "ieri"},
	} {
		status, _ := env.do(t, http.MethodPost, path, body)
		assert.Equal(t, http.StatusBadRequest, status, body)
	}
	status, _ := env.do(t, http.MethodPost, path, fiber.Map{"amount": "dieci", "duration": "3 mesi", "payment_date": "2024-03-10"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := env.do(t, http.MethodPost, path, fiber.Map{
		"amount": "1.234,50", "duration": "3 mesi", "payment_date": "2024-03-10", "new_scadenza": "2024-06-10",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	first := decode[model.ClientPayment](t, body)
	assert.Equal(t, money.Cents(123450), first.Amount)

	var stored model.Client
	require.NoError(t, env.db.First(&stored, sara.ID).Error)
	require.NotNil(t, stored.Scadenza)
	assert.Equal(t, "2024-06-10", stored.Scadenza.In(time.Local).Format("2006-01-02"))

	got := env.notifications(t, env.admin.ID, "payment")
	require.Len(t, got, 1)
	assert.Equal(t, "Sara: €1.234,50 (3 mesi)", got[0].Body)

	status, _ = env.do(t, http.MethodPost, path, fiber.Map{
		"amount": 90, "duration": "1 mese", "payment_date": "2023-01-05", "is_past": true,
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Len(t, env.notifications(t, env.admin.ID, "payment"), 1, "historic imports are not announced")

	_, body = env.do(t, http.MethodGet, path, nil)
	list := decode[[]model.ClientPayment](t, body)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID, "newest first")
	assert.Equal(t, money.Cents(9000), list[1].Amount)
	assert.True(t, list[1].IsPast)

	status, _ = env.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", path, first.ID), nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = env.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", path, first.ID), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestClientRates(t *testing.T) {
	env := newTestEnv(t)
	sara := model.Client{TenantID: env.tenant.ID, Name: "Sara"}
	paolo := model.Client{TenantID: env.tenant.ID, Name: "Paolo"}
	require.NoError(t, env.db.Create(&[]*model.Client{&sara, &paolo}).Error)

	admin := as(env.claims(env.admin))
	env.app.Get("/clients/:id/rates", admin, middleware.CheckClientAccess(), ListRates)
	env.app.Post("/clients/:id/rates", admin, middleware.CheckClientAccess(), CreateRate)
	env.app.Put("/clients/:id/rates/:rateId/paid", admin, middleware.CheckClientAccess(), MarkRatePaid)
	path := fmt.Sprintf("/clients/%d/rates", sara.ID)

	status, _ := env.do(t, http.MethodPost, path, fiber.Map{"amount": "100"})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = env.do(t, http.MethodPost, path, fiber.Map{"amount": "0", "due_date": "2024-04-01"})
	assert.Equal(t, http.StatusBadRequest, status)

	var rates []model.ClientRate
	for _, due := range []string{"2024-05-01", "2024-04-01"} {
		status, body := env.do(t, http.MethodPost, path, fiber.Map{"amount": "150,00", "due_date": due})
		require.Equal(t, http.StatusCreated, status, string(body))
		rates = append(rates, decode[model.ClientRate](t, body))
	}
	assert.Equal(t, money.Cents(15000), rates[0].Amount)
	assert.False(t, rates[0].Paid)

	status, body := env.do(t, http.MethodPut, fmt.Sprintf("%s/%d/paid", path, rates[1].ID), nil)
	require.Equal(t, http.StatusOK, status, string(body))
	paid := decode[model.ClientRate](t, body)
	assert.True(t, paid.Paid)
	require.NotNil(t, paid.PaidAt)

	status, _ = env.do(t, http.MethodPut, fmt.Sprintf("/clients/%d/rates/%d/paid", paolo.ID, rates[0].ID), nil)
	assert.Equal(t, http.StatusNotFound, status, "a rate belongs to one client")

	_, body = env.do(t, http.MethodGet, path, nil)
	list := decode[[]model.ClientRate](t, body)
	require.Len(t, list, 2)
	assert.Equal(t, rates[1].ID, list[0].ID, "ordered by due date")
	assert.True(t, list[0].Paid)
	assert.False(t, list[1].Paid)
}
