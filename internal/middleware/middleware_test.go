package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/database"
	"ptmanager_backend/pkg/subscription"
	"ptmanager_backend/pkg/utils/jwt"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := database.Open(fmt.Sprintf("sqlite://file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(model.All()...))

	prev := database.GetDB()
	database.SetDB(db)
	t.Cleanup(func() { database.SetDB(prev) })
	return db
}

func as(claims *jwt.Claims) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user", claims)
		return c.Next()
	}
}

func ok(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }

func status(t *testing.T, app *fiber.App, req *http.Request) int {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func get(t *testing.T, app *fiber.App, path string) int {
	return status(t, app, httptest.NewRequest(http.MethodGet, path, nil))
}

func TestAuthMiddleware(t *testing.T) {
	jwt.Init("test-secret", time.Hour)
	app := fiber.New()
	app.Get("/me", AuthMiddleware(), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user").(*jwt.Claims).Email)
	})

	assert.Equal(t, http.StatusUnauthorized, get(t, app, "/me"))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, status(t, app, req))

	token, err := jwt.GenerateToken(1, 1, jwt.RoleAdmin, "anna@coach.it", 0)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, status(t, app, req))

	assert.Equal(t, http.StatusOK, get(t, app, "/me?token="+token), "event streams pass the token in the query")
}

func TestRequireRole(t *testing.T) {
	app := fiber.New()
	app.Get("/admin", as(&jwt.Claims{Role: jwt.RoleCollaborator}), RequireRole(jwt.RoleAdmin), ok)
	app.Get("/staff", as(&jwt.Claims{Role: jwt.RoleCollaborator}), RequireRole(jwt.RoleAdmin, jwt.RoleCollaborator), ok)

	assert.Equal(t, http.StatusForbidden, get(t, app, "/admin"))
	assert.Equal(t, http.StatusOK, get(t, app, "/staff"))
}

func TestCheckClientAccess(t *testing.T) {
	db := testDB(t)
	mine := model.Client{TenantID: 1, Name: "Sara"}
	other := model.Client{TenantID: 1, Name: "Paolo"}
	foreign := model.Client{TenantID: 2, Name: "Altro"}
	blocked := model.Client{TenantID: 1, Name: "Ex", IsArchived: true}
	blocked.SetArchiveSettings(model.ArchiveSettings{BlockAppAccess: true, CustomMessage: "Rinnova per continuare"})
	require.NoError(t, db.Create(&[]*model.Client{&mine, &other, &foreign, &blocked}).Error)

	app := fiber.New()
	client := as(&jwt.Claims{TenantID: 1, Role: jwt.RoleClient, ClientID: mine.ID})
	exClient := as(&jwt.Claims{TenantID: 1, Role: jwt.RoleClient, ClientID: blocked.ID})
	staff := as(&jwt.Claims{TenantID: 1, Role: jwt.RoleAdmin})
	app.Get("/client/:id", client, CheckClientAccess(), ok)
	app.Get("/ex/:id", exClient, CheckClientAccess(), ok)
	app.Get("/staff/:id", staff, CheckClientAccess(), ok)

	assert.Equal(t, http.StatusOK, get(t, app, fmt.Sprintf("/client/%d", mine.ID)))
	assert.Equal(t, http.StatusForbidden, get(t, app, fmt.Sprintf("/client/%d", other.ID)))
	assert.Equal(t, http.StatusBadRequest, get(t, app, "/client/abc"))
	assert.Equal(t, http.StatusForbidden, get(t, app, fmt.Sprintf("/ex/%d", blocked.ID)))

	assert.Equal(t, http.StatusOK, get(t, app, fmt.Sprintf("/staff/%d", other.ID)))
	assert.Equal(t, http.StatusOK, get(t, app, fmt.Sprintf("/staff/%d", blocked.ID)), "staff still see archived clients")
	assert.Equal(t, http.StatusNotFound, get(t, app, fmt.Sprintf("/staff/%d", foreign.ID)))
}

func TestClientLimitFollowsPlan(t *testing.T) {
	db := testDB(t)
	limit := subscription.GetPlanLimits(subscription.FreePlan).MaxClients
	for i := 0; i < limit; i++ {
		require.NoError(t, db.Create(&model.Client{TenantID: 1, Name: fmt.Sprintf("Cliente %d", i)}).Error)
	}
	require.NoError(t, db.Create(&model.Client{TenantID: 1, Name: "Archiviato", IsArchived: true}).Error)

	app := fiber.New()
	app.Post("/clients", as(&jwt.Claims{TenantID: 1, Role: jwt.RoleAdmin}), CheckClientLimit, ok)
	post := func() int { return status(t, app, httptest.NewRequest(http.MethodPost, "/clients", nil)) }

	assert.Equal(t, http.StatusForbidden, post())

	require.NoError(t, db.Create(&model.TenantSubscription{TenantID: 1, PlanType: string(subscription.ProPlan),
		Status: model.SubscriptionActive}).Error)
	assert.Equal(t, http.StatusOK, post())

	require.NoError(t, db.Model(&model.TenantSubscription{}).Where("tenant_id = ?", 1).
		Update("status", model.SubscriptionCancelled).Error)
	assert.Equal(t, http.StatusForbidden, post(), "a cancelled plan falls back to FREE")
}

func TestFeatureAccess(t *testing.T) {
	db := testDB(t)
	app := fiber.New()
	app.Get("/export", as(&jwt.Claims{TenantID: 1, Role: jwt.RoleAdmin}), CheckFeatureAccess(subscription.LeadExport), ok)

	assert.Equal(t, http.StatusForbidden, get(t, app, "/export"))

	require.NoError(t, db.Create(&model.TenantSubscription{TenantID: 1, PlanType: string(subscription.ProPlan),
		Status: model.SubscriptionActive}).Error)
	assert.Equal(t, http.StatusOK, get(t, app, "/export"))
}

func TestCollaboratorLimitOnlyForCollaborators(t *testing.T) {
	testDB(t)
	app := fiber.New()
	app.Post("/invite", as(&jwt.Claims{TenantID: 1, Role: jwt.RoleAdmin}), CheckCollaboratorLimit, ok)
	invite := func(role string) int {
		req := httptest.NewRequest(http.MethodPost, "/invite", strings.NewReader(`{"role":"`+role+`"}`))
		req.Header.Set("Content-Type", "application/json")
		return status(t, app, req)
	}

	assert.Equal(t, http.StatusForbidden, invite(jwt.RoleCollaborator), "FREE has no collaborators")
	assert.Equal(t, http.StatusOK, invite(jwt.RoleClient))
}
