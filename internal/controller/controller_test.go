package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/database"
	"ptmanager_backend/pkg/email"
	"ptmanager_backend/pkg/notification"
	"ptmanager_backend/pkg/realtime"
	"ptmanager_backend/pkg/utils/cloudflare"
	"ptmanager_backend/pkg/utils/jwt"
	"ptmanager_backend/pkg/utils/storage"
)

type testEnv struct {
	db     *gorm.DB
	app    *fiber.App
	tenant model.Tenant
	admin  model.User
	collab model.User
}

func (e *testEnv) claims(u model.User) *jwt.Claims {
	var clientID uint
	if u.ClientID != nil {
		clientID = *u.ClientID
	}
	return &jwt.Claims{UserID: u.ID, TenantID: u.TenantID, Role: u.Role, Email: u.Email, ClientID: clientID}
}

// as stands in for the auth middleware.
func as(claims *jwt.Claims) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user", claims)
		return c.Next()
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(fmt.Sprintf("sqlite://file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(model.All()...))

	prevDB, prevEmail, prevNotif, prevStorage := database.GetDB(), email.GlobalEmailService, notification.Default, cloudflare.Default
	database.SetDB(db)
	email.GlobalEmailService = nil
	notification.Init(realtime.NewHub(8))
	files, err := storage.NewFileStorage(t.TempDir(), "http://localhost/media")
	require.NoError(t, err)
	cloudflare.Default = files
	t.Cleanup(func() {
		database.SetDB(prevDB)
		email.GlobalEmailService = prevEmail
		notification.Default = prevNotif
		cloudflare.Default = prevStorage
	})

	env := &testEnv{db: db, app: fiber.New()}
	env.tenant = model.Tenant{Name: "Coach Anna", Slug: "coach-anna", OwnerEmail: "anna@coach.it"}
	require.NoError(t, db.Create(&env.tenant).Error)
	env.admin = model.User{TenantID: env.tenant.ID, Email: "anna@coach.it", Password: "x", Role: jwt.RoleAdmin, DisplayName: "Anna"}
	require.NoError(t, db.Create(&env.admin).Error)
	env.collab = model.User{TenantID: env.tenant.ID, Email: "marco@coach.it", Password: "x", Role: jwt.RoleCollaborator, DisplayName: "Marco"}
	require.NoError(t, db.Create(&env.collab).Error)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := e.app.Test(req, int((10 * time.Second).Milliseconds()))
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func (e *testEnv) notifications(t *testing.T, userID uint, typ string) []model.Notification {
	t.Helper()
	var list []model.Notification
	require.NoError(t, e.db.Where("user_id = ? AND type = ?", userID, typ).Find(&list).Error)
	return list
}
