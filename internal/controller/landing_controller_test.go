package controller

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/landing"
)

func landingRoutes(env *testEnv) {
	admin := as(env.claims(env.admin))
	env.app.Get("/landing-pages", admin, ListLandingPages)
	env.app.Post("/landing-pages", admin, CreateLandingPage)
	env.app.Get("/landing-pages/:id", admin, GetLandingPage)
	env.app.Put("/landing-pages/:id", admin, UpdateLandingPage)
	env.app.Delete("/landing-pages/:id", admin, DeleteLandingPage)
	env.app.Post("/landing-pages/:id/duplicate", admin, DuplicateLandingPage)
	env.app.Get("/public/pages/:tenant/:slug", GetPublicLandingPage)
	env.app.Post("/public/pages/:tenant/:slug/view", RecordLandingView)
	env.app.Post("/public/pages/:tenant/:slug/lead", SubmitLandingLead)
}

func createPage(t *testing.T, env *testEnv, title, template string) model.LandingPage {
	t.Helper()
	status, body := env.do(t, http.MethodPost, "/landing-pages", fiber.Map{"title": title, "template": template})
	require.Equal(t, http.StatusCreated, status, string(body))
	return decode[model.LandingPage](t, body)
}

func TestCreateLandingPageValidates(t *testing.T) {
	env := newTestEnv(t)
	landingRoutes(env)

	status, _ := env.do(t, http.MethodPost, "/landing-pages", fiber.Map{"title": "ab"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/landing-pages", fiber.Map{"title": "Estate in forma", "template": "nope"})
	assert.Equal(t, http.StatusBadRequest, status)

	page := createPage(t, env, "Estate in forma", "")
	assert.Equal(t, "blank", page.Template)
	assert.False(t, page.IsPublished)
	assert.Contains(t, page.Slug, "estate-in-forma-")
	blocks, err := page.GetBlocks()
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestLandingPageFunnel(t *testing.T) {
	env := newTestEnv(t)
	landingRoutes(env)

	page := createPage(t, env, "Estate in forma", "fitness")
	public := fmt.Sprintf("/public/pages/%s/%s", env.tenant.Slug, page.Slug)

	status, _ := env.do(t, http.MethodGet, public, nil)
	assert.Equal(t, http.StatusNotFound, status, "drafts are not public")

	status, body := env.do(t, http.MethodPut, fmt.Sprintf("/landing-pages/%d", page.ID), fiber.Map{"isPublished": true})
	require.Equal(t, http.StatusOK, status, string(body))
	published := decode[model.LandingPage](t, body)
	assert.True(t, published.IsPublished)
	require.NotNil(t, published.PublishedAt)

	status, body = env.do(t, http.MethodGet, public, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	view := decode[struct {
		Title  string          `json:"title"`
		Blocks []landing.Block `json:"blocks"`
	}](t, body)
	assert.Equal(t, "Estate in forma", view.Title)
	require.Len(t, view.Blocks, 5)

	var formID string
	for _, b := range view.Blocks {
		if b.Type == landing.BlockForm {
			formID = b.ID
		}
	}
	require.NotEmpty(t, formID)

	for i, want := range []bool{true, false} {
		status, body = env.do(t, http.MethodPost, public+"/view", fiber.Map{"visitor_id": "v-1"})
		require.Equal(t, http.StatusOK, status, string(body))
		assert.Equal(t, want, decode[struct {
			Unique bool `json:"unique"`
		}](t, body).Unique, "view %d", i)
	}

	status, _ = env.do(t, http.MethodPost, public+"/lead", fiber.Map{
		"block_id": "missing", "fields": fiber.Map{"name": "Luca", "phone": "333"},
	})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodPost, public+"/lead", fiber.Map{
		"block_id": formID, "fields": fiber.Map{"name": "Luca"},
	})
	assert.Equal(t, http.StatusBadRequest, status, "a contact is required")

	status, body = env.do(t, http.MethodPost, public+"/lead", fiber.Map{
		"block_id": formID, "fields": fiber.Map{"name": "Luca Bianchi", "phone": "333 111 2222", "obiettivo": "dimagrire"},
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	var lead model.Lead
	require.NoError(t, env.db.Where("landing_page_id = ?", page.ID).First(&lead).Error)
	assert.Equal(t, "Luca Bianchi", lead.Name)
	assert.Equal(t, "+393331112222", lead.Phone)
	assert.Equal(t, "landing_form", lead.Source)
	assert.Equal(t, env.tenant.ID, lead.TenantID)
	assert.JSONEq(t, `{"obiettivo":"dimagrire"}`, string(lead.Extra))

	var stored model.LandingPage
	require.NoError(t, env.db.First(&stored, page.ID).Error)
	assert.EqualValues(t, 2, stored.Views)
	assert.EqualValues(t, 1, stored.UniqueVisitors)
	assert.EqualValues(t, 1, stored.Conversions)
	assert.Equal(t, 50.0, stored.ConversionRate)

	assert.Len(t, env.notifications(t, env.admin.ID, "new_lead"), 1)
}

func TestUpdateLandingPageBlockSettings(t *testing.T) {
	env := newTestEnv(t)
	landingRoutes(env)
	page := createPage(t, env, "Estate in forma", "fitness")

	patch := fiber.Map{"blockSettings": fiber.Map{"hero": fiber.Map{"title": "Nuovo titolo"}}}
	for i := 0; i < 2; i++ {
		status, body := env.do(t, http.MethodPut, fmt.Sprintf("/landing-pages/%d", page.ID), patch)
		require.Equal(t, http.StatusOK, status, string(body))
	}

	var stored model.LandingPage
	require.NoError(t, env.db.First(&stored, page.ID).Error)
	blocks, err := stored.GetBlocks()
	require.NoError(t, err)
	assert.Equal(t, "Nuovo titolo", blocks[0].Settings["title"])
	assert.Equal(t, "Il percorso su misura per te", blocks[0].Settings["subtitle"])

	status, _ := env.do(t, http.MethodPut, fmt.Sprintf("/landing-pages/%d", page.ID), fiber.Map{"blocks": "nope"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDuplicateAndDeleteLandingPage(t *testing.T) {
	env := newTestEnv(t)
	landingRoutes(env)
	page := createPage(t, env, "Estate in forma", "coaching")
	require.NoError(t, env.db.Model(&model.LandingPage{}).Where("id = ?", page.ID).
		Updates(map[string]interface{}{"views": 40, "conversions": 4, "is_published": true}).Error)

	status, body := env.do(t, http.MethodPost, fmt.Sprintf("/landing-pages/%d/duplicate", page.ID), nil)
	require.Equal(t, http.StatusCreated, status, string(body))
	dup := decode[model.LandingPage](t, body)
	assert.Equal(t, "Estate in forma (Copia)", dup.Title)
	assert.NotEqual(t, page.Slug, dup.Slug)
	assert.False(t, dup.IsPublished)
	assert.Zero(t, dup.Views)
	assert.Zero(t, dup.Conversions)
	assert.JSONEq(t, string(page.Blocks), string(dup.Blocks))

	status, body = env.do(t, http.MethodGet, "/landing-pages?status=draft", nil)
	require.Equal(t, http.StatusOK, status)
	drafts := decode[[]model.LandingPage](t, body)
	require.Len(t, drafts, 1)
	assert.Equal(t, dup.ID, drafts[0].ID)

	status, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/landing-pages/%d", page.ID), nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = env.do(t, http.MethodGet, fmt.Sprintf("/landing-pages/%d", page.ID), nil)
	assert.Equal(t, http.StatusNotFound, status)
}
