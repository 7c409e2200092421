package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/config"
	"ptmanager_backend/pkg/subscription"
)

func withStripePrices(t *testing.T) {
	t.Helper()
	prev := stripeConfig
	stripeConfig = config.StripeConfig{PricePro: "price_pro", PriceElite: "price_elite", WebhookSecret: "whsec_test"}
	t.Cleanup(func() { stripeConfig = prev })
}

func subscriptionEvent(t *testing.T, typ, raw string) stripe.Event {
	t.Helper()
	var event stripe.Event
	require.NoError(t, json.Unmarshal([]byte(fmt.Sprintf(`{"id":"evt_1","type":%q,"data":{"object":%s}}`, typ, raw)), &event))
	return event
}

func subscriptionPayload(tenantID uint, status, price string, end time.Time) string {
	return fmt.Sprintf(`{
		"id": "sub_1",
		"status": %q,
		"customer": "cus_1",
		"current_period_end": %d,
		"metadata": {"tenant_id": "%d"},
		"items": {"object": "list", "data": [{"id": "si_1", "price": {"id": %q}}]}
	}`, status, end.Unix(), tenantID, price)
}

func tenantSubscription(t *testing.T, env *testEnv) model.TenantSubscription {
	t.Helper()
	var sub model.TenantSubscription
	require.NoError(t, env.db.Where("tenant_id = ?", env.tenant.ID).First(&sub).Error)
	return sub
}

func TestStripeSubscriptionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	withStripePrices(t)
	end := time.Now().AddDate(0, 1, 0).Truncate(time.Second)

	err := applyStripeEvent(env.db, subscriptionEvent(t, "customer.subscription.updated",
		subscriptionPayload(env.tenant.ID, "active", "price_pro", end)))
	require.NoError(t, err)

	sub := tenantSubscription(t, env)
	assert.Equal(t, string(subscription.ProPlan), sub.PlanType)
	assert.Equal(t, model.SubscriptionActive, sub.Status)
	assert.Equal(t, "sub_1", sub.StripeSubID)
	assert.Equal(t, "cus_1", sub.StripeCustomerID)
	require.NotNil(t, sub.ExpiresAt)
	assert.True(t, sub.ExpiresAt.Equal(end))

	err = applyStripeEvent(env.db, subscriptionEvent(t, "customer.subscription.updated",
		subscriptionPayload(env.tenant.ID, "past_due", "price_elite", end)))
	require.NoError(t, err)
	sub = tenantSubscription(t, env)
	assert.Equal(t, string(subscription.ElitePlan), sub.PlanType)
	assert.Equal(t, model.SubscriptionPastDue, sub.Status)

	err = applyStripeEvent(env.db, subscriptionEvent(t, "customer.subscription.deleted",
		`{"id": "sub_1", "status": "active"}`))
	require.NoError(t, err)
	sub = tenantSubscription(t, env)
	assert.Equal(t, model.SubscriptionCancelled, sub.Status)
	assert.Equal(t, string(subscription.ElitePlan), sub.PlanType)

	var count int64
	env.db.Model(&model.TenantSubscription{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestCheckoutCompletedActivatesPlan(t *testing.T) {
	env := newTestEnv(t)
	withStripePrices(t)

	prev := fetchStripeSubscription
	t.Cleanup(func() { fetchStripeSubscription = prev })
	fetchStripeSubscription = func(id string) (*stripe.Subscription, error) {
		require.Equal(t, "sub_9", id)
		return &stripe.Subscription{
			ID:     id,
			Status: stripe.SubscriptionStatusActive,
			Items: &stripe.SubscriptionItemList{Data: []*stripe.SubscriptionItem{
				{Price: &stripe.Price{ID: "price_elite"}},
			}},
		}, nil
	}

	raw := fmt.Sprintf(`{"id": "cs_1", "client_reference_id": "%d", "subscription": "sub_9"}`, env.tenant.ID)
	require.NoError(t, applyStripeEvent(env.db, subscriptionEvent(t, "checkout.session.completed", raw)))

	sub := tenantSubscription(t, env)
	assert.Equal(t, string(subscription.ElitePlan), sub.PlanType)
	assert.Equal(t, "sub_9", sub.StripeSubID)

	err := applyStripeEvent(env.db, subscriptionEvent(t, "checkout.session.completed",
		`{"id": "cs_2", "client_reference_id": "abc", "subscription": "sub_9"}`))
	assert.ErrorIs(t, err, errBadPayload)
}

func TestStripeEventsWithoutTenantAreSkipped(t *testing.T) {
	env := newTestEnv(t)
	withStripePrices(t)

	require.NoError(t, applyStripeEvent(env.db, subscriptionEvent(t, "customer.subscription.updated",
		`{"id": "sub_x", "status": "active"}`)))
	require.NoError(t, applyStripeEvent(env.db, subscriptionEvent(t, "invoice.paid", `{}`)))

	malformed := subscriptionEvent(t, "customer.subscription.updated", `{}`)
	malformed.Data.Raw = []byte(`[1, 2]`)
	assert.ErrorIs(t, applyStripeEvent(env.db, malformed), errBadPayload)

	var count int64
	env.db.Model(&model.TenantSubscription{}).Count(&count)
	assert.Zero(t, count)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)
	withStripePrices(t)
	env.app.Post("/webhook", HandleStripeWebhook)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"type":"customer.subscription.deleted"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	status, _ := env.send(t, req)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestMySubscriptionFallsBackToFree(t *testing.T) {
	env := newTestEnv(t)
	env.app.Get("/my", as(env.claims(env.admin)), GetMySubscription)

	_, body := env.do(t, http.MethodGet, "/my", nil)
	got := decode[struct {
		Plan string `json:"plan"`
	}](t, body)
	assert.Equal(t, "FREE", got.Plan)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, env.db.Create(&model.TenantSubscription{
		TenantID: env.tenant.ID, PlanType: "PRO", Status: model.SubscriptionActive, ExpiresAt: &past,
	}).Error)
	_, body = env.do(t, http.MethodGet, "/my", nil)
	got = decode[struct {
		Plan string `json:"plan"`
	}](t, body)
	assert.Equal(t, "FREE", got.Plan, "an expired plan is not honoured")
}
