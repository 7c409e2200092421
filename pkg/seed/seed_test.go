package seed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/config"
	"ptmanager_backend/pkg/database"
)

func TestSeedIsIdempotent(t *testing.T) {
	db, err := database.Open("sqlite://file:seed_test?mode=memory&cache=shared")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, db.AutoMigrate(model.All()...))

	cfg := config.StripeConfig{PricePro: "price_pro"}
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		require.NoError(t, SeedPlans(db, cfg))
		require.NoError(t, SeedDemoTenant(db, now))
	}

	var plans []model.Plan
	require.NoError(t, db.Order("price").Find(&plans).Error)
	require.Len(t, plans, 3)
	assert.Equal(t, "price_pro", plans[1].StripePriceID)

	var tenants, pages int64
	db.Model(&model.Tenant{}).Count(&tenants)
	db.Model(&model.LandingPage{}).Count(&pages)
	assert.Equal(t, int64(1), tenants)
	assert.Equal(t, int64(1), pages)
}
