package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanUseFeature(t *testing.T) {
	assert.False(t, CanUseFeature(FreePlan, LeadExport))
	assert.True(t, CanUseFeature(ProPlan, LeadExport))
	assert.False(t, CanUseFeature(ProPlan, PayrollReports))
	assert.True(t, CanUseFeature(ElitePlan, PayrollReports))
	assert.False(t, CanUseFeature("GOLD", LandingPages))
}

func TestLimits(t *testing.T) {
	assert.Equal(t, 10, GetPlanLimits("unknown").MaxClients)
	assert.True(t, WithinLimit(9, GetPlanLimits(FreePlan).MaxClients))
	assert.False(t, WithinLimit(10, GetPlanLimits(FreePlan).MaxClients))
	assert.True(t, WithinLimit(1_000_000, GetPlanLimits(ElitePlan).MaxClients))
}

func TestDeterminePlanType(t *testing.T) {
	assert.Equal(t, ProPlan, DeterminePlanType("price_pro", "price_pro", "price_elite"))
	assert.Equal(t, ElitePlan, DeterminePlanType("price_elite", "price_pro", "price_elite"))
	assert.Equal(t, FreePlan, DeterminePlanType("price_other", "price_pro", "price_elite"))
	assert.Equal(t, FreePlan, DeterminePlanType("", "", ""))
}
