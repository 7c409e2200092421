package subscription

type PlanType string
type Feature string

const (
	FreePlan  PlanType = "FREE"
	ProPlan   PlanType = "PRO"
	ElitePlan PlanType = "ELITE"
)

const (
	LandingPages   Feature = "landing_pages"
	Collaborators  Feature = "collaborators"
	ClientPortal   Feature = "client_portal"
	LeadExport     Feature = "lead_export"
	PayrollReports Feature = "payroll_reports"
	EmailDigests   Feature = "email_digests"
	MediaUploads   Feature = "media_uploads"
)

// Unlimited marks a limit that is not enforced.
const Unlimited = -1

type PlanLimits struct {
	MaxClients       int
	MaxLandingPages  int
	MaxCollaborators int
	AllowedFeatures  map[Feature]bool
}

var PlanFeatures = map[PlanType]PlanLimits{
	FreePlan: {
		MaxClients:       10,
		MaxLandingPages:  1,
		MaxCollaborators: 0,
		AllowedFeatures: map[Feature]bool{
			LandingPages: true,
			ClientPortal: true,
		},
	},
	ProPlan: {
		MaxClients:       100,
		MaxLandingPages:  10,
		MaxCollaborators: 3,
		AllowedFeatures: map[Feature]bool{
			LandingPages:  true,
			Collaborators: true,
			ClientPortal:  true,
			LeadExport:    true,
			EmailDigests:  true,
			MediaUploads:  true,
		},
	},
	ElitePlan: {
		MaxClients:       Unlimited,
		MaxLandingPages:  Unlimited,
		MaxCollaborators: Unlimited,
		AllowedFeatures: map[Feature]bool{
			LandingPages:   true,
			Collaborators:  true,
			ClientPortal:   true,
			LeadExport:     true,
			PayrollReports: true,
			EmailDigests:   true,
			MediaUploads:   true,
		},
	},
}

func CanUseFeature(plan PlanType, feature Feature) bool {
	limits, exists := PlanFeatures[plan]
	if !exists {
		return false
	}
	return limits.AllowedFeatures[feature]
}

func GetPlanLimits(plan PlanType) PlanLimits {
	if limits, ok := PlanFeatures[plan]; ok {
		return limits
	}
	return PlanFeatures[FreePlan]
}

// WithinLimit reports whether one more item fits under limit.
func WithinLimit(current int64, limit int) bool {
	return limit == Unlimited || current < int64(limit)
}

// DeterminePlanType maps a Stripe price to a plan. Unknown prices are FREE.
func DeterminePlanType(stripePriceID, proPriceID, elitePriceID string) PlanType {
	switch {
	case stripePriceID == "":
		return FreePlan
	case stripePriceID == proPriceID:
		return ProPlan
	case stripePriceID == elitePriceID:
		return ElitePlan
	default:
		return FreePlan
	}
}
