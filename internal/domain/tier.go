package domain

// Tier names the billing plan used to price an agent's actions.
type Tier string

const (
	TierFree       Tier = "free"
	TierStarter    Tier = "starter"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Tiers returns the recognized billing tiers in ascending price order.
func Tiers() []Tier {
	return []Tier{TierFree, TierStarter, TierPro, TierEnterprise}
}

// KnownTier reports whether s names a recognized billing tier.
func KnownTier(s string) bool {
	switch Tier(s) {
	case TierFree, TierStarter, TierPro, TierEnterprise:
		return true
	}
	return false
}
