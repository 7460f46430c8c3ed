package plan

import "strings"

// Tier is the closed set of subscription levels.
type Tier string

const (
	TierFree       Tier = "free"
	TierPremium    Tier = "premium"
	TierEnterprise Tier = "enterprise"
)

// Category names an advice section.
type Category string

const (
	CategoryGeneral     Category = "general"
	CategoryHealth      Category = "health"
	CategoryActivities  Category = "activities"
	CategoryAgriculture Category = "agriculture"
	CategoryEnterprise  Category = "enterprise"
)

// AllCategories lists every advice category in display order.
func AllCategories() []Category {
	return []Category{
		CategoryGeneral,
		CategoryHealth,
		CategoryActivities,
		CategoryAgriculture,
		CategoryEnterprise,
	}
}

var entitlements = map[Tier][]Category{
	TierFree:       {CategoryGeneral, CategoryHealth},
	TierPremium:    {CategoryGeneral, CategoryHealth, CategoryActivities, CategoryAgriculture},
	TierEnterprise: {CategoryGeneral, CategoryHealth, CategoryActivities, CategoryAgriculture, CategoryEnterprise},
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	_, ok := entitlements[t]
	return ok
}

// Paid reports whether the tier requires a subscription.
func (t Tier) Paid() bool {
	return t.Valid() && t != TierFree
}

// Categories returns the ordered categories the tier may see.
func (t Tier) Categories() []Category {
	cats := entitlements[t]
	out := make([]Category, len(cats))
	copy(out, cats)
	return out
}

// Entitles reports whether the tier unlocks the category.
func (t Tier) Entitles(c Category) bool {
	for _, cat := range entitlements[t] {
		if cat == c {
			return true
		}
	}
	return false
}

// Rank orders tiers for paywall comparisons. Unknown tiers rank below free.
func (t Tier) Rank() int {
	switch t {
	case TierFree:
		return 0
	case TierPremium:
		return 1
	case TierEnterprise:
		return 2
	default:
		return -1
	}
}

// ParseTier converts user input into a Tier.
func ParseTier(raw string) (Tier, bool) {
	t := Tier(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", false
	}
	return t, true
}
