package plan

import "strings"

// Plan is a purchasable subscription offer.
type Plan struct {
	ID          string   `json:"id"`
	Tier        Tier     `json:"type"`
	Title       string   `json:"title"`
	Price       string   `json:"price"`
	Amount      int      `json:"amount"`
	Currency    string   `json:"currency"`
	Period      string   `json:"period"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Popular     bool     `json:"popular,omitempty"`
}

const currencyXOF = "XOF"

var catalog = []Plan{
	{
		ID:          "plan_free_001",
		Tier:        TierFree,
		Title:       "Gratuit",
		Price:       "0 Fcfa",
		Amount:      0,
		Currency:    currencyXOF,
		Period:      "mois",
		Description: "Plan gratuit avec conseils de base",
		Features:    []string{"Conseils Généraux", "Conseils Santé"},
	},
	{
		ID:          "plan_premium_001",
		Tier:        TierPremium,
		Title:       "Payant",
		Price:       "250 Fcfa",
		Amount:      250,
		Currency:    currencyXOF,
		Period:      "mois",
		Description: "Plan premium avec conseils avancés",
		Features:    []string{"Conseils Généraux", "Conseils Santé", "Conseils Activités", "Conseils Agriculture"},
		Popular:     true,
	},
	{
		ID:          "plan_enterprise_001",
		Tier:        TierEnterprise,
		Title:       "Pour Entreprise",
		Price:       "450 Fcfa",
		Amount:      450,
		Currency:    currencyXOF,
		Period:      "mois",
		Description: "Plan entreprise avec tous les conseils",
		Features:    []string{"Conseils Généraux", "Conseils Santé", "Conseils Activités", "Conseils Agriculture", "Conseils Entreprise"},
	},
}

// All returns every plan in the stable order free, premium, enterprise.
func All() []Plan {
	out := make([]Plan, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, p.clone())
	}
	return out
}

// Resolve looks a plan up by id or tier name, ignoring case.
func Resolve(id string) (Plan, bool) {
	key := strings.ToLower(strings.TrimSpace(id))
	if key == "" {
		return Plan{}, false
	}
	for _, p := range catalog {
		if strings.ToLower(p.ID) == key || string(p.Tier) == key {
			return p.clone(), true
		}
	}
	return Plan{}, false
}

// ForTier returns the plan attached to a tier.
func ForTier(t Tier) (Plan, bool) {
	for _, p := range catalog {
		if p.Tier == t {
			return p.clone(), true
		}
	}
	return Plan{}, false
}

func (p Plan) clone() Plan {
	p.Features = append([]string(nil), p.Features...)
	return p
}
