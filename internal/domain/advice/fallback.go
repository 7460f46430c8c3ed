package advice

import (
	"strings"

	"github.com/yanqian/meteo-burkina/internal/domain/plan"
	"github.com/yanqian/meteo-burkina/internal/domain/weather"
)

// Texts emitted by the rule engine.
const (
	adviceHeatWarning     = "Température très élevée, évitez l'exposition au soleil entre 12h et 16h"
	adviceHydrationMin    = "Buvez au minimum 2-3 litres d'eau par jour"
	adviceWarmDay         = "Journée chaude, privilégiez les activités matinales ou en soirée"
	adviceHydrateLight    = "Restez hydraté et portez des vêtements légers"
	advicePleasant        = "Température agréable, idéale pour les activités extérieures"
	adviceMosquitoes      = "Humidité élevée, attention aux moustiques, utilisez des répulsifs"
	adviceStrongWind      = "Vent fort, sécurisez vos affaires et évitez les activités en hauteur"
	adviceAvoidOutdoor    = "Évitez les sports en extérieur, préférez les activités à l'intérieur"
	adviceCalmWind        = "Pas de vent, parfait pour les pique-niques et activités extérieures"
	adviceRainGear        = "Temps pluvieux, pensez à prendre un parapluie ou imperméable"
	adviceIndoorShelter   = "Privilégiez les activités intérieures ou sous abri"
	adviceProtectGoods    = "Prévoyez des protections pour vos marchandises en cas d'intempéries."
	advicePlanWorkHours   = "Planifiez les horaires de travail en fonction des conditions climatiques."
	adviceServiceDegraded = "⚠️ Service de conseils IA momentanément indisponible."
)

const (
	hotThreshold      = 35.0
	warmThreshold     = 30.0
	pleasantThreshold = 25.0
	humidThreshold    = 70.0
	windyThreshold    = 25.0
	calmThreshold     = 10.0
)

var rainKeywords = []string{"pluie", "rain", "averse", "bruine", "orage"}

// Fallback derives advice from fixed thresholds. It never fails and only
// fills categories the tier is entitled to.
func Fallback(snap weather.Snapshot, tier plan.Tier) Payload {
	p := Payload{}
	paid := tier != plan.TierFree

	switch t := snap.Temperature; {
	case t > hotThreshold:
		p.add(plan.CategoryGeneral, adviceHeatWarning)
		p.add(plan.CategoryHealth, adviceHydrationMin)
	case t > warmThreshold:
		p.add(plan.CategoryGeneral, adviceWarmDay)
		p.add(plan.CategoryHealth, adviceHydrateLight)
	case t < pleasantThreshold:
		p.add(plan.CategoryGeneral, advicePleasant)
	}

	if snap.Humidity > humidThreshold {
		p.add(plan.CategoryHealth, adviceMosquitoes)
	}

	if snap.WindSpeed > windyThreshold {
		p.add(plan.CategoryGeneral, adviceStrongWind)
		if paid {
			p.add(plan.CategoryActivities, adviceAvoidOutdoor)
		}
	} else if snap.WindSpeed < calmThreshold && paid {
		p.add(plan.CategoryActivities, adviceCalmWind)
	}

	if isRainy(snap.Description) {
		p.add(plan.CategoryGeneral, adviceRainGear)
		if paid {
			p.add(plan.CategoryActivities, adviceIndoorShelter)
		}
	}

	if tier == plan.TierEnterprise {
		p.add(plan.CategoryEnterprise, adviceProtectGoods)
		p.add(plan.CategoryEnterprise, advicePlanWorkHours)
	}
	return p.Filter(tier)
}

func isRainy(description string) bool {
	lower := strings.ToLower(description)
	for _, kw := range rainKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
